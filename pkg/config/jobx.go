package config

import "time"

// JobxConfig configures the background job queue that runs async OCR scans.
type JobxConfig struct {
	// Backend is "redis" or "memory"; memory keeps jobs in process and is
	// meant for development and single instance deployments.
	Backend           string
	Concurrency       int
	Queues            []string
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
	MaxRetries        int
	ResultTTL         time.Duration
}

func loadJobxConfig() JobxConfig {
	return JobxConfig{
		Backend:           getEnv("JOBX_BACKEND", "redis"),
		Concurrency:       getEnvInt("JOBX_CONCURRENCY", 4),
		Queues:            getEnvStringSlice("JOBX_QUEUES", []string{"ocr"}),
		PollInterval:      getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		ShutdownTimeout:   getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
		DequeueTimeout:    getEnvDuration("JOBX_DEQUEUE_TIMEOUT", 5*time.Second),
		DefaultRetryDelay: getEnvDuration("JOBX_DEFAULT_RETRY_DELAY", 30*time.Second),
		MaxRetries:        getEnvInt("JOBX_MAX_RETRIES", 2),
		ResultTTL:         getEnvDuration("JOBX_RESULT_TTL", 24*time.Hour),
	}
}
