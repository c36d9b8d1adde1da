package config

import (
	"fmt"
	"slices"
	"time"
)

// Config is the whole application configuration. It is loaded once in cmd
// and handed to each component as the sub-struct it needs.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	OCR      OCRConfig
	Scan     ScanConfig
	Jobx     JobxConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	BodyLimitMB     int
	AllowedOrigins  string
	ShutdownTimeout time.Duration
}

func (s ServerConfig) IsProduction() bool { return s.Environment == "production" }

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Address() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

type AuthConfig struct {
	JWT JWTConfig

	// SeedAdmin* create the first admin at startup when no user has that
	// email. Leave the password empty to skip seeding.
	SeedAdminEmail    string
	SeedAdminUsername string
	SeedAdminPassword string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	Issuer         string
	CookieName     string
	CookieSecure   bool
}

// StorageConfig selects where uploaded document images are kept.
type StorageConfig struct {
	Mode      string // "local" or "s3"
	UploadDir string
	AWSRegion string
	AWSBucket string
	S3Prefix  string
}

// ScanConfig tunes the OCR scan pipeline.
type ScanConfig struct {
	DefaultDocumentType string
	BatchConcurrency    int
	MaxBatchSize        int
	MaxImageBytes       int
	StoreImages         bool
	JobQueue            string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			BodyLimitMB:     getEnvInt("BODY_LIMIT_MB", 20),
			AllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "escolar"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				SecretKey:      getEnv("JWT_SECRET_KEY", ""),
				AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 8*time.Hour),
				Issuer:         getEnv("JWT_ISSUER", "escolar"),
				CookieName:     getEnv("JWT_COOKIE_NAME", "access_token"),
				CookieSecure:   getEnvBool("JWT_COOKIE_SECURE", false),
			},
			SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@escolar.local"),
			SeedAdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Mode:      getEnv("STORAGE_MODE", "local"),
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
			AWSBucket: getEnv("AWS_BUCKET", "escolar-uploads"),
			S3Prefix:  getEnv("S3_PREFIX", "scans"),
		},
		OCR: loadOCRConfig(),
		Scan: ScanConfig{
			DefaultDocumentType: getEnv("SCAN_DEFAULT_DOCUMENT_TYPE", "AcademicRecord"),
			BatchConcurrency:    getEnvInt("SCAN_BATCH_CONCURRENCY", 4),
			MaxBatchSize:        getEnvInt("SCAN_MAX_BATCH_SIZE", 20),
			MaxImageBytes:       getEnvInt("SCAN_MAX_IMAGE_BYTES", 10<<20),
			StoreImages:         getEnvBool("SCAN_STORE_IMAGES", true),
			JobQueue:            getEnv("SCAN_JOB_QUEUE", "ocr"),
		},
		Jobx: loadJobxConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.Auth.JWT.SecretKey == "" {
		return fmt.Errorf("config: JWT_SECRET_KEY is required")
	}
	if c.Storage.Mode != "local" && c.Storage.Mode != "s3" {
		return fmt.Errorf("config: unknown STORAGE_MODE %q (use 'local' or 's3')", c.Storage.Mode)
	}
	if c.Jobx.Backend != "redis" && c.Jobx.Backend != "memory" {
		return fmt.Errorf("config: unknown JOBX_BACKEND %q (use 'redis' or 'memory')", c.Jobx.Backend)
	}
	if !slices.Contains(c.Jobx.Queues, c.Scan.JobQueue) {
		return fmt.Errorf("config: SCAN_JOB_QUEUE %q is not served by JOBX_QUEUES %v", c.Scan.JobQueue, c.Jobx.Queues)
	}
	if c.Scan.BatchConcurrency < 1 {
		return fmt.Errorf("config: SCAN_BATCH_CONCURRENCY must be positive")
	}
	return c.OCR.Validate()
}
