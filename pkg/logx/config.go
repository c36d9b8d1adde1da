package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format represents the output format
type Format string

const (
	// FormatConsole writes human readable, optionally colored lines
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line
	FormatJSON Format = "json"
	// FormatCloudWatch writes JSON with the msg/time keys CloudWatch Insights expects
	FormatCloudWatch Format = "cloudwatch"
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum level written
	Level Level

	// Format selects the formatter
	Format Format

	// Service is stamped on every JSON line as "service"
	Service string

	// EnableColors colors console output
	EnableColors bool

	// EnableCaller adds file:line of the call site
	EnableCaller bool

	// EnableTimestamp adds the entry time
	EnableTimestamp bool

	// TimeFormat is a Go layout, or "unix" / "unixmilli"
	TimeFormat string

	// Output defaults to os.Stdout
	Output io.Writer
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Level:           LevelInfo,
		Format:          FormatConsole,
		Service:         "escolar",
		EnableColors:    true,
		EnableTimestamp: true,
		TimeFormat:      time.RFC3339,
		Output:          os.Stdout,
	}
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE, LOG_COLOR,
// LOG_CALLER and LOG_TIME_FORMAT on top of DefaultConfig.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = ParseFormat(format)
	}

	if service := os.Getenv("LOG_SERVICE"); service != "" {
		config.Service = service
	}

	if color := os.Getenv("LOG_COLOR"); color != "" {
		config.EnableColors = envBool(color)
	}

	if caller := os.Getenv("LOG_CALLER"); caller != "" {
		config.EnableCaller = envBool(caller)
	}

	if timeFormat := os.Getenv("LOG_TIME_FORMAT"); timeFormat != "" {
		config.TimeFormat = parseTimeFormat(timeFormat)
	}

	return config
}

// ParseFormat maps a format name onto a Format, defaulting to console
func ParseFormat(format string) Format {
	switch strings.ToLower(format) {
	case "json":
		return FormatJSON
	case "cloudwatch":
		return FormatCloudWatch
	default:
		return FormatConsole
	}
}

func parseTimeFormat(name string) string {
	switch strings.ToUpper(name) {
	case "RFC3339":
		return time.RFC3339
	case "RFC3339NANO":
		return time.RFC3339Nano
	case "UNIX":
		return "unix"
	case "UNIXMILLI":
		return "unixmilli"
	default:
		return name
	}
}

func envBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
