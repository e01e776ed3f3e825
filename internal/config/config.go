package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiModel       string
	GeminiTemperature float64
	GeminiTimeout     time.Duration

	ReportRetryMaxAttempts    int
	ReportRetryInitialBackoff time.Duration
	ReportRetryMaxBackoff     time.Duration
	ReportBreakerEnabled      bool

	ScanTimeout    time.Duration
	ScanMinDisplay time.Duration
	MaxUploadBytes int64

	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIBackpressureMaxInFlight int
	APIBackpressureWait        time.Duration

	NATSURL     string
	NATSSubject string

	PDFFontPath string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:      mustEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiBaseURL:     mustEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:       mustEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTemperature: mustEnvFloat("GEMINI_TEMPERATURE", 0.2),
		GeminiTimeout:     mustEnvDuration("GEMINI_TIMEOUT_SECONDS", time.Second, 120*time.Second),

		ReportRetryMaxAttempts:    mustEnvInt("REPORT_RETRY_MAX_ATTEMPTS", 5),
		ReportRetryInitialBackoff: mustEnvDuration("REPORT_RETRY_INITIAL_BACKOFF_MS", time.Millisecond, 4*time.Second),
		ReportRetryMaxBackoff:     mustEnvDuration("REPORT_RETRY_MAX_BACKOFF_MS", time.Millisecond, 32*time.Second),
		ReportBreakerEnabled:      mustEnvBool("REPORT_BREAKER_ENABLED", false),

		ScanTimeout:    mustEnvDuration("SCAN_TIMEOUT_SECONDS", time.Second, 300*time.Second),
		ScanMinDisplay: mustEnvDuration("SCAN_MIN_DISPLAY_MS", time.Millisecond, 0),
		MaxUploadBytes: int64(mustEnvInt("MAX_UPLOAD_BYTES", 50<<20)),

		APIRateLimitRPS:            mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst:          mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIBackpressureMaxInFlight: mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 32),
		APIBackpressureWait:        mustEnvDuration("API_BACKPRESSURE_WAIT_MS", time.Millisecond, 250*time.Millisecond),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "scan.completed"),

		PDFFontPath: mustEnv("PDF_FONT_PATH", ""),
	}
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY (or API_KEY) is required"))
	}
	if strings.TrimSpace(c.GeminiModel) == "" {
		errs = append(errs, errors.New("GEMINI_MODEL must not be empty"))
	}
	if c.ReportRetryMaxAttempts < 1 {
		errs = append(errs, errors.New("REPORT_RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration reads an integer count of unit.
func mustEnvDuration(key string, unit, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return time.Duration(n) * unit
}
