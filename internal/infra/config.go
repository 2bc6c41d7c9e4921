package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Provider credentials and callback wiring.
	CallbackBaseURL string
	QwenAPIKey      string
	QwenBaseURL     string
	QwenModel       string
	QwenSecret      string
	VeoAPIKey       string
	VeoBaseURL      string
	VeoModel        string
	VeoSecret       string

	// Credit cost per submission, by job kind.
	CostImageEdit int64
	CostVideo     int64

	// Expiry sweep policy for jobs stuck without a callback.
	JobStaleAfter time.Duration
	SweepInterval time.Duration

	AnalyticsEndpoint string
	GeoIPDBPath       string

	MailerEndpoint string
	MailerAPIKey   string
	MailerFrom     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
	DBMaxConns       int32
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		CallbackBaseURL: getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),
		QwenAPIKey:      os.Getenv("QWEN_API_KEY"),
		QwenBaseURL:     getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		QwenModel:       getEnv("QWEN_MODEL", "qwen-image-edit"),
		QwenSecret:      os.Getenv("QWEN_WEBHOOK_SECRET"),
		VeoAPIKey:       os.Getenv("VEO_API_KEY"),
		VeoBaseURL:      getEnv("VEO_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VeoModel:        getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		VeoSecret:       os.Getenv("VEO_WEBHOOK_SECRET"),

		CostImageEdit: int64(getEnvInt("COST_IMAGE_EDIT", 10)),
		CostVideo:     int64(getEnvInt("COST_TEXT_TO_VIDEO", 20)),

		JobStaleAfter: getEnvDuration("JOB_STALE_AFTER", 30*time.Minute),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),

		AnalyticsEndpoint: os.Getenv("ANALYTICS_ENDPOINT"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),

		MailerEndpoint: os.Getenv("MAILER_ENDPOINT"),
		MailerAPIKey:   os.Getenv("MAILER_API_KEY"),
		MailerFrom:     getEnv("MAILER_FROM", "no-reply@genbridge.app"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.CostImageEdit <= 0 || cfg.CostVideo <= 0 {
		return nil, fmt.Errorf("submission costs must be positive")
	}

	return cfg, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
