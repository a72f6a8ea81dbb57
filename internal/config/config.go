package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                string
	ServerAddr         string
	BackendAddr        string
	BackendURL         string
	BackendTimeout     time.Duration
	FrontendOrigin     string
	RateLimitSubmit    int
	RateLimitBook      int
	RateLimitWindowSec int
	RedisURL           string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheTTLSeconds    int
	MongoURI           string
	MongoDB            string
	JWTSecret          string
	AdminAPIKey        string
	AdminUser          string
	AdminPasswordHash  string
	AccessTTLMinutes   int
	WizardTTL          time.Duration
	PacingConnecting   time.Duration
	PacingProcessing   time.Duration
	PacingVerified     time.Duration
	BrevoAPIKey        string
	BrevoSenderEmail   string
	BrevoSenderName    string
	BrevoSandbox       bool
	OtelEnabled        bool
	OtelEndpoint       string
	OtelSampleRatio    float64
	LogLevel           slog.Level
	Timezone           *time.Location
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("1500ms") or a bare number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func Load() (*Config, error) {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load(".env")

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Kolkata"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017/portal")
	mongoDB := getEnv("MONGO_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "portal"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		BackendAddr:        getEnv("BACKEND_ADDR", ":8090"),
		BackendURL:         strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8090/api"), "/"),
		BackendTimeout:     getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		FrontendOrigin:     getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		RateLimitSubmit:    getEnvInt("RATE_LIMIT_SUBMIT", 5),
		RateLimitBook:      getEnvInt("RATE_LIMIT_BOOK", 10),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 30),
		MongoURI:           mongoURI,
		MongoDB:            mongoDB,
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		AdminUser:          getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		AccessTTLMinutes:   getEnvInt("ACCESS_TTL_MINUTES", 60),
		WizardTTL:          time.Duration(getEnvInt("WIZARD_TTL_MINUTES", 30)) * time.Minute,
		PacingConnecting:   getEnvDuration("PACING_CONNECTING", 1500*time.Millisecond),
		PacingProcessing:   getEnvDuration("PACING_PROCESSING", 2*time.Second),
		PacingVerified:     getEnvDuration("PACING_VERIFIED", time.Second),
		BrevoAPIKey:        getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail:   getEnv("BREVO_SENDER_EMAIL", ""),
		BrevoSenderName:    getEnv("BREVO_SENDER_NAME", "Mentorship Desk"),
		BrevoSandbox:       getEnvBool("BREVO_SANDBOX", false),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelSampleRatio:    getEnvFloat("OTEL_SAMPLING_RATIO", 1),
		LogLevel:           level,
		Timezone:           loc,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.RateLimitSubmit <= 0 || c.RateLimitBook <= 0 || c.RateLimitWindowSec <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.AccessTTLMinutes <= 0 {
		return errors.New("ACCESS_TTL_MINUTES must be positive")
	}
	if c.WizardTTL <= 0 {
		return errors.New("WIZARD_TTL_MINUTES must be positive")
	}
	if c.PacingConnecting < 0 || c.PacingProcessing < 0 || c.PacingVerified < 0 {
		return errors.New("pacing durations must not be negative")
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return errors.New("OTEL_SAMPLING_RATIO must be between 0 and 1")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute url (got %q)", c.BackendURL)
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMinutes) * time.Minute
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	// mongodb URIs sometimes include extra path segments; we only support the first one as db name.
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}
