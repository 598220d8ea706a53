package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Policy   PolicyConfig
	Storage  StorageConfig
	Report   ReportConfig
	Notify   NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// PolicyConfig carries the claim policy bounds. Read once at startup; the
// process never reloads them.
type PolicyConfig struct {
	MaxHoursPerMonth     decimal.Decimal
	MinHourlyRate        decimal.Decimal
	MaxHourlyRate        decimal.Decimal
	AutoApproveThreshold decimal.Decimal
}

// StorageConfig locates the attachment blob store.
type StorageConfig struct {
	AttachmentRoot string
}

// ReportConfig tunes the HR reporting projection.
type ReportConfig struct {
	SummaryCacheTTLSeconds int
}

// NotificationConfig configures outgoing notification stubs.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	policy, err := loadPolicy()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "lecturer-claim-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Policy: policy,
		Storage: StorageConfig{
			AttachmentRoot: getEnv("ATTACHMENT_ROOT", "uploads/claims"),
		},
		Report: ReportConfig{
			SummaryCacheTTLSeconds: getEnvAsInt("REPORT_SUMMARY_CACHE_TTL_SECONDS", 300),
		},
		Notify: NotificationConfig{
			EmailFrom:  os.Getenv("NOTIFY_EMAIL_FROM"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

func loadPolicy() (PolicyConfig, error) {
	maxHours, err := getEnvAsDecimal("CLAIM_MAX_HOURS_PER_MONTH", "180")
	if err != nil {
		return PolicyConfig{}, err
	}
	minRate, err := getEnvAsDecimal("CLAIM_MIN_HOURLY_RATE", "100")
	if err != nil {
		return PolicyConfig{}, err
	}
	maxRate, err := getEnvAsDecimal("CLAIM_MAX_HOURLY_RATE", "1000")
	if err != nil {
		return PolicyConfig{}, err
	}
	threshold, err := getEnvAsDecimal("CLAIM_AUTO_APPROVE_THRESHOLD", "5000")
	if err != nil {
		return PolicyConfig{}, err
	}
	if minRate.GreaterThan(maxRate) {
		return PolicyConfig{}, fmt.Errorf("CLAIM_MIN_HOURLY_RATE %s exceeds CLAIM_MAX_HOURLY_RATE %s", minRate, maxRate)
	}
	return PolicyConfig{
		MaxHoursPerMonth:     maxHours,
		MinHourlyRate:        minRate,
		MaxHourlyRate:        maxRate,
		AutoApproveThreshold: threshold,
	}, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SummaryCacheTTL returns the Redis TTL for cached monthly summaries.
func (r ReportConfig) SummaryCacheTTL() time.Duration {
	if r.SummaryCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.SummaryCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDecimal(key, fallback string) (decimal.Decimal, error) {
	val := os.Getenv(key)
	if val == "" {
		val = fallback
	}
	parsed, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
