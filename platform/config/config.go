// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler infrastructure.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RevalidationConfig provides tier intervals and retry policy for the
// revalidation scheduler. Intervals are configurable but carry fixed defaults.
type RevalidationConfig interface {
	GetTierIntervalHigh() time.Duration
	GetTierIntervalMedium() time.Duration
	GetTierIntervalLow() time.Duration
	GetTierIntervalContacted() time.Duration
	GetTierIntervalNew() time.Duration
	GetRetryInterval() time.Duration
	GetMaxValidationAttempts() int
	GetValidatorTimeout() time.Duration
	GetPollInterval() time.Duration
	GetClaimBatchSize() int
}

// AIConfig provides settings for the insight provider.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	IsAIEnabled() bool
}

// AccountsConfig provides settings for account intelligence.
type AccountsConfig interface {
	GetFreeMailDomains() []string
	GetAccountCacheTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	TierIntervalHigh      time.Duration
	TierIntervalMedium    time.Duration
	TierIntervalLow       time.Duration
	TierIntervalContacted time.Duration
	TierIntervalNew       time.Duration
	RetryInterval         time.Duration
	MaxValidationAttempts int
	ValidatorTimeout      time.Duration
	PollInterval          time.Duration
	ClaimBatchSize        int

	MoonshotAPIKey string
	MoonshotModel  string

	FreeMailDomains []string
	AccountCacheTTL time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// RevalidationConfig implementation
func (c *Config) GetTierIntervalHigh() time.Duration      { return c.TierIntervalHigh }
func (c *Config) GetTierIntervalMedium() time.Duration    { return c.TierIntervalMedium }
func (c *Config) GetTierIntervalLow() time.Duration       { return c.TierIntervalLow }
func (c *Config) GetTierIntervalContacted() time.Duration { return c.TierIntervalContacted }
func (c *Config) GetTierIntervalNew() time.Duration       { return c.TierIntervalNew }
func (c *Config) GetRetryInterval() time.Duration         { return c.RetryInterval }
func (c *Config) GetMaxValidationAttempts() int           { return c.MaxValidationAttempts }
func (c *Config) GetValidatorTimeout() time.Duration      { return c.ValidatorTimeout }
func (c *Config) GetPollInterval() time.Duration          { return c.PollInterval }
func (c *Config) GetClaimBatchSize() int                  { return c.ClaimBatchSize }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string  { return c.MoonshotModel }
func (c *Config) IsAIEnabled() bool         { return c.MoonshotAPIKey != "" }

// AccountsConfig implementation
func (c *Config) GetFreeMailDomains() []string      { return c.FreeMailDomains }
func (c *Config) GetAccountCacheTTL() time.Duration { return c.AccountCacheTTL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "revalidation"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),

		TierIntervalHigh:      mustDuration(getEnv("REVALIDATION_INTERVAL_HIGH", "720h")),      // 30 days
		TierIntervalMedium:    mustDuration(getEnv("REVALIDATION_INTERVAL_MEDIUM", "504h")),    // 21 days
		TierIntervalLow:       mustDuration(getEnv("REVALIDATION_INTERVAL_LOW", "336h")),       // 14 days
		TierIntervalContacted: mustDuration(getEnv("REVALIDATION_INTERVAL_CONTACTED", "168h")), // 7 days
		TierIntervalNew:       mustDuration(getEnv("REVALIDATION_INTERVAL_NEW", "72h")),        // 3 days
		RetryInterval:         mustDuration(getEnv("REVALIDATION_RETRY_INTERVAL", "24h")),
		MaxValidationAttempts: mustInt(getEnv("REVALIDATION_MAX_ATTEMPTS", "3")),
		ValidatorTimeout:      mustDuration(getEnv("VALIDATOR_TIMEOUT", "5s")),
		PollInterval:          mustDuration(getEnv("REVALIDATION_POLL_INTERVAL", "15s")),
		ClaimBatchSize:        mustInt(getEnv("REVALIDATION_CLAIM_BATCH", "50")),

		MoonshotAPIKey: getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:  getEnv("MOONSHOT_MODEL", "kimi-k2-turbo-preview"),

		FreeMailDomains: splitCSV(getEnv("FREE_MAIL_DOMAINS",
			"gmail.com,yahoo.com,hotmail.com,outlook.com,aol.com,icloud.com,protonmail.com,live.com")),
		AccountCacheTTL: mustDuration(getEnv("ACCOUNT_CACHE_TTL", "15m")),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
