package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	Port string

	AuthToken string

	DatabaseURL string

	GenerationBaseURL   string
	GenerationToken     string
	GenerationTimeoutMS int
	GenerationRetries   int

	MediaBaseURL   string
	MediaToken     string
	MediaTimeoutMS int

	ClipsBaseURL         string
	ClipsToken           string
	ClipsStatusTimeoutMS int
	ClipsPollBaseMS      int
	ClipsPollMaxMS       int
	ClipsPollGrowth      float64
	ClipsPollMaxAttempts int

	PublishBaseURL string
	PublishToken   string

	BrandsBaseURL       string
	BrandsToken         string
	BrandsCacheTTLMS    int
	TokenExchangeURL    string
	TokenExchangeAPIKey string

	ResultCacheTTLSeconds int
	ResultCacheMaxEntries int

	SourceBudgetChars int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	QueueBatchingEnabled     bool
	QueueBatchSize           int
	QueueBatchFlushMS        int
	QueueBatchFlushTimeoutMS int
	QueueBatchQueueCapacity  int
	QueueBatchMaxInFlight    int

	WorkerEnabled     bool
	ScanIntervalMS    int
	ScanBatchSize     int
	DeliveryRetryMax  int
	LocalQueueBufSize int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GenerationBaseURL:   getEnv("GENERATION_BASE_URL", ""),
		GenerationToken:     getEnv("GENERATION_TOKEN", ""),
		GenerationTimeoutMS: getEnvInt("GENERATION_TIMEOUT_MS", 30000),
		GenerationRetries:   getEnvInt("GENERATION_MAX_RETRIES", 2),

		MediaBaseURL:   getEnv("MEDIA_BASE_URL", ""),
		MediaToken:     getEnv("MEDIA_TOKEN", ""),
		MediaTimeoutMS: getEnvInt("MEDIA_TIMEOUT_MS", 60000),

		ClipsBaseURL:         getEnv("CLIPS_BASE_URL", ""),
		ClipsToken:           getEnv("CLIPS_TOKEN", ""),
		ClipsStatusTimeoutMS: getEnvInt("CLIPS_STATUS_TIMEOUT_MS", 100000),
		ClipsPollBaseMS:      getEnvInt("CLIPS_POLL_BASE_MS", 3000),
		ClipsPollMaxMS:       getEnvInt("CLIPS_POLL_MAX_MS", 15000),
		ClipsPollGrowth:      getEnvFloat("CLIPS_POLL_GROWTH", 1.5),
		ClipsPollMaxAttempts: getEnvInt("CLIPS_POLL_MAX_ATTEMPTS", 100),

		PublishBaseURL: getEnv("PUBLISH_BASE_URL", ""),
		PublishToken:   getEnv("PUBLISH_TOKEN", ""),

		BrandsBaseURL:       getEnv("BRANDS_BASE_URL", ""),
		BrandsToken:         getEnv("BRANDS_TOKEN", ""),
		BrandsCacheTTLMS:    getEnvInt("BRANDS_CACHE_TTL_MS", 60000),
		TokenExchangeURL:    getEnv("TOKEN_EXCHANGE_URL", ""),
		TokenExchangeAPIKey: getEnv("TOKEN_EXCHANGE_API_KEY", ""),

		ResultCacheTTLSeconds: getEnvInt("RESULT_CACHE_TTL_SECONDS", 900),
		ResultCacheMaxEntries: getEnvInt("RESULT_CACHE_MAX_ENTRIES", 2000),

		SourceBudgetChars: getEnvInt("SOURCE_BUDGET_CHARS", 4000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "post_deliveries"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "post_deliveries_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "delivery_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		QueueBatchingEnabled:     getEnvBool("QUEUE_BATCHING_ENABLED", true),
		QueueBatchSize:           getEnvInt("QUEUE_BATCH_SIZE", 32),
		QueueBatchFlushMS:        getEnvInt("QUEUE_BATCH_FLUSH_MS", 25),
		QueueBatchFlushTimeoutMS: getEnvInt("QUEUE_BATCH_FLUSH_TIMEOUT_MS", 3000),
		QueueBatchQueueCapacity:  getEnvInt("QUEUE_BATCH_QUEUE_CAPACITY", 2048),
		QueueBatchMaxInFlight:    getEnvInt("QUEUE_BATCH_MAX_IN_FLIGHT", 4),

		WorkerEnabled:     getEnvBool("WORKER_ENABLED", true),
		ScanIntervalMS:    getEnvInt("SCAN_INTERVAL_MS", 30000),
		ScanBatchSize:     getEnvInt("SCAN_BATCH_SIZE", 50),
		DeliveryRetryMax:  getEnvInt("DELIVERY_RETRY_MAX", 3),
		LocalQueueBufSize: getEnvInt("LOCAL_QUEUE_BUFFER_SIZE", 512),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return fallback
	}
	return cleaned
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
