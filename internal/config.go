package internal

import (
	"os"
	"strconv"
)

type Config struct {
	RiotAPIKey   string
	RiotPlatform string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDb       string
	PostgresSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	NATSUrl      string
	NATSClientID string

	RateLimitRedisPrefix string

	GatherBatchSize      int
	GatherMaxIterations  int
	GatherMaxRosterPages int

	AppPort  string
	AppEnv   string
	LogLevel string

	CacheEnabled bool
}

func LoadConfig() *Config {
	cacheEnabled := os.Getenv("CACHE_ENABLED")
	enabled := cacheEnabled == "true" || cacheEnabled == ""

	return &Config{
		RiotAPIKey:   os.Getenv("RIOT_API_KEY"),
		RiotPlatform: os.Getenv("RIOT_PLATFORM"),

		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     os.Getenv("POSTGRES_PORT"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDb:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  os.Getenv("POSTGRES_SSL_MODE"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     os.Getenv("REDIS_PORT"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       os.Getenv("REDIS_DB"),

		NATSUrl:      os.Getenv("NATS_URL"),
		NATSClientID: os.Getenv("NATS_CLIENT_ID"),

		RateLimitRedisPrefix: os.Getenv("RATE_LIMIT_REDIS_PREFIX"),

		GatherBatchSize:      envInt("GATHER_BATCH_SIZE", 20),
		GatherMaxIterations:  envInt("GATHER_MAX_ITERATIONS", 10),
		GatherMaxRosterPages: envInt("GATHER_MAX_ROSTER_PAGES", 10),

		AppPort:  os.Getenv("APP_PORT"),
		AppEnv:   os.Getenv("APP_ENV"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		CacheEnabled: enabled,
	}
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
