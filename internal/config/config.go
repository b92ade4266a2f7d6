package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	MySQLDSN     string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration

	RedisAddr     string
	RedisPoolSize int

	// AMQPURL is optional. Without it order events stay in-process.
	AMQPURL string

	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration

	CartTTL           time.Duration
	CommitLockTTL     time.Duration
	DashboardCacheTTL time.Duration

	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment. Only malformed values
// are errors; anything unset falls back to a development default.
func Load() (Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		d, err := time.ParseDuration(getEnvOrDefault(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		n, err := strconv.Atoi(getEnvOrDefault(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return n
	}

	cfg := Config{
		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		GRPCAddr: getEnvOrDefault("GRPC_ADDR", ":9090"),

		MySQLDSN:     getEnvOrDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/eventpos?parseTime=true"),
		MaxOpenConns: integer("MYSQL_MAX_OPEN_CONNS", 50),
		MaxIdleConns: integer("MYSQL_MAX_IDLE_CONNS", 25),
		ConnMaxLife:  duration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize: integer("REDIS_POOL_SIZE", 100),

		AMQPURL: os.Getenv("AMQP_URL"),

		SessionSecret: getEnvOrDefault("SESSION_SECRET", "change-me-session-secret"),
		JWTSecret:     getEnvOrDefault("JWT_SECRET", "change-me-jwt-secret"),
		JWTTTL:        duration("JWT_TTL", 12*time.Hour),

		CartTTL:           duration("CART_TTL", 12*time.Hour),
		CommitLockTTL:     duration("COMMIT_LOCK_TTL", 30*time.Second),
		DashboardCacheTTL: duration("DASHBOARD_CACHE_TTL", 30*time.Second),

		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
