package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env          string
	Port         int
	DBURL        string
	DBMaxConns   int32
	StoreBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL      time.Duration
	SessionCacheTTL time.Duration
	AuthPolicy      string

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	TracingEnabled   bool
	OTLPEndpoint     string
	TraceSampleRatio float64

	SigninRatePerMin int
	SigninBurst      int
	WriteRatePerMin  int
	WriteBurst       int
	CORSOrigins      []string
	MaxBodyBytes     int64

	WorkerPollInterval time.Duration
	WorkerConcurrency  int
	WorkerHealthPort   int
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:          getEnv("APP_ENV", "dev"),
		Port:         getEnvInt("PORT", 8080),
		DBURL:        buildDBURL(),
		DBMaxConns:   int32(getEnvInt("DB_MAX_CONNS", 10)),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionTTL:      getEnvDuration("SESSION_TTL", 8*time.Hour),
		SessionCacheTTL: getEnvDuration("SESSION_CACHE_TTL", 30*time.Second),
		AuthPolicy:      getEnv("AUTH_POLICY", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		TracingEnabled:   getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRatio: getEnvFloat("TRACE_SAMPLE_RATIO", 1),

		SigninRatePerMin: getEnvInt("SIGNIN_RATE_PER_MIN", 20),
		SigninBurst:      getEnvInt("SIGNIN_BURST", 5),
		WriteRatePerMin:  getEnvInt("WRITE_RATE_PER_MIN", 30),
		WriteBurst:       getEnvInt("WRITE_BURST", 10),
		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		MaxBodyBytes:     int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 500*time.Millisecond),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerHealthPort:   getEnvInt("WORKER_HEALTH_PORT", 8081),
	}
}

// SeedAdmin reports whether all admin seed credentials are configured.
func (c Config) SeedAdmin() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "quorahub")
	pass := getEnv("DB_PASSWORD", "quorahub")
	name := getEnv("DB_NAME", "quorahub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "err", err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean in environment, using default", "key", key, "err", err)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid number in environment, using default", "key", key, "err", err)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
