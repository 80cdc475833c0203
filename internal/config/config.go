// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Blob backends understood by BlobBackend.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port      int
	LogLevel  string
	LogFormat string

	// BlobBackend selects where the serialized ledger is kept.
	BlobBackend string
	BlobDir     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL string

	// AdminSecretHash is a bcrypt hash; AdminSecret is the plaintext fallback.
	AdminSecretHash string
	AdminSecret     string

	JWTSecret  string
	JWTExpires time.Duration
}

// Load reads configuration, applying .env values first when the file exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getEnvInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		BlobBackend:     strings.ToLower(getEnv("BLOB_BACKEND", BackendFile)),
		BlobDir:         getEnv("BLOB_DIR", "./data"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		AdminSecretHash: getEnv("ADMIN_SECRET_HASH", ""),
		AdminSecret:     getEnv("ADMIN_SECRET", ""),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpires:      time.Duration(getEnvInt("JWT_EXPIRES_MINUTES", 60)) * time.Minute,
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
