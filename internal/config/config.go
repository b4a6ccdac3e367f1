package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SYLLOG_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SYLLOG_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// MaxContexts caps the named contexts a knowledge base will hold.
func MaxContexts() int {
	n, err := strconv.Atoi(os.Getenv("KB_MAX_CONTEXTS"))
	if err != nil || n <= 0 {
		return 64
	}
	return n
}

// UncertaintyThreshold is the minimum probability a probabilistic fact must
// carry to be stored.
func UncertaintyThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("KB_UNCERTAINTY_THRESHOLD"), 64)
	if err != nil || t <= 0 {
		return 0.05
	}
	return t
}

// QueryCacheSize is the LRU capacity of the query answer cache.
func QueryCacheSize() int {
	n, err := strconv.Atoi(os.Getenv("KB_QUERY_CACHE_SIZE"))
	if err != nil || n <= 0 {
		return 1024
	}
	return n
}
