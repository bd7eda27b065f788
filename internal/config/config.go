// Package config loads the planner's runtime configuration from a .env
// file (if present) and environment variables. Per-broker credentials are
// loaded into Config for broker adapters to use; no adapter in this module
// reads them. None of the rebalancing logic itself is configurable — it
// only takes explicit arguments.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the planner CLI's runtime configuration.
type Config struct {
	DataDir  string // base directory for index files, stock lists, and persisted adapter caches
	LogLevel string // debug, info, warn, error
	Pretty   bool   // console-writer logging instead of JSON

	RobinhoodUsername string
	RobinhoodPassword string
	WebullUsername    string
	WebullPassword    string
	SchwabAPIKey      string
	SchwabAPISecret   string

	PriceCacheTTL  time.Duration
	ObjectCacheTTL time.Duration

	ServeAddr string // "" disables the diagnostic HTTP server
}

const defaultDataDir = "./data"

// Load loads .env (if present), then environment variables, resolving
// dataDirFlag > REBALANCER_DATA_DIR env > defaultDataDir. The directory is
// created if missing.
func Load(dataDirFlag ...string) (*Config, error) {
	_ = godotenv.Load()

	dataDir := os.Getenv("REBALANCER_DATA_DIR")
	if len(dataDirFlag) > 0 && dataDirFlag[0] != "" {
		dataDir = dataDirFlag[0]
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Pretty:   getBoolEnv("LOG_PRETTY", false),

		RobinhoodUsername: os.Getenv("ROBINHOOD_USERNAME"),
		RobinhoodPassword: os.Getenv("ROBINHOOD_PASSWORD"),
		WebullUsername:    os.Getenv("WEBULL_USERNAME"),
		WebullPassword:    os.Getenv("WEBULL_PASSWORD"),
		SchwabAPIKey:      os.Getenv("SCHWAB_API_KEY"),
		SchwabAPISecret:   os.Getenv("SCHWAB_API_SECRET"),

		PriceCacheTTL:  getDurationEnv("PRICE_CACHE_TTL_SECONDS", time.Hour),
		ObjectCacheTTL: getDurationEnv("OBJECT_CACHE_TTL_SECONDS", time.Hour),

		ServeAddr: os.Getenv("REBALANCER_SERVE_ADDR"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
