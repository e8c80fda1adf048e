package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	InboxDir      string
	DBPath        string
	HTTPPort      string
	Environment   string
	SchemaVersion string
	VendorCatalog string
	WorkerCount   int
	QueueSize     int
	JobTimeoutSec int
	EnableWatcher bool
}

// Load reads configuration from environment and optional .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		InboxDir:      getenv("INBOX_DIR", "./inbox"),
		DBPath:        getenv("DB_PATH", "./voicelens.db"),
		HTTPPort:      getenv("PORT", "8080"),
		Environment:   getenv("ENVIRONMENT", "local"),
		SchemaVersion: getenv("SCHEMA_VERSION", "0.5"),
		VendorCatalog: getenv("VENDOR_CATALOG", ""),
		WorkerCount:   clampInt(getenvInt("WORKER_COUNT", 4), 1, 64),
		QueueSize:     clampInt(getenvInt("QUEUE_SIZE", 128), 8, 1024),
		JobTimeoutSec: clampInt(getenvInt("JOB_TIMEOUT_SEC", 30), 1, 600),
		EnableWatcher: getenvBool("ENABLE_WATCHER", true),
	}

	log.Printf("config: inbox_dir=%s db=%s schema=%s env=%s", cfg.InboxDir, cfg.DBPath, cfg.SchemaVersion, cfg.Environment)
	return cfg
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
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

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
