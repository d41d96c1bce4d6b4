package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	WSBaseURL  string
	StatePath  string
	Env        string

	RequestTimeout time.Duration
	UploadTimeout  time.Duration

	MaxReconnectAttempts int
	RetrySweepSpec       string
}

func Load() *Config {
	log.Println("[CONFIG] Attempting to load .env file...")

	err := godotenv.Load()
	if err != nil {
		log.Println("[CONFIG] ℹ️ No .env file found, relying on system environment variables")
	} else {
		log.Println("[CONFIG] ✅ Successfully loaded .env file")
	}

	cfg := &Config{
		APIBaseURL:           strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:8000"), "/"),
		StatePath:            getEnv("STATE_DB_PATH", defaultStatePath()),
		Env:                  getEnv("APP_ENV", "development"),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		UploadTimeout:        getEnvDuration("UPLOAD_TIMEOUT", 30*time.Second),
		MaxReconnectAttempts: getEnvInt("MAX_RECONNECT_ATTEMPTS", 5),
		RetrySweepSpec:       getEnv("QUEUE_RETRY_SPEC", "@every 30s"),
	}

	// The websocket endpoint lives on the same host as the REST API.
	cfg.WSBaseURL = strings.Replace(cfg.APIBaseURL, "http", "ws", 1)

	log.Printf("[CONFIG] Environment: %s", cfg.Env)
	log.Printf("[CONFIG] API base URL: %s", cfg.APIBaseURL)
	log.Printf("[CONFIG] WebSocket base URL: %s", cfg.WSBaseURL)
	log.Printf("[CONFIG] Local state database: %s", cfg.StatePath)

	log.Println("[CONFIG] All configuration variables successfully initialized")
	return cfg
}

func defaultStatePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "chatlink.db"
	}
	return filepath.Join(dir, "chatlink", "state.db")
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Printf("[CONFIG] ⚠️  Variable %s not found, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[CONFIG] ⚠️  Variable %s is not an integer (%q), using default: %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("[CONFIG] ⚠️  Variable %s is not a duration (%q), using default: %s", key, raw, defaultValue)
		return defaultValue
	}
	return value
}
