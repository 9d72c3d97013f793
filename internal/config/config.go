// Package config loads runtime configuration from the environment (with an
// optional .env file for local runs) and validates required values at
// startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DatabaseURL   string
	RedisURL      string

	CheckInterval time.Duration
	BulkThreshold int
	BulkMaxItems  int
	SendDelay     time.Duration

	FakeMode       bool
	PageTimeout    time.Duration
	MaxItems       int
	Headless       bool
	BlockResources bool
	DefaultLat     float64
	DefaultLon     float64
	DefaultKm      int
	UserAgent      string
	Debug          bool

	ServerPort string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Load reads the environment and returns a validated Config. A .env file in
// the working directory is merged in first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		TelegramToken: token,
		DatabaseURL:   dbURL,
		RedisURL:      os.Getenv("REDIS_URL"),

		CheckInterval: time.Duration(getEnvAsInt("CHECK_INTERVAL_SEC", 10)) * time.Second,
		BulkThreshold: getEnvAsInt("BULK_THRESHOLD", 5),
		BulkMaxItems:  getEnvAsInt("BULK_MAX_ITEMS", 25),
		SendDelay:     time.Duration(getEnvAsInt("SEND_DELAY_MS", 250)) * time.Millisecond,

		FakeMode:       getEnv("WALLA_MODE", "real") != "real",
		PageTimeout:    time.Duration(getEnvAsFloat("WALLA_TIMEOUT", 12.0) * float64(time.Second)),
		MaxItems:       getEnvAsInt("WALLA_MAX_ITEMS", 40),
		Headless:       getEnv("WALLA_HEADLESS", "1") != "0",
		BlockResources: getEnv("WALLA_BLOCK_RESOURCES", "1") != "0",
		DefaultLat:     getEnvAsFloat("WALLA_LAT", 40.4168),
		DefaultLon:     getEnvAsFloat("WALLA_LON", -3.7038),
		DefaultKm:      getEnvAsInt("WALLA_DEFAULT_KM", 200),
		UserAgent:      getEnv("WALLA_UA", defaultUserAgent),
		Debug:          getEnv("WALLA_DEBUG", "0") == "1",

		ServerPort: getEnv("SERVER_PORT", "8080"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
