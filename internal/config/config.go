package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot and the map server.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	AdminID        int64 // bootstrap administrator, static and never stored
	ServerURL      string
	HTTPAddr       string
	MarkerTTL      time.Duration // 0 disables expiry
	ExpiryInterval time.Duration
}

// Load reads configuration from environment variables with sane defaults.
// A .env file is used when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AdminID:        parseID(strings.TrimSpace(os.Getenv("ADMIN_ID"))),
		ServerURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("SERVER_URL")), "/"),
		HTTPAddr:       strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		MarkerTTL:      parseDays(strings.TrimSpace(os.Getenv("MARKER_TTL_DAYS"))),
		ExpiryInterval: parseHours(strings.TrimSpace(os.Getenv("EXPIRY_INTERVAL_HOURS"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "hazard_map.db"
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}

	if cfg.ExpiryInterval == 0 {
		cfg.ExpiryInterval = 6 * time.Hour
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	if cfg.AdminID == 0 {
		return cfg, fmt.Errorf("ADMIN_ID is required")
	}

	return cfg, nil
}

func parseID(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func parseDays(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

func parseHours(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
