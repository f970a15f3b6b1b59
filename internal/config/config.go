package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the admin server, bot and scheduler.
type Config struct {
	DatabaseURL   string   `yaml:"database_url"`
	HTTPAddr      string   `yaml:"http_addr"`
	TelegramToken string   `yaml:"telegram_token"`
	ReminderTime  string   `yaml:"reminder_time"`
	Timezone      string   `yaml:"timezone"`
	LogMode       string   `yaml:"log_mode"`
	CORSOrigins   []string `yaml:"cors_origins"`
}

// Load reads an optional .env file, an optional YAML file named by
// CONVALESENSE_CONFIG, then environment variables, which win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONVALESENSE_CONFIG")); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.HTTPAddr, "HTTP_ADDR")
	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.ReminderTime, "REMINDER_TIME")
	overrideString(&cfg.Timezone, "TIMEZONE")
	overrideString(&cfg.LogMode, "LOG_MODE")
	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "convalesense.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "08:00"
	}
	if cfg.LogMode == "" {
		cfg.LogMode = "dev"
	}

	if _, _, err := ParseClock(cfg.ReminderTime); err != nil {
		return cfg, fmt.Errorf("REMINDER_TIME: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
