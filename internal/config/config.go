// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	DataDir     string
	SiteURL     string
	RedisURL    string

	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIBase  string

	PresenceCacheTTL time.Duration
	ProfileCacheTTL  time.Duration
	InboxRetention   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/inbox.db"),
		DataDir:     getEnv("DATA_DIR", "./public"),
		SiteURL:     getEnv("SITE_URL", "https://skyler-chan.com"),
		RedisURL:    getEnv("REDIS_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIBase:  getEnv("TELEGRAM_API_BASE", ""),

		PresenceCacheTTL: getEnvDuration("PRESENCE_CACHE_TTL", time.Minute),
		ProfileCacheTTL:  getEnvDuration("PROFILE_CACHE_TTL", time.Hour),
		InboxRetention:   getEnvDuration("INBOX_RETENTION", 90*24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.PresenceCacheTTL <= 0 {
		return fmt.Errorf("PRESENCE_CACHE_TTL must be > 0")
	}
	if c.ProfileCacheTTL <= 0 {
		return fmt.Errorf("PROFILE_CACHE_TTL must be > 0")
	}
	if c.InboxRetention <= 0 {
		return fmt.Errorf("INBOX_RETENTION must be > 0")
	}
	// Telegram secrets may be absent: the relay then reports misconfigured
	// on send and offline on presence instead of failing startup.
	return nil
}

// TelegramConfigured returns true when both relay secrets are present.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare integers are treated as seconds.
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
