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
)

// Notification channels.
const (
	ChannelLog      = "log"
	ChannelTelegram = "telegram"
	ChannelNone     = "none"
)

// Config keeps runtime settings for the server.
type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	TokenTTL        time.Duration
	ShutdownTimeout time.Duration
	Notify          NotifyConfig
	Log             LogConfig
}

// NotifyConfig selects where reminder alerts are delivered.
type NotifyConfig struct {
	Channel        string
	TelegramToken  string
	TelegramChatID int64
}

type LogConfig struct {
	Level      string
	File       string // empty disables the file sink; LOG_FILE=off
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory. Variables already set win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:            env("PORT", "3000"),
		DatabaseURL:     env("DATABASE_URL", "taskmanager.db"),
		JWTSecret:       env("JWT_SECRET", ""),
		TokenTTL:        parseDuration(env("TOKEN_TTL", ""), time.Hour),
		ShutdownTimeout: parseDuration(env("SHUTDOWN_TIMEOUT", ""), 30*time.Second),
		Notify: NotifyConfig{
			Channel:       strings.ToLower(env("NOTIFY_CHANNEL", ChannelLog)),
			TelegramToken: env("TELEGRAM_TOKEN", ""),
		},
		Log: LogConfig{
			Level:      strings.ToLower(env("LOG_LEVEL", "info")),
			File:       env("LOG_FILE", "logs/taskmanager.log"),
			MaxSizeMB:  parseInt(env("LOG_MAX_SIZE_MB", ""), 100),
			MaxBackups: parseInt(env("LOG_MAX_BACKUPS", ""), 5),
			MaxAgeDays: parseInt(env("LOG_MAX_AGE_DAYS", ""), 30),
		},
	}

	if raw := env("TELEGRAM_CHAT_ID", ""); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notify.TelegramChatID = chatID
	}

	if strings.EqualFold(cfg.Log.File, "off") {
		cfg.Log.File = ""
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.Notify.Channel {
	case ChannelLog, ChannelNone:
	case ChannelTelegram:
		if cfg.Notify.TelegramToken == "" {
			return cfg, fmt.Errorf("TELEGRAM_TOKEN is required for NOTIFY_CHANNEL=telegram")
		}
	default:
		return cfg, fmt.Errorf("unknown NOTIFY_CHANNEL %q", cfg.Notify.Channel)
	}

	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
