package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vigliag/vijournalbot/internal/model"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken    string
	Password         string
	DatabaseURL      string
	DebugSQL         bool
	ReminderInterval time.Duration
	RecapTime        model.TimeOfDay
	DefaultReminder  model.TimeOfDay
	HTTPAddr         string
	SMTP             SMTP
}

// SMTP holds the credentials of the relay used for weekly recaps.
type SMTP struct {
	Server   string
	Port     int
	Login    string
	Password string
}

// Enabled reports whether recap mails can be delivered.
func (s SMTP) Enabled() bool {
	return s.Server != ""
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory, if any, seeds unset variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: env("VIJOURNALBOT_TOKEN"),
		Password:      env("VIJOURNALBOT_PASSWORD"),
		DatabaseURL:   env("DATABASE_URL"),
		HTTPAddr:      env("HTTP_ADDR"),
		DebugSQL:      strings.EqualFold(env("DEBUG_SQL"), "true"),
		SMTP: SMTP{
			Server:   env("VIJOURNALBOT_SMTP_SERVER"),
			Login:    env("VIJOURNALBOT_SMTP_LOGIN"),
			Password: env("VIJOURNALBOT_SMTP_PASSWORD"),
			Port:     587,
		},
		ReminderInterval: 10 * time.Minute,
		RecapTime:        model.NewTimeOfDay(23, 50),
		DefaultReminder:  model.NewTimeOfDay(20, 30),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "./data/database.sqlite"
	}

	if raw := env("VIJOURNALBOT_SMTP_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid VIJOURNALBOT_SMTP_PORT %q", raw)
		}
		cfg.SMTP.Port = port
	}

	if raw := env("REMINDER_INTERVAL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return cfg, fmt.Errorf("invalid REMINDER_INTERVAL_MINUTES %q", raw)
		}
		cfg.ReminderInterval = time.Duration(minutes) * time.Minute
	}

	var err error
	if cfg.RecapTime, err = timeOfDay("RECAP_TIME", cfg.RecapTime); err != nil {
		return cfg, err
	}
	if cfg.DefaultReminder, err = timeOfDay("DEFAULT_REMINDER_TIME", cfg.DefaultReminder); err != nil {
		return cfg, err
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("VIJOURNALBOT_TOKEN is required")
	}
	if cfg.Password == "" {
		return cfg, fmt.Errorf("VIJOURNALBOT_PASSWORD is required")
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func timeOfDay(key string, def model.TimeOfDay) (model.TimeOfDay, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	t, err := model.ParseTimeOfDay(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
