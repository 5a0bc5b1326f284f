package config

import (
	"fmt"
	"net/smtp"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/helpers"
	"github.com/gatherly/api/internal/models"
	"github.com/gatherly/api/internal/notifications"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

// NotificationConfig collects the dispatcher and sweep settings.
type NotificationConfig struct {
	Dispatcher    notifications.Config
	SweepInterval time.Duration
}

func LoadNotificationConfig() NotificationConfig {
	cfg := notifications.DefaultConfig()
	cfg.Workers = envInt("NOTIF_WORKERS", cfg.Workers)
	cfg.MaxAttempts = envInt("NOTIF_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.PollInterval = envDuration("NOTIF_POLL_INTERVAL", cfg.PollInterval)
	cfg.RetryBackoff = envDuration("NOTIF_RETRY_BACKOFF", cfg.RetryBackoff)
	cfg.LeaseTTL = envDuration("NOTIF_LEASE_TTL", cfg.LeaseTTL)

	return NotificationConfig{
		Dispatcher:    cfg,
		SweepInterval: envDuration("SWEEP_INTERVAL", 12*time.Hour),
	}
}

// InitSender picks the delivery backend: SMTP when configured, otherwise
// notifications are written to the log.
func InitSender() notifications.Sender {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return &notifications.LogSender{Log: log.Logger}
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	var auth smtp.Auth
	if user := os.Getenv("SMTP_USER"); user != "" {
		auth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASSWORD"), host)
	}

	return &notifications.SMTPSender{
		Addr: host + ":" + port,
		From: os.Getenv("SMTP_FROM"),
		Auth: auth,
	}
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Event{},
		&models.RSVP{},
		&models.Review{},
		&models.NotificationJob{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := helpers.StringToInt(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
