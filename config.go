package main

import (
	"fmt"
	"os"
	"time"
)

const JWTSecretEnv = "JWT_SECRET"

// Config holds application configuration, loaded from the environment.
type Config struct {
	Port       string
	DBConn     string
	JWTSecret  string
	StorageDir string

	SweepSchedule string
	SweepGrace    time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("APP_PORT", "8080"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5432 user=postgres password=postgres dbname=photoalbum sslmode=disable"),
		JWTSecret:     os.Getenv(JWTSecretEnv),
		StorageDir:    getEnv("STORAGE_DIR", "./saved_images"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@hourly"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SenderEmail:   os.Getenv("SENDER_EMAIL"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s is required", JWTSecretEnv)
	}

	grace, err := time.ParseDuration(getEnv("SWEEP_GRACE", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_GRACE: %w", err)
	}
	cfg.SweepGrace = grace

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
