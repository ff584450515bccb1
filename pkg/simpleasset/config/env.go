package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads the environment into the configuration using the struct
// tags on ServerConfig. Unset variables take their env-default values.
//
// Common variables:
//
//	DATABASE_TYPE, DATABASE_URL, DB_SCHEMA
//	AI_FILES_STORAGE_TYPE, AI_FILES_STORAGE_BUCKET, AI_FILES_STORAGE_ENDPOINT, ...
//	FILES_STORAGE_TYPE, FILES_STORAGE_BASE_DIR, ...
//	JWT_SECRET, ADMIN_API_KEY_SHA256
//	PURGE_CRON, PURGE_RETENTION, LOG_FILE, EVENT_DRIVER, NATS_URL
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// Usage returns a description of every supported environment variable.
func Usage() string {
	var c ServerConfig
	text, err := cleanenv.GetDescription(&c, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
