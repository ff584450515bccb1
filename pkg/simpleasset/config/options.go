package config

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithStorage sets the backend of one bucket family.
func WithStorage(family string, sc StorageConfig) Option {
	return func(c *ServerConfig) error {
		if err := sc.validate(); err != nil {
			return err
		}
		switch family {
		case simpleasset.FamilyAIFiles:
			c.AIFilesStorage = sc
		case simpleasset.FamilyFiles:
			c.FilesStorage = sc
		default:
			return fmt.Errorf("unknown bucket family: %s", family)
		}
		return nil
	}
}

// WithFilesystemStorage stores both families under baseDir/<family>.
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		for _, family := range simpleasset.Families() {
			sc := defaultStorage()
			sc.Type = "fs"
			sc.BaseDir = baseDir + "/" + family
			if err := WithStorage(family, sc)(c); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithDevTenant maps every principal to tenantID.
func WithDevTenant(tenantID uuid.UUID) Option {
	return func(c *ServerConfig) error {
		c.DevTenantID = tenantID.String()
		return nil
	}
}

// WithEvents selects the event driver ("gochannel", "nats" or "none").
func WithEvents(driver, natsURL string) Option {
	return func(c *ServerConfig) error {
		c.EventDriver = driver
		c.NATSURL = natsURL
		return nil
	}
}

// WithBreaker toggles the storage circuit breaker.
func WithBreaker(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.BreakerEnabled = enabled
		return nil
	}
}
