package x_db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

//---------------------
// Database Config
//---------------------

// Type names a supported SQL dialect.
type Type string

const (
	DbSqlite   Type = "sqlite"
	DbPostgres Type = "postgres"
)

// Config contains the parameters for opening the tree database.
type Config struct {
	Type          Type          `mapstructure:"type" json:"type"`                     // sqlite or postgres
	DSN           string        `mapstructure:"dsn" json:"dsn"`                       // driver specific DSN
	LogLevel      string        `mapstructure:"log_level" json:"log_level"`           // silent, error, warn, info
	SlowThreshold time.Duration `mapstructure:"slow_threshold" json:"slow_threshold"` // slow query warning
	MaxOpenConns  int           `mapstructure:"max_open_conns" json:"max_open_conns"`
}

var defaultCfg = Config{
	Type:          DbSqlite,
	DSN:           "file:nested.db?_foreign_keys=on&_busy_timeout=5000",
	LogLevel:      "warn",
	SlowThreshold: 200 * time.Millisecond,
}

// DefaultConfig returns the built-in sqlite configuration.
func DefaultConfig() Config {
	return defaultCfg
}

// Normalize fills empty fields with defaults and validates the dialect.
func (c *Config) Normalize() error {
	if c.Type == "" {
		c.Type = defaultCfg.Type
	}
	c.Type = Type(strings.ToLower(string(c.Type)))
	if c.DSN == "" {
		if c.Type != DbSqlite {
			return fmt.Errorf("x_db: dsn is required for %s", c.Type)
		}
		c.DSN = defaultCfg.DSN
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultCfg.LogLevel
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = defaultCfg.SlowThreshold
	}
	switch c.Type {
	case DbSqlite, DbPostgres:
		return nil
	default:
		return fmt.Errorf("x_db: unsupported database type: %s", c.Type)
	}
}

// gormLevel maps the textual log level onto gorm's logger levels.
func gormLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}
