package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/wonderhelper/internal/model"
)

var validate = validator.New()

// Planner holds all configuration for the wonder trade planner.
type Planner struct {
	// Database
	Database DatabaseConfig `yaml:"database"`

	// Mode used for towns with no stored selection (name or number)
	DefaultMode string `yaml:"default_mode" validate:"required"`

	// Sink retry: the trade window may not be ready right away
	ApplyAttempts int           `yaml:"apply_attempts" validate:"gte=0,lte=100"`
	ApplyDelay    time.Duration `yaml:"apply_delay" validate:"gte=0"` // between attempts (default: 120ms)

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname" validate:"required"`
	SSLMode  string `yaml:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultPlanner returns Planner config with sensible defaults.
func DefaultPlanner() Planner {
	return Planner{
		DefaultMode:   model.ModeEven.String(),
		ApplyAttempts: 6,
		ApplyDelay:    120 * time.Millisecond,
		LogLevel:      "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "wonder",
			Password: "wonder",
			DBName:   "wonder",
			SSLMode:  "disable",
		},
	}
}

// Mode returns the decoded default mode. Unrecognized values yield model.ModeEven.
func (p Planner) Mode() model.Mode {
	return model.ParseMode(p.DefaultMode)
}

// Level returns the slog level for LogLevel.
func (p Planner) Level() slog.Level {
	switch strings.ToLower(p.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks field constraints and that DefaultMode names a real mode.
func (p Planner) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if _, err := model.LookupMode(p.DefaultMode); err != nil {
		return fmt.Errorf("validating config: default_mode: %w", err)
	}
	return nil
}

// LoadPlanner loads planner config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadPlanner(path string) (Planner, error) {
	cfg := DefaultPlanner()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}
