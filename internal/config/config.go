// Package config defines application configuration for the concierge service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/zavatech/agent-concierge/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"agent-concierge"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Server configuration
	Port         int           `env:"PORT" yaml:"port" default:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" yaml:"write_timeout" default:"30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// External agent platform configuration
	Platform PlatformConfig `yaml:"platform,inline"`

	// Handoff router configuration
	Router RouterConfig `yaml:"router,inline"`

	// Platform agent identifiers per agent type
	Agents AgentsConfig `yaml:"agents,inline"`

	// Product search index configuration
	Search SearchConfig `yaml:"search,inline"`

	// Image generation configuration
	Images ImagesConfig `yaml:"images,inline"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,inline"`

	// Security configuration
	Security SecurityConfig `yaml:"security,inline"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"http://localhost:3000,http://localhost:8080"`
}

// Validate validates the configuration and returns an aggregated error if invalid
func (c *AppConfig) Validate() error {
	var result error

	validLevels := []string{"debug", "info", "warn", "error"}
	level := strings.ToLower(c.Logging.Level)
	valid := false
	for _, validLevel := range validLevels {
		if level == validLevel {
			valid = true
			break
		}
	}
	if !valid {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", c.Logging.Format))
	}

	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	if err := c.Platform.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Router.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Agents.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Search.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(strings.ToLower(c.Logging.Level))
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("port", c.Port),
		logger.StringField("platform_endpoint", c.Platform.Endpoint),
		logger.StringField("router_deployment", c.Router.Deployment),
		logger.StringField("search_index", c.Search.Index),
		logger.StringField("image_deployment", c.Images.Deployment),
		logger.StringField("log_level", c.Logging.Level),
		logger.StringField("log_format", c.Logging.Format),
	)
}
