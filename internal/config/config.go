package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// AppConfig holds the process configuration, read from the environment.
type AppConfig struct {
	Env             string   `env:"MARKDESK_ENV" envDefault:"development"`
	Port            int      `env:"PORT" envDefault:"8000"`
	SettingsPath    string   `env:"MARKDESK_CONFIG" envDefault:"config.json"`
	AllowedOrigins  []string `env:"MARKDESK_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN       string   `env:"SENTRY_DSN"`
	RateLimitRPS    float64  `env:"MARKDESK_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst  int      `env:"MARKDESK_RATE_LIMIT_BURST" envDefault:"100"`
	MaxRequestBytes int64    `env:"MARKDESK_MAX_REQUEST_BYTES" envDefault:"10485760"`
}

// Common configuration errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError contains details about a configuration validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d config validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Validate checks the configuration for errors
func (c *AppConfig) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ValidationError{Field: "port", Message: fmt.Sprintf("invalid port %d, must be 1-65535", c.Port)})
	}

	switch c.Env {
	case "development", "production", "test":
	default:
		errs = append(errs, ValidationError{Field: "env", Message: fmt.Sprintf("unknown environment %q", c.Env)})
	}

	if strings.TrimSpace(c.SettingsPath) == "" {
		errs = append(errs, ValidationError{Field: "settingsPath", Message: "path is required"})
	} else if info, err := os.Stat(c.SettingsPath); err == nil && info.IsDir() {
		errs = append(errs, ValidationError{Field: "settingsPath", Message: "path exists but is a directory"})
	}

	if len(c.AllowedOrigins) == 0 {
		log.Warn("No allowed origins configured - browser clients will be rejected by CORS")
	}

	if c.RateLimitRPS < 0 {
		errs = append(errs, ValidationError{Field: "rateLimitRps", Message: "must not be negative"})
	}
	if c.RateLimitBurst < 0 {
		errs = append(errs, ValidationError{Field: "rateLimitBurst", Message: "must not be negative"})
	}
	if c.MaxRequestBytes <= 0 {
		errs = append(errs, ValidationError{Field: "maxRequestBytes", Message: "must be positive"})
	}

	return errs
}

// IsProduction reports whether the server runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the process configuration from the environment and resolves the settings path
// against cwd when it is relative.
func Load(cwd string) (*AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.SettingsPath != "" && !filepath.IsAbs(cfg.SettingsPath) {
		cfg.SettingsPath = filepath.Join(cwd, cfg.SettingsPath)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, errs.Error())
	}

	return &cfg, nil
}
