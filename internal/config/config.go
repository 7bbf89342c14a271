// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by MergeWithDefaults(Defaults()).
const (
	DefaultPort          = 8080
	DefaultMaxPhotoBytes = 5 << 20
	DefaultSessionTTL    = "2h"
	DefaultPDFTimeout    = "60s"
	DefaultSessionCookie = "resume_session"
)

// Config represents the server configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or environment overrides.
type Config struct {
	// Server
	Port          int    `json:"port,omitempty" yaml:"port,omitempty"`                     // HTTP listen port
	SessionTTL    string `json:"session_ttl,omitempty" yaml:"session_ttl,omitempty"`       // Idle session lifetime (Go duration)
	SessionCookie string `json:"session_cookie,omitempty" yaml:"session_cookie,omitempty"` // Session cookie name

	// Photos
	MaxPhotoBytes int64 `json:"max_photo_bytes,omitempty" yaml:"max_photo_bytes,omitempty"` // Upload size limit

	// Exports
	ChromePath    string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`       // Chrome/Chromium binary for PDF export
	PDFTimeout    string `json:"pdf_timeout,omitempty" yaml:"pdf_timeout,omitempty"`       // Per-PDF render timeout (Go duration)
	LaTeXTemplate string `json:"latex_template,omitempty" yaml:"latex_template,omitempty"` // Custom LaTeX template path

	// Behavior
	DisableRateLimit bool `json:"disable_rate_limit,omitempty" yaml:"disable_rate_limit,omitempty"` // Turn off the rate limiter
	Verbose          bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`                       // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:          DefaultPort,
		SessionTTL:    DefaultSessionTTL,
		SessionCookie: DefaultSessionCookie,
		MaxPhotoBytes: DefaultMaxPhotoBytes,
		PDFTimeout:    DefaultPDFTimeout,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension
// (.yaml/.yml for YAML, anything else for JSON).
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load builds the effective configuration: .env file (if present), then the config
// file (if path is set), then environment overrides, then defaults. The result is validated.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Defaults())

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	c.ChromePath = getEnvString("CHROME_PATH", c.ChromePath)
	c.MaxPhotoBytes = int64(getEnvInt("RESUME_MAX_PHOTO_BYTES", int(c.MaxPhotoBytes)))
	c.SessionTTL = getEnvString("RESUME_SESSION_TTL", c.SessionTTL)
	c.SessionCookie = getEnvString("RESUME_SESSION_COOKIE", c.SessionCookie)
	c.PDFTimeout = getEnvString("RESUME_PDF_TIMEOUT", c.PDFTimeout)
	c.LaTeXTemplate = getEnvString("RESUME_LATEX_TEMPLATE", c.LaTeXTemplate)
	c.DisableRateLimit = !getEnvBool("RATE_LIMIT_ENABLED", !c.DisableRateLimit)
	c.Verbose = getEnvBool("VERBOSE", c.Verbose)
}

// Validate checks that the configuration has valid values.
// Empty fields are accepted; they are filled by MergeWithDefaults.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.MaxPhotoBytes < 0 {
		return fmt.Errorf("config error: 'max_photo_bytes' must be non-negative")
	}

	for name, value := range map[string]string{"session_ttl": c.SessionTTL, "pdf_timeout": c.PDFTimeout} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config error: '%s' is not a duration: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: '%s' must be positive", name)
		}
	}

	if strings.ContainsAny(c.SessionCookie, " ;,=\t") {
		return fmt.Errorf("config error: 'session_cookie' is not a valid cookie name")
	}

	if c.LaTeXTemplate != "" {
		if _, err := os.Stat(c.LaTeXTemplate); os.IsNotExist(err) {
			return fmt.Errorf("config error: template file not found: %s", c.LaTeXTemplate)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.SessionTTL == "" {
		result.SessionTTL = defaults.SessionTTL
	}
	if result.SessionCookie == "" {
		result.SessionCookie = defaults.SessionCookie
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.PDFTimeout == "" {
		result.PDFTimeout = defaults.PDFTimeout
	}
	if result.LaTeXTemplate == "" {
		result.LaTeXTemplate = defaults.LaTeXTemplate
	}

	// Numeric fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxPhotoBytes == 0 {
		result.MaxPhotoBytes = defaults.MaxPhotoBytes
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// SessionTTLDuration returns SessionTTL parsed, or the default when empty or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	return parseDuration(c.SessionTTL, DefaultSessionTTL)
}

// PDFTimeoutDuration returns PDFTimeout parsed, or the default when empty or invalid.
func (c *Config) PDFTimeoutDuration() time.Duration {
	return parseDuration(c.PDFTimeout, DefaultPDFTimeout)
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
