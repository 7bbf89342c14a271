package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig reads RATE_LIMIT_* environment variables. Unparseable values fall back to defaults.
func LoadConfig() *Config {
	if !envOr("RATE_LIMIT_ENABLED", strconv.ParseBool, true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr("RATE_LIMIT_DEFAULT_LIMIT", strconv.Atoi, 600),
		DefaultWindow:   envOr("RATE_LIMIT_DEFAULT_WINDOW", time.ParseDuration, time.Minute),
		CleanupInterval: envOr("RATE_LIMIT_CLEANUP_INTERVAL", time.ParseDuration, 5*time.Minute),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(
			envOr("RATE_LIMIT_PDF_LIMIT", strconv.Atoi, 10),
			envOr("RATE_LIMIT_UPLOAD_LIMIT", strconv.Atoi, 30),
		),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
// pdfPerMinute and uploadsPerMinute bound the two expensive operations.
func DefaultEndpointConfigs(pdfPerMinute, uploadsPerMinute int) []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: headless browser renders (strictest limits)
		{Path: "/resume.pdf", Method: "GET", Limit: pdfPerMinute, Window: time.Minute, Burst: max(1, pdfPerMinute/5)},

		// Tier 2: uploads, which buffer the whole image in memory
		{Path: "/form/photo", Method: "POST", Limit: uploadsPerMinute, Window: time.Minute, Burst: max(1, uploadsPerMinute/3)},
		{Path: "/form", Method: "POST", Limit: uploadsPerMinute * 4, Window: time.Minute, Burst: uploadsPerMinute},

		// Tier 3: field edits and reads - handled by default limit
		// Tier 4: health check (unlimited) - handled by special case in matcher
	}
}

// envOr parses the variable named key, returning fallback when it is unset or malformed.
func envOr[T any](key string, parse func(string) (T, error), fallback T) T {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := parse(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for ip := range strings.SplitSeq(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
