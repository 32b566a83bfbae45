// Package config loads the server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	Protocol string // http or https
	CertFile string
	KeyFile  string

	DBFile         string
	StoreBackend   string // json, sqlite or memory
	AutoCreate     bool
	MaxBodyBytes   int64
	AllowedOrigins []string

	MetricsAddr string // empty disables the admin listener
	LogLevel    string
	LogFormat   string // text or json
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           "1721",
		Protocol:       "http",
		DBFile:         "./db.json",
		StoreBackend:   "json",
		AllowedOrigins: []string{"*"},
		MetricsAddr:    ":9090",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads a .env file if present, then the environment, and validates
// the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	def := Default()
	autoCreate, err := getEnvBoolOrDefault("AUTO_CREATE_COLLECTIONS", def.AutoCreate)
	if err != nil {
		return Config{}, err
	}
	maxBodyBytes, err := getEnvInt64OrDefault("MAX_BODY_BYTES", def.MaxBodyBytes)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Host:           getEnvOrDefault("HOST", def.Host),
		Port:           getEnvOrDefault("PORT", def.Port),
		Protocol:       strings.ToLower(getEnvOrDefault("PROTOCOL", def.Protocol)),
		CertFile:       os.Getenv("TLS_CERT_FILE"),
		KeyFile:        os.Getenv("TLS_KEY_FILE"),
		DBFile:         getEnvOrDefault("DB_FILE", def.DBFile),
		StoreBackend:   getEnvOrDefault("STORE_BACKEND", def.StoreBackend),
		AutoCreate:     autoCreate,
		MaxBodyBytes:   maxBodyBytes,
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "*")),
		MetricsAddr:    getEnvOrDefault("METRICS_ADDR", def.MetricsAddr),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", def.LogLevel),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", def.LogFormat),
	}
	// METRICS_ADDR set to the empty string disables the admin listener.
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok && v == "" {
		cfg.MetricsAddr = ""
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings are consistent.
func (c Config) Validate() error {
	switch c.Protocol {
	case "http":
	case "https":
		if c.CertFile == "" || c.KeyFile == "" {
			return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required for https")
		}
	default:
		return fmt.Errorf("unknown protocol: %s (must be http or https)", c.Protocol)
	}

	switch c.StoreBackend {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend: %s (must be json, sqlite or memory)", c.StoreBackend)
	}

	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be >= 0, got %d", c.MaxBodyBytes)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format: %s (must be text or json)", c.LogFormat)
	}
	return nil
}

// Addr is the host:port the store listener binds to.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, value)
	}
	return i, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be true or false", key, value)
	}
	return b, nil
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
