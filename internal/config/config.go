// Package config loads process configuration for the update sync server:
// the metadata source location, the JSON server-configuration document
// passed through in GetConfig replies, and the optional content store.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Content ContentConfig `mapstructure:"content"`

	// Properties is the freeform JSON document passed verbatim into
	// GetConfig / GetConfig2 replies. It is opaque to the server.
	Properties json.RawMessage `mapstructure:"-"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// LogConfig holds logging-related configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds metrics-related configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CatalogConfig points at the metadata source backing the catalog.
type CatalogConfig struct {
	// MetadataSourcePath is a filesystem path to the JSON catalog
	// document read by internal/catalog.LoadMemorySource.
	MetadataSourcePath string `mapstructure:"metadata_source_path"`
}

// ContentConfig holds optional content-store wiring. ContentDir and
// ContentHTTPRoot must either both be empty or both be set.
type ContentConfig struct {
	// ContentDir is a filesystem directory serving as the content store.
	// Empty means no content store is configured; upstream URLs are
	// used verbatim instead.
	ContentDir string `mapstructure:"content_dir"`

	// ContentHTTPRoot is the externally reachable base URL updates are
	// told to fetch file payloads from, e.g. "http://host:8530".
	ContentHTTPRoot string `mapstructure:"content_http_root"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath, propertiesPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("json")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	props, err := loadProperties(propertiesPath)
	if err != nil {
		return nil, err
	}
	cfg.Properties = props

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadProperties reads the server-configuration JSON document that is
// echoed back verbatim in Config.Properties replies. A missing path
// yields an empty JSON object rather than an error.
func loadProperties(path string) (json.RawMessage, error) {
	if path == "" {
		return json.RawMessage(`{}`), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server properties: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("server properties file %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("server.port", 8530)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.graceful_shutdown_timeout", "30s")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("catalog.metadata_source_path", "")

	viper.SetDefault("content.content_dir", "")
	viper.SetDefault("content.content_http_root", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Log.Level == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	// The content-http-root must be present iff a content source is
	// configured (§6): both empty is valid (upstream URLs only), both
	// set is valid, but one without the other is a misconfiguration.
	hasDir := c.Content.ContentDir != ""
	hasRoot := c.Content.ContentHTTPRoot != ""
	if hasDir != hasRoot {
		return fmt.Errorf("content.content_dir and content.content_http_root must both be set or both be empty")
	}

	return nil
}

// ContentStoreConfigured reports whether a content store is wired up.
func (c *Config) ContentStoreConfigured() bool {
	return c.Content.ContentDir != "" && c.Content.ContentHTTPRoot != ""
}
