// Package config provides configuration loading and validation for the
// sosistore command.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	sosi "github.com/tingold/orb-sosi"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SOSISTORE_"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	CRS     []CRSConfig   `yaml:"crs"`
	Export  ExportConfig  `yaml:"export"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DataConfig selects the files served.
type DataConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"` // reload metadata when files change
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CRSConfig adds a coordinate system to the built-in registry.
type CRSConfig struct {
	Code        int    `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// ExportConfig configures FlatGeobuf output.
type ExportConfig struct {
	IncludeIndex *bool `yaml:"include_index"`
}

// Index reports whether exports carry a spatial index. Defaults to true.
func (e ExportConfig) Index() bool {
	return e.IncludeIndex == nil || *e.IncludeIndex
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML bytes. Environment variables in the
// document are expanded before parsing.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadWithFallback loads path when it exists, otherwise builds the
// configuration from defaults and environment variables alone.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvPrefix + "SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(EnvPrefix + "SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv(EnvPrefix + "DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv(EnvPrefix + "DATA_WATCH"); v != "" {
		cfg.Data.Watch = parseBool(v)
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv(EnvPrefix + "EXPORT_INCLUDE_INDEX"); v != "" {
		b := parseBool(v)
		cfg.Export.IncludeIndex = &b
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "."
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if _, err := zap.ParseAtomicLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	for i, c := range cfg.CRS {
		if c.Code <= 0 {
			return fmt.Errorf("crs[%d].code must be positive", i)
		}
		if c.Name == "" {
			return fmt.Errorf("crs[%d].name is required", i)
		}
	}
	return nil
}

// Registry returns the built-in coordinate system registry extended with
// the configured entries.
func (c *Config) Registry() *sosi.Registry {
	r := sosi.DefaultRegistry()
	for _, e := range c.CRS {
		r.Register(sosi.CRS{Code: e.Code, Name: e.Name, Description: e.Description})
	}
	return r
}

// NewLogger builds a zap logger from the logging section.
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = l.Format
	if l.Format == "console" {
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}
