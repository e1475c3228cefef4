// Package config provides layered configuration loading for the catalog
// checker: defaults, then an optional YAML file, then environment variables.
// Command-line flags are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultTimeout bounds a single probe.
const defaultTimeout = 10 * time.Second

// Config holds the complete application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Probe   ProbeConfig   `yaml:"probe"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// CatalogConfig selects the provider records to check.
type CatalogConfig struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

// ProbeConfig holds connection settings.
type ProbeConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	CAFile    string        `yaml:"ca_file"`
	LocalName string        `yaml:"local_name"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Quiet   bool `yaml:"quiet"`
	NoColor bool `yaml:"no_color"`

	// ExitCode makes the process exit with the number of failed probes
	// instead of 0 when the run completes.
	ExitCode bool `yaml:"exit_code"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog path must not be empty")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.Probe.Timeout)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Catalog.Path = "_providers"
	c.Probe.Timeout = defaultTimeout
	c.Probe.LocalName = "localhost"
	c.Logging.Level = "warn"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDERS_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("PROVIDER_NAME"); v != "" {
		c.Catalog.Name = v
	}

	if v := os.Getenv("PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Probe.Timeout = d
		}
	}
	if v := os.Getenv("PROBE_CA_FILE"); v != "" {
		c.Probe.CAFile = v
	}
	if v := os.Getenv("PROBE_LOCAL_NAME"); v != "" {
		c.Probe.LocalName = v
	}

	if v := os.Getenv("PROBE_QUIET"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Output.Quiet = b
		}
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		c.Output.NoColor = true
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
