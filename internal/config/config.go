package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	perrors "github.com/jpdna/utils/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Producer  ProducerConfig  `yaml:"producer"`
	Transport TransportConfig `yaml:"transport"`
	Flush     FlushConfig     `yaml:"flush"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Simulate  SimulateConfig  `yaml:"simulate"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProducerConfig identifies this process when it publishes partial registries.
type ProducerConfig struct {
	ID string `yaml:"id,omitempty"` // defaults to a random UUID
}

// TransportConfig configures the NATS subject partial registries travel on.
type TransportConfig struct {
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// FlushConfig controls how often a producer publishes its registry.
type FlushConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig configures the Prometheus endpoint of the collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Namespace string `yaml:"namespace"`
}

// SimulateConfig drives the synthetic workload of `simulate` and `produce`.
type SimulateConfig struct {
	Producers int   `yaml:"producers"`
	Records   int   `yaml:"records"` // per producer
	Depth     int   `yaml:"depth"`
	FanOut    int   `yaml:"fan_out"`
	Seed      int64 `yaml:"seed"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load loads configuration from the specified file. A missing file is an
// error; use Default for a file-less setup.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, perrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, perrors.Wrap(err, perrors.CategoryConfig, perrors.SeverityFatal, "failed to unmarshal config").
			WithContext("path", configPath)
	}

	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configPath when it exists and falls back to Default
// otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		loadEnvFile()
		cfg := Default()
		return cfg, Validate(cfg)
	}
	return Load(configPath)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = ApplyDefaults(cfg)
	return cfg
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
