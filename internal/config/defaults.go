package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values used when the configuration leaves a field empty.
const (
	DefaultNATSURL       = "nats://127.0.0.1:4222"
	DefaultSubject       = "pathtimer.partials"
	DefaultTimeout       = 5 * time.Second
	DefaultFlushInterval = 10 * time.Second
	DefaultMetricsListen = ":9108"
	DefaultNamespace     = "pathtimer"
	DefaultRetryInitial  = 200 * time.Millisecond
	DefaultRetryMax      = 5 * time.Second
	DefaultMaxRetries    = 3
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ProducerDefaultApplier assigns a producer identity.
type ProducerDefaultApplier struct{}

func (ProducerDefaultApplier) Domain() string { return "producer" }

func (ProducerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Producer.ID == "" {
		cfg.Producer.ID = uuid.NewString()
	}
	return nil
}

// TransportDefaultApplier handles NATS connection defaults.
type TransportDefaultApplier struct{}

func (TransportDefaultApplier) Domain() string { return "transport" }

func (TransportDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Transport.URL == "" {
		cfg.Transport.URL = DefaultNATSURL
	}
	if cfg.Transport.Subject == "" {
		cfg.Transport.Subject = DefaultSubject
	}
	if cfg.Transport.Timeout <= 0 {
		cfg.Transport.Timeout = DefaultTimeout
	}
	r := &cfg.Transport.Retry
	if r.Backoff == "" {
		r.Backoff = RetryBackoffExponential
	}
	if r.Initial <= 0 {
		r.Initial = DefaultRetryInitial
	}
	if r.Max <= 0 {
		r.Max = DefaultRetryMax
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	if cfg.Flush.Interval == 0 {
		cfg.Flush.Interval = DefaultFlushInterval
	}
	return nil
}

// MetricsDefaultApplier handles Prometheus endpoint defaults.
type MetricsDefaultApplier struct{}

func (MetricsDefaultApplier) Domain() string { return "metrics" }

func (MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultNamespace
	}
	return nil
}

// SimulateDefaultApplier sizes the synthetic workload.
type SimulateDefaultApplier struct{}

func (SimulateDefaultApplier) Domain() string { return "simulate" }

func (SimulateDefaultApplier) ApplyDefaults(cfg *Config) error {
	s := &cfg.Simulate
	if s.Producers <= 0 {
		s.Producers = 8
	}
	if s.Records <= 0 {
		s.Records = 1000
	}
	if s.Depth <= 0 {
		s.Depth = 3
	}
	if s.FanOut <= 0 {
		s.FanOut = 3
	}
	if s.Seed == 0 {
		s.Seed = 1
	}
	return nil
}

// LoggingDefaultApplier normalizes logging settings.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// defaultAppliers run in order.
var defaultAppliers = []DefaultApplier{
	ProducerDefaultApplier{},
	TransportDefaultApplier{},
	MetricsDefaultApplier{},
	SimulateDefaultApplier{},
	LoggingDefaultApplier{},
}

// ApplyDefaults fills every unset field of cfg.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
