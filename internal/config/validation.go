package config

import (
	"net/url"
	"strings"

	perrors "github.com/jpdna/utils/internal/errors"
)

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.Transport.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return perrors.ValidationFailed("transport.url", "must be an absolute URL such as nats://host:4222")
	}
	if strings.ContainsAny(cfg.Transport.Subject, " \t*>") {
		return perrors.ValidationFailed("transport.subject", "must be a literal NATS subject without wildcards")
	}
	switch cfg.Transport.Retry.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return perrors.ValidationFailed("transport.retry.backoff", "must be fixed, linear or exponential")
	}
	if cfg.Flush.Interval < 0 {
		return perrors.ValidationFailed("flush.interval", "must not be negative")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return perrors.ConfigRequired("metrics.listen")
	}
	if cfg.Simulate.Depth > 32 {
		return perrors.ValidationFailed("simulate.depth", "must be at most 32")
	}
	return nil
}
