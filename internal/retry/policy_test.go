package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdna/utils/internal/config"
	perrors "github.com/jpdna/utils/internal/errors"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 200*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 3, p.MaxRetries)
	require.NoError(t, p.Validate())
}

// TestFromConfigOverrides checks override precedence and clamping when initial > max.
func TestFromConfigOverrides(t *testing.T) {
	p := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 5 * time.Second, Max: 2 * time.Second, MaxRetries: 5})
	assert.Equal(t, 2*time.Second, p.Initial, "initial clamped to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	assert.Equal(t, 0, FromConfig(config.RetryConfig{MaxRetries: -1}).MaxRetries)
	assert.Equal(t, config.RetryBackoffExponential, FromConfig(config.RetryConfig{Backoff: "weird"}).Mode)
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name string
		mode config.RetryBackoffMode
		init time.Duration
		max  time.Duration
		want []time.Duration // attempts 1..n
	}{
		{"fixed", config.RetryBackoffFixed, 100 * ms, 500 * ms, []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear", config.RetryBackoffLinear, 100 * ms, 250 * ms, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", config.RetryBackoffExponential, 50 * ms, 160 * ms, []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromConfig(config.RetryConfig{Backoff: tt.mode, Initial: tt.init, Max: tt.max, MaxRetries: 5})
			for i, want := range tt.want {
				assert.Equal(t, want, p.Delay(i+1), "attempt %d", i+1)
			}
			assert.Zero(t, p.Delay(0))
			assert.Zero(t, p.Delay(-1))
		})
	}

	huge := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffExponential, Initial: time.Second, Max: time.Minute})
	assert.Equal(t, time.Minute, huge.Delay(80))
}

// TestValidate covers validation error paths.
func TestValidate(t *testing.T) {
	require.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	require.NoError(t, NoRetry().Validate())
}

func TestDo(t *testing.T) {
	fast := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3})
	transient := perrors.WrapRetryable(errors.New("flaky"), perrors.CategoryTransport, perrors.SeverityError, "publish failed")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), func(context.Context) error {
			calls++
			return transient
		})
		require.ErrorIs(t, err, transient)
		assert.Equal(t, 4, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		permanent := errors.New("bad payload")
		err := fast.Do(context.Background(), func(context.Context) error {
			calls++
			return permanent
		})
		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops waiting when cancelled", func(t *testing.T) {
		slow := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 3})
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := slow.Do(ctx, func(context.Context) error {
			calls++
			cancel()
			return transient
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
