package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
	"github.com/jpdna/utils/internal/transport"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{}
	global := &Global{Out: &out}
	parser, err := kong.New(cli,
		kong.Name("pathtimer"),
		kong.Vars{"version": "test"},
		kong.Bind(global, cli),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run()
	return out.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "pathtimer.yaml")
}

func TestSimulate_Table(t *testing.T) {
	out, err := run(t, "-c", missingConfig(t), "simulate", "-p", "3", "-n", "200", "--depth", "2", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "job")
	assert.Contains(t, out, "· stage")
}

func TestSimulate_JSONCountsEveryMeasurement(t *testing.T) {
	out, err := run(t, "-c", missingConfig(t), "simulate", "-p", "4", "-n", "250", "--limit", "2", "--json")
	require.NoError(t, err)

	env, err := transport.Decode([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)

	var total int64
	env.Registry().Range(func(_ *timing.Path, tm timing.Timer) bool {
		total += tm.(*timer.Timer).Count()
		return true
	})
	assert.Equal(t, int64(4*250), total)
}

func TestSimulate_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathtimer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulate:\n  producers: 2\n  records: 10\n  depth: 1\n  fan_out: 1\n"), 0o600))

	out, err := run(t, "-c", path, "simulate", "--json")
	require.NoError(t, err)
	env, err := transport.Decode([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)

	// depth 1 and fan-out 1 leave job/stage0, occasionally with a sequence id
	for _, b := range env.Buckets {
		assert.Equal(t, 1, b.Path.Depth())
		assert.Equal(t, "stage0", b.Path.Name())
	}
}

func TestSimulate_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathtimer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport:\n  subject: 'a b'\n"), 0o600))

	_, err := run(t, "-c", path, "simulate")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryValidation))
}

func TestProduce_RejectsRateAboveTickResolution(t *testing.T) {
	_, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "produce", "--rate", "2000000000")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryValidation))
}

func TestTickInterval(t *testing.T) {
	tests := []struct {
		rate int
		want time.Duration
	}{
		{0, time.Second},
		{-5, time.Second},
		{200, 5 * time.Millisecond},
		{maxRate, time.Microsecond},
	}
	for _, tt := range tests {
		got, err := tickInterval(tt.rate)
		require.NoError(t, err, "rate=%d", tt.rate)
		assert.Equal(t, tt.want, got, "rate=%d", tt.rate)
	}
	_, err := tickInterval(maxRate + 1)
	require.Error(t, err)
}

func TestInit(t *testing.T) {
	path := missingConfig(t)

	out, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, path)

	_, err = run(t, "-c", path, "init")
	require.Error(t, err)

	_, err = run(t, "-c", path, "init", "--force")
	require.NoError(t, err)

	_, err = run(t, "-c", path, "simulate", "-p", "1", "-n", "5")
	require.NoError(t, err)
}
