package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jpdna/utils/internal/config"
)

// Global carries state shared by every command.
type Global struct {
	Out io.Writer // report output; os.Stdout in production
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pathtimer.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init     InitCmd     `cmd:"" help:"Write a configuration file with every default filled in"`
	Simulate SimulateCmd `cmd:"" help:"Run concurrent synthetic producers locally and print the merged timings"`
	Produce  ProduceCmd  `cmd:"" help:"Record synthetic timings and publish them to NATS periodically"`
	Collect  CollectCmd  `cmd:"" help:"Merge timings published on NATS and expose them as Prometheus metrics"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(level, config.LogFormatText))
	return nil
}

// loadConfig reads the root config file, falling back to defaults when it
// does not exist, and applies its logging section unless --verbose was given.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return nil, err
	}
	if !c.Verbose {
		slog.SetDefault(newLogger(cfg.Logging.Level.SlogLevel(), cfg.Logging.Format))
	}
	return cfg, nil
}

func newLogger(level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}
