package commands

import (
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jpdna/utils/internal/logfields"
	"github.com/jpdna/utils/internal/metrics"
	"github.com/jpdna/utils/internal/report"
	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
	"github.com/jpdna/utils/internal/transport"
)

// CollectCmd implements the 'collect' command.
type CollectCmd struct {
	Duration time.Duration `help:"Stop after this long; 0 runs until interrupted"`
	NoReport bool          `name:"no-report" help:"Do not print the merged table on shutdown"`
}

func (c *CollectCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	conn, err := transport.Connect(cfg.Transport.URL, "pathtimer-collect-"+cfg.Producer.ID, cfg.Transport.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	target := timing.NewRegistry(timer.Factory)
	promReg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(promReg)
	promReg.MustRegister(metrics.NewRegistryCollector(cfg.Metrics.Namespace, func() *timing.Registry { return target }))
	if cfg.Metrics.Enabled {
		stop := serveMetrics(cfg.Metrics.Listen, promReg)
		defer stop()
	}

	collector := transport.NewCollector(conn, cfg.Transport.Subject, target, transport.WithRecorder(rec))
	if err := collector.Start(); err != nil {
		return err
	}

	ctx, cancel := runContext(c.Duration)
	defer cancel()
	<-ctx.Done()

	if err := collector.Stop(); err != nil {
		slog.Warn("Draining subscription", logfields.Subject(cfg.Transport.Subject), logfields.Error(err))
	}
	received, failed := collector.Stats()
	slog.Info("Collector stopped",
		slog.Int64("received", received),
		slog.Int64("failed", failed),
		slog.Int64("duplicates", collector.Duplicates()),
		logfields.Buckets(target.Len()))

	if c.NoReport {
		return nil
	}
	return report.Render(g.out(), target)
}
