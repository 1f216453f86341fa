package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/logfields"
	"github.com/jpdna/utils/internal/metrics"
	"github.com/jpdna/utils/internal/producer"
	"github.com/jpdna/utils/internal/reduce"
	"github.com/jpdna/utils/internal/retry"
	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/transport"
)

// ProduceCmd implements the 'produce' command.
type ProduceCmd struct {
	Duration  time.Duration `help:"Stop after this long; 0 runs until interrupted"`
	Rate      int           `help:"Measurements recorded per second" default:"200"`
	Interval  time.Duration `help:"Flush interval (overrides flush.interval)"`
	Partition int           `help:"Workload partition; selects the random stream of this producer"`
}

// maxRate keeps the record tick at or above one microsecond.
const maxRate = 1_000_000

// tickInterval returns the pause between two records at rate per second.
// A rate below 1 records once a second.
func tickInterval(rate int) (time.Duration, error) {
	if rate > maxRate {
		return 0, perrors.ValidationFailed("rate", fmt.Sprintf("must be at most %d per second", maxRate))
	}
	return time.Second / time.Duration(max(rate, 1)), nil
}

func (p *ProduceCmd) Run(_ *Global, root *CLI) error {
	tick, err := tickInterval(p.Rate)
	if err != nil {
		return err
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	interval := cfg.Flush.Interval
	if p.Interval > 0 {
		interval = p.Interval
	}

	conn, err := transport.Connect(cfg.Transport.URL, "pathtimer-produce-"+cfg.Producer.ID, cfg.Transport.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		promReg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(promReg)
		stop := serveMetrics(cfg.Metrics.Listen, promReg)
		defer stop()
	}

	pub := transport.NewPublisher(conn, cfg.Transport.Subject, cfg.Producer.ID,
		transport.WithRecorder(rec),
		transport.WithTimeout(cfg.Transport.Timeout),
		transport.WithRetry(retry.FromConfig(cfg.Transport.Retry)))
	prod := producer.New(cfg.Producer.ID, timer.Factory, pub, producer.WithRecorder(rec))

	ctx, cancel := runContext(p.Duration)
	defer cancel()

	sched, err := producer.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := sched.FlushEvery(ctx, prod, interval, cfg.Transport.Timeout); err != nil {
		return err
	}
	sched.Start()

	slog.Info("Producing synthetic timings",
		logfields.Producer(cfg.Producer.ID),
		logfields.Subject(cfg.Transport.Subject),
		logfields.Interval(interval))

	w := reduce.Workload{Depth: cfg.Simulate.Depth, FanOut: cfg.Simulate.FanOut, Seed: cfg.Simulate.Seed}
	next := w.Generator(p.Partition)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			prod.RecordTiming(next())
		}
	}

	if err := sched.Stop(); err != nil {
		slog.Warn("Scheduler shutdown", logfields.Error(err))
	}
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Transport.Timeout)
	defer flushCancel()
	if err := prod.Flush(flushCtx); err != nil {
		return err
	}
	slog.Info("Producer stopped", logfields.Producer(cfg.Producer.ID))
	return nil
}
