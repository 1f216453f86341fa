package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jpdna/utils/internal/config"
	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/logfields"
	"github.com/jpdna/utils/internal/reduce"
	"github.com/jpdna/utils/internal/report"
	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
	"github.com/jpdna/utils/internal/transport"
)

// SimulateCmd implements the 'simulate' command.
type SimulateCmd struct {
	Producers int           `short:"p" help:"Concurrent producers (overrides simulate.producers)"`
	Records   int           `short:"n" help:"Measurements per producer (overrides simulate.records)"`
	Depth     int           `help:"Maximum number of stages below the root (overrides simulate.depth)"`
	FanOut    int           `name:"fan-out" help:"Distinct stage names per level (overrides simulate.fan_out)"`
	Seed      int64         `help:"Workload seed (overrides simulate.seed)"`
	Limit     int           `help:"Maximum goroutines running at once; 0 means unlimited"`
	Timeout   time.Duration `help:"Abort the simulation after this long; 0 means no limit"`
	Verify    bool          `help:"Also fold the partitions sequentially and check both results agree"`
	JSON      bool          `name:"json" help:"Print the merged registry as a snapshot envelope instead of a table"`
}

func (s *SimulateCmd) workload(cfg config.SimulateConfig) (reduce.Workload, int) {
	if s.Producers > 0 {
		cfg.Producers = s.Producers
	}
	if s.Records > 0 {
		cfg.Records = s.Records
	}
	if s.Depth > 0 {
		cfg.Depth = s.Depth
	}
	if s.FanOut > 0 {
		cfg.FanOut = s.FanOut
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return reduce.Workload{Records: cfg.Records, Depth: cfg.Depth, FanOut: cfg.FanOut, Seed: cfg.Seed}, cfg.Producers
}

func (s *SimulateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	w, producers := s.workload(cfg.Simulate)

	ctx, cancel := runContext(s.Timeout)
	defer cancel()

	start := time.Now()
	driver := reduce.New(timing.Reduction{NewTimer: timer.Factory}, reduce.WithLimit(s.Limit))
	parts, err := driver.Produce(ctx, producers, w.Produce())
	if err != nil {
		return perrors.Wrap(err, perrors.CategoryRuntime, perrors.SeverityError, "simulation aborted")
	}

	var folded *timing.Registry
	if s.Verify {
		again, err := driver.Produce(ctx, producers, w.Produce())
		if err != nil {
			return perrors.Wrap(err, perrors.CategoryRuntime, perrors.SeverityError, "simulation aborted")
		}
		folded = driver.Fold(again)
	}

	merged, err := driver.Tree(ctx, parts)
	if err != nil {
		return perrors.Wrap(err, perrors.CategoryRuntime, perrors.SeverityError, "reduction aborted")
	}
	slog.Info("Simulation complete",
		logfields.Partitions(producers),
		logfields.Buckets(merged.Len()),
		logfields.Elapsed(start))

	if folded != nil {
		if err := sameContents(merged, folded); err != nil {
			return err
		}
		slog.Info("Tree and sequential reductions agree", logfields.Buckets(folded.Len()))
	}

	if s.JSON {
		data, err := transport.Encode(merged, hostname())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(g.out(), string(data))
		return err
	}
	return report.Render(g.out(), merged)
}

func sameContents(a, b *timing.Registry) error {
	if !a.SameBuckets(b) {
		return perrors.New(perrors.CategoryInternal, perrors.SeverityError, "reductions disagree on the set of paths").
			WithContext("tree", a.Len()).
			WithContext("fold", b.Len())
	}
	ra, rb := report.Rows(a), report.Rows(b)
	for i := range ra {
		if ra[i].Stats != rb[i].Stats {
			return perrors.New(perrors.CategoryInternal, perrors.SeverityError, "reductions disagree on a path").
				WithContext("path", ra[i].Path.String())
		}
	}
	return nil
}
