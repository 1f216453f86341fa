// Package reduce drives a local reduction: it fans a workload out to
// concurrent producers, each owning a private registry, and combines the
// partial registries through the timing.AccumulatorParam contract.
//
// Tree merges pairwise, level by level, with every pair of a level merged in
// parallel. Because registry merge is associative and commutative the result
// is the same as a sequential Fold over the same partials.
package reduce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpdna/utils/internal/logfields"
	"github.com/jpdna/utils/internal/metrics"
	"github.com/jpdna/utils/internal/timing"
)

// Param is the accumulator contract the driver reduces with.
type Param = timing.AccumulatorParam[*timing.Registry, timing.RecordedTiming]

// ProduceFunc fills one partition. emit records a measurement into the
// partition's private registry.
type ProduceFunc func(ctx context.Context, partition int, emit func(timing.RecordedTiming)) error

// Driver runs producers and merges their partial registries.
type Driver struct {
	param    Param
	recorder metrics.Recorder
	logger   *slog.Logger
	limit    int
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder sets the metrics recorder. Defaults to metrics.NoopRecorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Driver) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithLimit caps the number of goroutines active at once. n <= 0 means no limit.
func WithLimit(n int) Option {
	return func(d *Driver) { d.limit = n }
}

// New returns a driver reducing with param.
func New(param Param, opts ...Option) *Driver {
	d := &Driver{
		param:    param,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes n producers concurrently, each against its own Zero registry,
// and returns the tree-merged result. The first producer error cancels the
// others and is returned.
func (d *Driver) Run(ctx context.Context, n int, produce ProduceFunc) (*timing.Registry, error) {
	parts, err := d.Produce(ctx, n, produce)
	if err != nil {
		return nil, err
	}
	return d.Tree(ctx, parts)
}

// Produce executes n producers concurrently and returns their partial
// registries in partition order.
func (d *Driver) Produce(ctx context.Context, n int, produce ProduceFunc) ([]*timing.Registry, error) {
	if n < 0 {
		return nil, fmt.Errorf("reduce: negative partition count %d", n)
	}
	parts := make([]*timing.Registry, n)
	g, gCtx := errgroup.WithContext(ctx)
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i := range n {
		g.Go(func() error {
			acc := d.param.Zero(nil)
			emit := func(t timing.RecordedTiming) { acc = d.param.AddAccumulator(acc, t) }
			if err := produce(gCtx, i, emit); err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			parts[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.logger.Debug("Produced partial registries", logfields.Partitions(n))
	return parts, nil
}

// Tree merges parts pairwise until one registry remains. Registries in parts
// are merged into and must not be used by the caller afterwards. An empty
// slice yields a Zero registry.
func (d *Driver) Tree(ctx context.Context, parts []*timing.Registry) (*timing.Registry, error) {
	start := time.Now()
	level := compact(parts)
	if len(level) == 0 {
		return d.param.Zero(nil), nil
	}

	merges := 0
	for len(level) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := make([]*timing.Registry, (len(level)+1)/2)
		g, gCtx := errgroup.WithContext(ctx)
		if d.limit > 0 {
			g.SetLimit(d.limit)
		}
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next[i/2] = level[i]
				continue
			}
			merges++
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				next[i/2] = d.param.AddInPlace(level[i], level[i+1])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		level = next
	}

	d.recorder.IncMerges(merges)
	d.recorder.ObserveMergeDuration(time.Since(start))
	d.recorder.SetRegistryBuckets(level[0].Len())
	d.logger.Debug("Tree reduction complete",
		logfields.Partitions(len(parts)),
		logfields.Buckets(level[0].Len()),
		logfields.Elapsed(start))
	return level[0], nil
}

// Fold merges parts sequentially, left to right, into a fresh Zero registry.
// Like Tree it counts one merge less than there are non-nil parts, since
// the first part only fills the empty accumulator.
func (d *Driver) Fold(parts []*timing.Registry) *timing.Registry {
	acc := d.param.Zero(nil)
	parts = compact(parts)
	for _, p := range parts {
		acc = d.param.AddInPlace(acc, p)
	}
	if len(parts) > 1 {
		d.recorder.IncMerges(len(parts) - 1)
	}
	return acc
}

func compact(parts []*timing.Registry) []*timing.Registry {
	out := make([]*timing.Registry, 0, len(parts))
	for _, p := range parts {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
