// Package producer owns the live registry of one process and periodically
// hands it off to a Sink, usually a transport.Publisher.
package producer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jpdna/utils/internal/logfields"
	"github.com/jpdna/utils/internal/metrics"
	"github.com/jpdna/utils/internal/timing"
)

// Sink receives flushed registries. A registry passed to Publish is no
// longer written to by the producer. When Publish fails, the next flush
// passes the same registry again before any newer measurements, so a sink
// may resend it under the identity it used the first time.
type Sink interface {
	Publish(ctx context.Context, reg *timing.Registry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, reg *timing.Registry) error

func (f SinkFunc) Publish(ctx context.Context, reg *timing.Registry) error { return f(ctx, reg) }

// Producer records measurements into a live registry. Flush swaps the live
// registry for an empty one and publishes the old one, so every measurement
// ends up in exactly one published registry. A registry the sink rejected is
// kept as is and published again, never merged into newer measurements.
type Producer struct {
	id       string
	param    timing.Reduction
	sink     Sink
	recorder metrics.Recorder
	logger   *slog.Logger

	// mu guards the live pointer. Record holds it for reading while writing
	// into the registry, so a flush never publishes a registry that is still
	// being recorded into.
	mu   sync.RWMutex
	live *timing.Registry

	// flushMu serializes flushes and guards unsent.
	flushMu sync.Mutex
	unsent  *timing.Registry
}

// Option configures a Producer.
type Option func(*Producer)

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Producer) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l.With(logfields.Producer(p.id))
		}
	}
}

// New returns a producer creating timers with newTimer and flushing to sink.
func New(id string, newTimer timing.TimerFactory, sink Sink, opts ...Option) *Producer {
	p := &Producer{
		id:       id,
		param:    timing.Reduction{NewTimer: newTimer},
		sink:     sink,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default().With(logfields.Producer(id)),
	}
	p.live = p.param.Zero(nil)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Producer) ID() string { return p.id }

// Record adds one measurement for path. Paths whose leaf is marked as not
// to be recorded are skipped.
func (p *Producer) Record(path *timing.Path, d time.Duration) {
	p.RecordTiming(timing.RecordedTiming{Path: path, DurationNanos: d.Nanoseconds()})
}

// RecordTiming is Record for an already assembled RecordedTiming.
func (p *Producer) RecordTiming(t timing.RecordedTiming) {
	if t.Path == nil || !t.Path.ShouldRecord() {
		return
	}
	p.mu.RLock()
	p.param.AddAccumulator(p.live, t)
	p.mu.RUnlock()
}

// Time runs fn and records its wall-clock duration under path.
func (p *Producer) Time(path *timing.Path, fn func()) {
	start := time.Now()
	fn()
	p.Record(path, time.Since(start))
}

// Pending returns the number of buckets in the live registry.
func (p *Producer) Pending() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live.Len()
}

// Unsent returns the number of buckets in a registry whose publish failed
// and that the next flush sends first.
func (p *Producer) Unsent() int {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()
	if p.unsent == nil {
		return 0
	}
	return p.unsent.Len()
}

// Flush publishes everything recorded since the previous flush. A registry
// left over from a failed flush is published first, unchanged; while it
// keeps failing the live registry is not touched.
func (p *Producer) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	start := time.Now()
	defer func() { p.recorder.ObserveFlushDuration(time.Since(start)) }()

	if p.unsent != nil {
		if err := p.publish(ctx, p.unsent, start); err != nil {
			return err
		}
		p.unsent = nil
	}

	p.mu.Lock()
	out := p.live
	p.live = p.param.Zero(out)
	p.mu.Unlock()

	if out.Len() == 0 {
		return nil
	}
	if err := p.publish(ctx, out, start); err != nil {
		p.unsent = out
		return err
	}
	return nil
}

func (p *Producer) publish(ctx context.Context, reg *timing.Registry, start time.Time) error {
	if err := p.sink.Publish(ctx, reg); err != nil {
		p.logger.Warn("Flush failed; keeping registry for next flush",
			logfields.Buckets(reg.Len()),
			logfields.Error(err))
		return err
	}
	p.logger.Debug("Flushed registry", logfields.Buckets(reg.Len()), logfields.Elapsed(start))
	return nil
}
