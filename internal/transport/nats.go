package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/logfields"
	"github.com/jpdna/utils/internal/metrics"
	"github.com/jpdna/utils/internal/retry"
	"github.com/jpdna/utils/internal/timing"
)

// Connect dials the NATS server at url.
func Connect(url, name string, timeout time.Duration) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.URL(url), logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", logfields.URL(c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, perrors.TransportUnavailable(url, err)
	}
	slog.Info("Connected to NATS", logfields.URL(url))
	return conn, nil
}

// Option configures a Publisher or a Collector.
type Option func(*options)

type options struct {
	recorder metrics.Recorder
	logger   *slog.Logger
	timeout  time.Duration
	retry    retry.Policy
}

func newOptions(opts []Option) options {
	o := options{
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		timeout:  5 * time.Second,
		retry:    retry.NoRetry(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTimeout bounds a publish flush when the caller's context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry retries transient publish failures according to policy.
func WithRetry(policy retry.Policy) Option {
	return func(o *options) { o.retry = policy }
}

// Conn is the part of *nats.Conn a Publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

var _ Conn = (*nats.Conn)(nil)

// Publisher sends registries as envelopes on a subject.
//
// A registry whose publish failed is remembered together with its encoded
// envelope. Publishing the same registry again resends that envelope under
// the same id, so a collector that already merged it drops the copy.
type Publisher struct {
	conn     Conn
	subject  string
	producer string
	opts     options

	unsentMu   sync.Mutex
	unsent     *timing.Registry
	unsentData []byte
}

// NewPublisher returns a publisher identifying itself as producer.
func NewPublisher(conn Conn, subject, producer string, opts ...Option) *Publisher {
	return &Publisher{conn: conn, subject: subject, producer: producer, opts: newOptions(opts)}
}

// Publish encodes reg and publishes it, waiting for the server to
// acknowledge the flush. An empty registry is not sent.
func (p *Publisher) Publish(ctx context.Context, reg *timing.Registry) error {
	if reg == nil || reg.Len() == 0 {
		p.opts.recorder.IncSnapshotsPublished(metrics.ResultEmpty)
		return nil
	}
	data, err := p.encode(reg)
	if err != nil {
		p.opts.recorder.IncSnapshotsPublished(metrics.ResultFailed)
		return err
	}

	attempts := 0
	err = p.opts.retry.Do(ctx, func(ctx context.Context) error {
		attempts++
		return p.send(ctx, data)
	})
	p.settle(reg, data, err)
	if err != nil {
		p.opts.recorder.IncSnapshotsPublished(metrics.ResultFailed)
		return err
	}

	p.opts.recorder.IncSnapshotsPublished(metrics.ResultSuccess)
	p.opts.logger.Debug("Published registry snapshot",
		logfields.Subject(p.subject),
		logfields.Producer(p.producer),
		logfields.Buckets(reg.Len()),
		slog.Int("attempts", attempts))
	return nil
}

// encode returns the envelope kept for reg by a failed publish, or a new one.
func (p *Publisher) encode(reg *timing.Registry) ([]byte, error) {
	p.unsentMu.Lock()
	defer p.unsentMu.Unlock()
	if p.unsent == reg {
		return p.unsentData, nil
	}
	return Encode(reg, p.producer)
}

// settle remembers reg and its envelope after a failed publish and forgets
// them once the publish succeeds.
func (p *Publisher) settle(reg *timing.Registry, data []byte, err error) {
	p.unsentMu.Lock()
	defer p.unsentMu.Unlock()
	switch {
	case err != nil:
		p.unsent, p.unsentData = reg, data
	case p.unsent == reg:
		p.unsent, p.unsentData = nil, nil
	}
}

// send publishes data once and waits for the server to process it. The
// wait is bounded by the publisher timeout when ctx has no deadline.
func (p *Publisher) send(ctx context.Context, data []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return perrors.PublishFailed(p.subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return perrors.PublishFailed(p.subject, err)
	}
	return nil
}

// Collector merges every envelope received on a subject into a target
// registry.
type Collector struct {
	conn    *nats.Conn
	subject string
	target  *timing.Registry
	param   timing.Reduction
	opts    options

	mu  sync.Mutex
	sub *nats.Subscription

	seenMu sync.Mutex
	seen   map[string]struct{}
	order  []string // ring of remembered ids, oldest at next
	next   int

	received   atomic.Int64
	failed     atomic.Int64
	duplicates atomic.Int64
}

// seenWindow is how many envelope ids a Collector remembers to drop
// redelivered snapshots.
const seenWindow = 4096

// NewCollector returns a collector merging into target.
func NewCollector(conn *nats.Conn, subject string, target *timing.Registry, opts ...Option) *Collector {
	return &Collector{
		conn:    conn,
		subject: subject,
		target:  target,
		param:   timing.Reduction{NewTimer: target.Factory()},
		opts:    newOptions(opts),
		seen:    make(map[string]struct{}, seenWindow),
		order:   make([]string, 0, seenWindow),
	}
}

// Start subscribes to the subject. Calling Start twice is an error.
func (c *Collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return fmt.Errorf("collector already started on %s", c.subject)
	}
	sub, err := c.conn.Subscribe(c.subject, func(msg *nats.Msg) {
		_ = c.Handle(msg.Data)
	})
	if err != nil {
		return perrors.SubscribeFailed(c.subject, err)
	}
	c.sub = sub
	c.opts.logger.Info("Collecting registry snapshots", logfields.Subject(c.subject))
	return nil
}

// Stop drains the subscription so that messages already delivered are
// still merged.
func (c *Collector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	err := c.sub.Drain()
	c.sub = nil
	return err
}

// Handle decodes one envelope and merges it into the target. An envelope
// whose id was merged recently is dropped, since merging is not idempotent.
func (c *Collector) Handle(data []byte) error {
	env, err := Decode(data)
	if err != nil {
		c.failed.Add(1)
		c.opts.recorder.IncSnapshotsReceived(metrics.ResultFailed)
		c.opts.logger.Warn("Dropping undecodable snapshot", logfields.Subject(c.subject), logfields.Error(err))
		return err
	}
	if !c.remember(env.ID) {
		c.duplicates.Add(1)
		c.opts.recorder.IncSnapshotsReceived(metrics.ResultDuplicate)
		c.opts.logger.Debug("Dropping duplicate snapshot", logfields.SnapshotID(env.ID), logfields.Producer(env.Producer))
		return nil
	}

	start := time.Now()
	c.param.AddInPlace(c.target, env.Registry())
	c.opts.recorder.ObserveMergeDuration(time.Since(start))
	c.opts.recorder.IncMerges(1)
	c.opts.recorder.SetRegistryBuckets(c.target.Len())

	result := metrics.ResultSuccess
	if len(env.Buckets) == 0 {
		result = metrics.ResultEmpty
	}
	c.received.Add(1)
	c.opts.recorder.IncSnapshotsReceived(result)
	c.opts.logger.Debug("Merged registry snapshot",
		logfields.SnapshotID(env.ID),
		logfields.Producer(env.Producer),
		logfields.Buckets(len(env.Buckets)))
	return nil
}

// remember records id and reports whether it was new.
func (c *Collector) remember(id string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	if _, dup := c.seen[id]; dup {
		return false
	}
	if len(c.order) < seenWindow {
		c.order = append(c.order, id)
	} else {
		delete(c.seen, c.order[c.next])
		c.order[c.next] = id
		c.next = (c.next + 1) % seenWindow
	}
	c.seen[id] = struct{}{}
	return true
}

// Target returns the registry snapshots are merged into.
func (c *Collector) Target() *timing.Registry { return c.target }

// Stats returns the number of merged and rejected snapshots.
func (c *Collector) Stats() (received, failed int64) {
	return c.received.Load(), c.failed.Load()
}

// Duplicates returns the number of redelivered snapshots that were dropped.
func (c *Collector) Duplicates() int64 { return c.duplicates.Load() }
