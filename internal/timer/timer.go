// Package timer provides the default per-path accumulator stored in a
// timing.Registry: count, total, min and max of recorded nanoseconds.
package timer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jpdna/utils/internal/timing"
)

// Snapshot is a point-in-time copy of a Timer's state.
type Snapshot struct {
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	TotalNanos int64  `json:"total_ns"`
	MinNanos   int64  `json:"min_ns"`
	MaxNanos   int64  `json:"max_ns"`
}

// Mean returns the average duration, or 0 if nothing was recorded.
func (s Snapshot) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return time.Duration(s.TotalNanos / s.Count)
}

func (s Snapshot) Total() time.Duration { return time.Duration(s.TotalNanos) }
func (s Snapshot) Min() time.Duration   { return time.Duration(s.MinNanos) }
func (s Snapshot) Max() time.Duration   { return time.Duration(s.MaxNanos) }

// Timer is safe for concurrent use. The total saturates at math.MaxInt64
// instead of wrapping.
type Timer struct {
	mu   sync.Mutex
	snap Snapshot
}

var _ timing.Timer = (*Timer)(nil)

// New returns an empty timer.
func New(name string) *Timer {
	return &Timer{snap: Snapshot{Name: name}}
}

// Factory is a timing.TimerFactory producing *Timer.
func Factory(name string) timing.Timer { return New(name) }

// FromSnapshot returns a timer holding s.
func FromSnapshot(s Snapshot) *Timer {
	return &Timer{snap: s}
}

// RecordNanos adds one observation. Negative durations are clamped to 0.
func (t *Timer) RecordNanos(d int64) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = combine(t.snap, Snapshot{Count: 1, TotalNanos: d, MinNanos: d, MaxNanos: d})
}

// Record is RecordNanos for a time.Duration.
func (t *Timer) Record(d time.Duration) { t.RecordNanos(d.Nanoseconds()) }

// Merge folds other into t. other must be a *Timer; anything else panics, as
// a registry never mixes timer implementations. other is read under its own
// lock before t is locked, so merging a timer into itself doubles it.
func (t *Timer) Merge(other timing.Timer) {
	o, ok := other.(*Timer)
	if !ok {
		panic(fmt.Sprintf("timer: cannot merge %T into *timer.Timer", other))
	}
	in := o.Snapshot()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = combine(t.snap, in)
}

// Snapshot returns a copy of the current state.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *Timer) Count() int64 { return t.Snapshot().Count }

func combine(a, b Snapshot) Snapshot {
	if b.Count == 0 {
		return a
	}
	if a.Count == 0 {
		if a.Name != "" {
			b.Name = a.Name
		}
		return b
	}
	out := a
	out.Count += b.Count
	if b.TotalNanos > math.MaxInt64-out.TotalNanos {
		out.TotalNanos = math.MaxInt64
	} else {
		out.TotalNanos += b.TotalNanos
	}
	out.MinNanos = min(out.MinNanos, b.MinNanos)
	out.MaxNanos = max(out.MaxNanos, b.MaxNanos)
	return out
}
