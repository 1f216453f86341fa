package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
)

// Envelope is the wire form of one partial registry.
type Envelope struct {
	ID       string    `json:"id"`
	Producer string    `json:"producer"`
	SentAt   time.Time `json:"sent_at"`
	Buckets  []Bucket  `json:"buckets"`
}

// Bucket is one path and the state of its timer.
type Bucket struct {
	Path       *timing.Path `json:"path"`
	Count      int64        `json:"count"`
	TotalNanos int64        `json:"total_ns"`
	MinNanos   int64        `json:"min_ns"`
	MaxNanos   int64        `json:"max_ns"`
}

// NewEnvelope captures reg as an Envelope stamped with a fresh id. Only
// buckets holding a *timer.Timer can be captured; any other timer is an error.
// Buckets are ordered ancestors first.
func NewEnvelope(reg *timing.Registry, producer string) (*Envelope, error) {
	env := &Envelope{
		ID:       uuid.NewString(),
		Producer: producer,
		SentAt:   time.Now().UTC(),
		Buckets:  make([]Bucket, 0, reg.Len()),
	}
	for _, p := range reg.Paths() {
		tm, _ := reg.Timer(p)
		t, ok := tm.(*timer.Timer)
		if !ok {
			return nil, perrors.EncodeFailed(fmt.Errorf("path %s holds %T, want *timer.Timer", p, tm))
		}
		s := t.Snapshot()
		env.Buckets = append(env.Buckets, Bucket{
			Path:       p,
			Count:      s.Count,
			TotalNanos: s.TotalNanos,
			MinNanos:   s.MinNanos,
			MaxNanos:   s.MaxNanos,
		})
	}
	return env, nil
}

// Registry rebuilds the envelope's buckets into a new registry whose
// factory is timer.Factory. Decoded paths carry empty child caches.
func (e *Envelope) Registry() *timing.Registry {
	reg := timing.NewRegistry(timer.Factory)
	for _, b := range e.Buckets {
		if b.Path == nil {
			continue
		}
		reg.Add(b.Path, timer.FromSnapshot(timer.Snapshot{
			Name:       b.Path.Name(),
			Count:      b.Count,
			TotalNanos: b.TotalNanos,
			MinNanos:   b.MinNanos,
			MaxNanos:   b.MaxNanos,
		}))
	}
	return reg
}

// Encode serializes reg for producer.
func Encode(reg *timing.Registry, producer string) ([]byte, error) {
	env, err := NewEnvelope(reg, producer)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, perrors.EncodeFailed(err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, perrors.DecodeFailed(err)
	}
	if env.ID == "" {
		return nil, perrors.DecodeFailed(fmt.Errorf("missing envelope id"))
	}
	for i, b := range env.Buckets {
		if b.Path == nil {
			return nil, perrors.DecodeFailed(fmt.Errorf("bucket %d has no path", i))
		}
		if b.Count < 0 {
			return nil, perrors.DecodeFailed(fmt.Errorf("bucket %d has negative count", i))
		}
	}
	return &env, nil
}
