package timing

import (
	"slices"
	"sync"
)

type bucket struct {
	path  *Path
	timer Timer
}

// Registry maps Paths to Timers and is the unit of merge between producers.
//
// Buckets are indexed by Path.Hash and resolved with Path.Equal, so two
// structurally equal paths always land in the same bucket no matter which
// goroutine or process built them. Lookups run under a read lock; a missing
// bucket is created under the write lock after a re-check, so at most one
// Timer is ever associated with a path.
type Registry struct {
	mu       sync.RWMutex
	buckets  map[uint64][]*bucket
	size     int
	newTimer TimerFactory
}

// NewRegistry returns an empty registry that creates bucket timers with
// newTimer. newTimer must not be nil.
func NewRegistry(newTimer TimerFactory) *Registry {
	if newTimer == nil {
		panic("timing: NewRegistry called with a nil TimerFactory")
	}
	return &Registry{
		buckets:  make(map[uint64][]*bucket),
		newTimer: newTimer,
	}
}

// Factory returns the TimerFactory the registry creates buckets with.
func (r *Registry) Factory() TimerFactory { return r.newTimer }

// Record adds t's duration to the bucket for t.Path, creating the bucket on
// first use. A timing without a path is ignored.
func (r *Registry) Record(t RecordedTiming) {
	if t.Path == nil {
		return
	}
	r.timerFor(t.Path).RecordNanos(t.DurationNanos)
}

func (r *Registry) timerFor(p *Path) Timer {
	r.mu.RLock()
	b := r.lookup(p)
	r.mu.RUnlock()
	if b != nil {
		return b.timer
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.lookup(p); b != nil {
		return b.timer
	}
	t := r.newTimer(p.Name())
	r.insert(p, t)
	return t
}

// lookup must be called with r.mu held.
func (r *Registry) lookup(p *Path) *bucket {
	for _, b := range r.buckets[p.Hash()] {
		if b.path.Equal(p) {
			return b
		}
	}
	return nil
}

// insert must be called with r.mu held for writing.
func (r *Registry) insert(p *Path, t Timer) {
	h := p.Hash()
	r.buckets[h] = append(r.buckets[h], &bucket{path: p, timer: t})
	r.size++
}

// Merge folds every bucket of other into r. A path already present in r has
// other's timer merged into its own; a path new to r adopts other's Timer
// object as is, without copying it. other is not modified, although adopted
// timers are from then on shared by both registries.
//
// Merge is safe to call concurrently with Record and with other Merge calls
// on either registry. Merging a registry into itself does nothing.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other == r {
		return
	}
	incoming := other.snapshot()

	type collision struct{ dst, src Timer }
	var collisions []collision

	r.mu.Lock()
	for _, in := range incoming {
		if b := r.lookup(in.path); b != nil {
			collisions = append(collisions, collision{dst: b.timer, src: in.timer})
			continue
		}
		r.insert(in.path, in.timer)
	}
	r.mu.Unlock()

	for _, c := range collisions {
		c.dst.Merge(c.src)
	}
}

// Add stores t as the timer for p, or merges t into the existing timer when
// p already has a bucket. It is Merge for a single bucket and is how decoded
// snapshots enter a registry.
func (r *Registry) Add(p *Path, t Timer) {
	if p == nil || t == nil {
		return
	}
	r.mu.Lock()
	b := r.lookup(p)
	if b == nil {
		r.insert(p, t)
	}
	r.mu.Unlock()
	if b != nil {
		b.timer.Merge(t)
	}
}

func (r *Registry) snapshot() []bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]bucket, 0, r.size)
	for _, chain := range r.buckets {
		for _, b := range chain {
			out = append(out, *b)
		}
	}
	return out
}

// Timer returns the timer stored for p. A nil path has no timer.
func (r *Registry) Timer(p *Path) (Timer, bool) {
	if p == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b := r.lookup(p); b != nil {
		return b.timer, true
	}
	return nil, false
}

// Len returns the number of buckets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Range calls fn for each bucket until fn returns false. It iterates over a
// snapshot, so fn may call back into r.
func (r *Registry) Range(fn func(p *Path, t Timer) bool) {
	for _, b := range r.snapshot() {
		if !fn(b.path, b.timer) {
			return
		}
	}
}

// Paths returns every bucket path ordered so that each ancestor precedes its
// descendants and siblings sort by key.
func (r *Registry) Paths() []*Path {
	snap := r.snapshot()
	paths := make([]*Path, len(snap))
	for i, b := range snap {
		paths[i] = b.path
	}
	slices.SortFunc(paths, ComparePaths)
	return paths
}

// Equal always reports true.
//
// Reduction frameworks check that a freshly zeroed copy of an accumulator
// equals the zero value. A registry is empty by content, not by identity, so
// that check is satisfied unconditionally here. Do not use Equal to compare
// registries; use SameBuckets.
func (r *Registry) Equal(_ *Registry) bool {
	return true
}

// SameBuckets reports whether r and other hold buckets for exactly the same
// set of paths. Timer contents are not compared.
func (r *Registry) SameBuckets(other *Registry) bool {
	if r == other {
		return true
	}
	if other == nil {
		return r.Len() == 0
	}
	mine := r.snapshot()
	if len(mine) != other.Len() {
		return false
	}
	for _, b := range mine {
		if _, ok := other.Timer(b.path); !ok {
			return false
		}
	}
	return true
}
