package timing

import (
	"slices"
	"sync"
)

// fakeTimer keeps every duration it has seen so tests can check the exact
// multiset.
type fakeTimer struct {
	mu     sync.Mutex
	name   string
	values []int64
}

func newFakeTimer(name string) Timer { return &fakeTimer{name: name} }

func (f *fakeTimer) RecordNanos(d int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, d)
}

func (f *fakeTimer) Merge(other Timer) {
	vals := other.(*fakeTimer).Values()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, vals...)
}

// Values returns the recorded durations sorted ascending.
func (f *fakeTimer) Values() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.values)
	slices.Sort(out)
	return out
}

func valuesAt(r *Registry, p *Path) []int64 {
	t, ok := r.Timer(p)
	if !ok {
		return nil
	}
	return t.(*fakeTimer).Values()
}

func keys(names ...string) []PathKey {
	out := make([]PathKey, len(names))
	for i, n := range names {
		out[i] = NewPathKey(n)
	}
	return out
}
