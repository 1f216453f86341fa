package timing

// AccumulatorParam is the contract a reduction driver uses to build partial
// results of type R from values of type T and to combine them.
//
// Zero must return a fresh empty accumulator and must not depend on the
// contents of its sample. AddAccumulator and AddInPlace mutate and return
// their first argument. A driver may call any of them repeatedly, in any
// order, when it retries work.
type AccumulatorParam[R, T any] interface {
	Zero(sample R) R
	AddAccumulator(acc R, v T) R
	AddInPlace(a, b R) R
}

// Reduction adapts Registry to AccumulatorParam. NewTimer may only be left
// nil when Zero is always given a sample registry to borrow a factory from.
type Reduction struct {
	NewTimer TimerFactory
}

var _ AccumulatorParam[*Registry, RecordedTiming] = Reduction{}

// Zero returns a new empty registry. When NewTimer is nil the sample's
// factory is reused; the sample's buckets are never looked at. Zero panics
// when neither provides a factory.
func (red Reduction) Zero(sample *Registry) *Registry {
	f := red.NewTimer
	if f == nil && sample != nil {
		f = sample.Factory()
	}
	return NewRegistry(f)
}

// AddAccumulator records t into r and returns r.
func (Reduction) AddAccumulator(r *Registry, t RecordedTiming) *Registry {
	r.Record(t)
	return r
}

// AddInPlace merges b into a and returns a.
func (Reduction) AddInPlace(a, b *Registry) *Registry {
	a.Merge(b)
	return a
}
