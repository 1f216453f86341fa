package timing

// Timer is the per-path accumulator a Registry stores in each bucket. The
// Registry never inspects a Timer; it only records into it and merges it.
//
// Implementations synchronize themselves: RecordNanos and Merge may be called
// from several goroutines at once. Merge must be associative and commutative,
// and must not mutate other.
type Timer interface {
	RecordNanos(d int64)
	Merge(other Timer)
}

// TimerFactory creates an empty Timer. name is the display name of the path
// the timer is created for.
type TimerFactory func(name string) Timer

// RecordedTiming is one measured duration for one path.
type RecordedTiming struct {
	DurationNanos int64
	Path          *Path
}
