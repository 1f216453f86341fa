// Package timing aggregates measured durations by call path and merges
// partial results produced by independent workers.
//
// # Paths
//
// A Path is a timer name plus its chain of ancestors. Paths compare
// structurally: two chains built separately from equal PathKeys are Equal and
// have the same Hash, which is what lets results from different goroutines or
// processes converge on the same bucket. Descending with Path.Child reuses
// previously created nodes, but nothing depends on that reuse.
//
// # Registries
//
// A Registry maps each Path to a Timer. Producers Record into a private
// registry; a reduction driver combines registries with Merge in any order:
//
//	red := timing.Reduction{NewTimer: timer.Factory}
//	part := red.Zero(nil)
//	red.AddAccumulator(part, timing.RecordedTiming{Path: p, DurationNanos: 120})
//	total := red.AddInPlace(red.Zero(nil), part)
//
// Registry.Equal is deliberately always true (see its doc); compare contents
// with Registry.SameBuckets.
package timing
