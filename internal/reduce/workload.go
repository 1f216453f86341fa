package reduce

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/jpdna/utils/internal/timing"
)

// Workload generates synthetic measurements over a tree of call paths rooted
// at "job". Each partition builds its own path tree, so partitions only meet
// through structural path equality.
type Workload struct {
	Records int   // per partition
	Depth   int   // maximum number of stages below the root
	FanOut  int   // distinct stage names per level
	Seed    int64 // same seed and partition yield the same measurements
}

// Produce returns a ProduceFunc emitting w.Records measurements per partition.
func (w Workload) Produce() ProduceFunc {
	return func(ctx context.Context, partition int, emit func(timing.RecordedTiming)) error {
		gen := w.generator(partition)
		for i := range w.Records {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			emit(gen())
		}
		return nil
	}
}

// Generator returns a function yielding successive measurements of partition.
func (w Workload) Generator(partition int) func() timing.RecordedTiming {
	return w.generator(partition)
}

func (w Workload) generator(partition int) func() timing.RecordedTiming {
	rng := rand.New(rand.NewPCG(uint64(w.Seed), uint64(partition)))
	root := timing.NewRootPath(timing.NewPathKey("job"))
	depth := max(w.Depth, 1)
	fanOut := max(w.FanOut, 1)

	return func() timing.RecordedTiming {
		p := root
		levels := 1 + rng.IntN(depth)
		for l := range levels {
			key := timing.NewPathKey(fmt.Sprintf("stage%d", rng.IntN(fanOut)))
			if l == levels-1 && rng.IntN(8) == 0 {
				key = key.WithSequence(rng.IntN(3))
			}
			p = p.Child(key)
		}
		// deeper stages run shorter
		ns := 1 + rng.Int64N(1_000_000)/int64(levels)
		return timing.RecordedTiming{Path: p, DurationNanos: ns}
	}
}
