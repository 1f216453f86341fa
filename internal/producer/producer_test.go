package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
)

type captureSink struct {
	mu   sync.Mutex
	regs []*timing.Registry
	err  error
}

func (c *captureSink) Publish(_ context.Context, reg *timing.Registry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.regs = append(c.regs, reg)
	return nil
}

func (c *captureSink) published() []*timing.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*timing.Registry(nil), c.regs...)
}

func countAt(t *testing.T, reg *timing.Registry, p *timing.Path) int64 {
	t.Helper()
	tm, ok := reg.Timer(p)
	if !ok {
		return 0
	}
	return tm.(*timer.Timer).Count()
}

var stage = timing.NewPath(timing.NewPathKey("job"), timing.NewPathKey("stage1"))

func TestProducer_FlushSwapsRegistry(t *testing.T) {
	sink := &captureSink{}
	p := New("p1", timer.Factory, sink)

	p.Record(stage, 100*time.Nanosecond)
	p.Record(stage.Rebuild(), 250*time.Nanosecond)
	p.Record(stage.Parent().Child(timing.NewPathKey("skip").Unrecorded()), time.Second)
	p.Record(nil, time.Second)
	assert.Equal(t, 1, p.Pending())

	require.NoError(t, p.Flush(context.Background()))
	assert.Zero(t, p.Pending())
	require.Len(t, sink.published(), 1)
	assert.Equal(t, int64(2), countAt(t, sink.published()[0], stage))

	// nothing new: no publish
	require.NoError(t, p.Flush(context.Background()))
	assert.Len(t, sink.published(), 1)

	p.Time(stage, func() {})
	require.NoError(t, p.Flush(context.Background()))
	require.Len(t, sink.published(), 2)
	assert.Equal(t, int64(1), countAt(t, sink.published()[1], stage))
	assert.Equal(t, int64(2), countAt(t, sink.published()[0], stage), "published registries are not written to")
}

func TestProducer_FailedFlushKeepsMeasurements(t *testing.T) {
	sink := &captureSink{err: errors.New("broker down")}
	p := New("p1", timer.Factory, sink)
	p.Record(stage, time.Millisecond)

	require.Error(t, p.Flush(context.Background()))
	assert.Zero(t, p.Pending())
	assert.Equal(t, 1, p.Unsent())

	p.Record(stage, time.Millisecond)
	require.Error(t, p.Flush(context.Background()))
	assert.Equal(t, 1, p.Pending(), "live registry is untouched while the old one fails")

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	require.NoError(t, p.Flush(context.Background()))
	assert.Zero(t, p.Unsent())
	assert.Zero(t, p.Pending())
	require.Len(t, sink.published(), 2)
	assert.Equal(t, int64(1), countAt(t, sink.published()[0], stage))
	assert.Equal(t, int64(1), countAt(t, sink.published()[1], stage))
}

func TestProducer_RetriesTheSameRegistry(t *testing.T) {
	var seen []*timing.Registry
	fail := true
	p := New("p1", timer.Factory, SinkFunc(func(_ context.Context, reg *timing.Registry) error {
		seen = append(seen, reg)
		if fail {
			fail = false
			return errors.New("flush timed out")
		}
		return nil
	}))
	p.Record(stage, 100*time.Nanosecond)

	require.Error(t, p.Flush(context.Background()))
	require.NoError(t, p.Flush(context.Background()))
	require.Len(t, seen, 2)
	assert.Same(t, seen[0], seen[1])
}

func TestProducer_ConcurrentRecordAndFlushLosesNothing(t *testing.T) {
	sink := &captureSink{}
	p := New("p1", timer.Factory, sink)
	const workers, perWorker = 8, 500

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				p.Record(stage.Rebuild(), time.Microsecond)
			}
		}()
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-time.After(time.Millisecond):
				_ = p.Flush(context.Background())
			case <-stop:
				return
			}
		}
	}()
	wg.Wait()
	close(stop)
	<-done
	require.NoError(t, p.Flush(context.Background()))

	var total int64
	for _, reg := range sink.published() {
		total += countAt(t, reg, stage)
	}
	assert.Equal(t, int64(workers*perWorker), total)
}

func TestSinkFunc(t *testing.T) {
	var got *timing.Registry
	p := New("p1", timer.Factory, SinkFunc(func(_ context.Context, reg *timing.Registry) error {
		got = reg
		return nil
	}))
	p.Record(stage, time.Second)
	require.NoError(t, p.Flush(context.Background()))
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Len())
}
