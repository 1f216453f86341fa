package producer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jpdna/utils/internal/timer"
)

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleEvery("test", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery("test", 0, func() {})
		require.Error(t, err)
	})
}

func TestScheduler_FlushEvery(t *testing.T) {
	sink := &captureSink{}
	p := New("p1", timer.Factory, sink)
	p.Record(stage, time.Millisecond)

	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	_, err = s.FlushEvery(context.Background(), p, 20*time.Millisecond, 0)
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return len(sink.published()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, p.Pending())
}
