package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
)

func sampleRegistry() *timing.Registry {
	reg := timing.NewRegistry(timer.Factory)
	job := timing.NewRootPath(timing.NewPathKey("job"))
	s1 := job.Child(timing.NewPathKey("stage1"))
	s2 := job.Child(timing.NewPathKey("stage2").WithSequence(3).AsClassified())
	for _, r := range []timing.RecordedTiming{
		{Path: s2, DurationNanos: int64(2 * time.Millisecond)},
		{Path: s1.Child(timing.NewPathKey("task")), DurationNanos: 40},
		{Path: s1, DurationNanos: 100},
		{Path: s1, DurationNanos: 250},
		{Path: job, DurationNanos: int64(3 * time.Second)},
	} {
		reg.Record(r)
	}
	return reg
}

func TestRows(t *testing.T) {
	rows := Rows(sampleRegistry())

	var labels []string
	for _, r := range rows {
		labels = append(labels, r.Label)
		assert.True(t, r.Known)
	}
	assert.Equal(t, []string{"job", "· stage1", "· · task", "· stage2#3*"}, labels)
	assert.Equal(t, timer.Snapshot{Name: "stage1", Count: 2, TotalNanos: 350, MinNanos: 100, MaxNanos: 250}, rows[1].Stats)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRegistry()))
	out := buf.String()

	for _, want := range []string{"stage1", "stage2#3*", "task", "3s", "175ns", "2ms"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "stage1"), strings.Index(out, "task"))
	assert.Less(t, strings.Index(out, "task"), strings.Index(out, "stage2"))
}

func TestRender_UnknownTimer(t *testing.T) {
	reg := timing.NewRegistry(func(string) timing.Timer { return opaque{} })
	reg.Record(timing.RecordedTiming{Path: timing.NewPath(timing.NewPathKey("job")), DurationNanos: 1})

	rows := Rows(reg)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Known)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, reg))
	assert.Contains(t, buf.String(), "job")
}

type opaque struct{}

func (opaque) RecordNanos(int64)  {}
func (opaque) Merge(timing.Timer) {}
