package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
)

func stagePath() *timing.Path {
	return timing.NewPath(timing.NewPathKey("job"), timing.NewPathKey("stage1").WithSequence(2).AsClassified())
}

func snapshotAt(t *testing.T, reg *timing.Registry, p *timing.Path) timer.Snapshot {
	t.Helper()
	tm, ok := reg.Timer(p)
	require.True(t, ok, "no bucket for %s", p)
	return tm.(*timer.Timer).Snapshot()
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	reg := timing.NewRegistry(timer.Factory)
	job := timing.NewRootPath(timing.NewPathKey("job"))
	stage := job.Child(timing.NewPathKey("stage1").WithSequence(2).AsClassified())
	_ = stage.Child(timing.NewPathKey("cached"))
	reg.Record(timing.RecordedTiming{Path: job, DurationNanos: 400})
	reg.Record(timing.RecordedTiming{Path: stage, DurationNanos: 100})
	reg.Record(timing.RecordedTiming{Path: stage, DurationNanos: 250})

	data, err := Encode(reg, "worker-1")
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "worker-1", env.Producer)
	require.Len(t, env.Buckets, 2)
	assert.Equal(t, 0, env.Buckets[0].Path.Depth(), "ancestors first")

	decoded := env.Registry()
	require.True(t, decoded.SameBuckets(reg))
	assert.Equal(t, timer.Snapshot{Name: "stage1", Count: 2, TotalNanos: 350, MinNanos: 100, MaxNanos: 250}, snapshotAt(t, decoded, stage))

	// decoded path trees start without cached children
	var decodedStage *timing.Path
	decoded.Range(func(p *timing.Path, _ timing.Timer) bool {
		if p.Depth() == 1 {
			decodedStage = p
		}
		return true
	})
	require.NotNil(t, decodedStage)
	assert.NotSame(t, stage, decodedStage)
	assert.NotSame(t, stage.Child(timing.NewPathKey("cached")), decodedStage.Child(timing.NewPathKey("cached")))
}

func TestEncode_WireShape(t *testing.T) {
	reg := timing.NewRegistry(timer.Factory)
	reg.Record(timing.RecordedTiming{Path: stagePath(), DurationNanos: 5})

	data, err := Encode(reg, "p")
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"id", "producer", "sent_at", "buckets"} {
		assert.Contains(t, raw, k)
	}
	b := raw["buckets"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(5), b["total_ns"])
	path := b["path"].([]any)
	require.Len(t, path, 2)
	assert.Equal(t, map[string]any{"name": "stage1", "sequence_id": float64(2), "classified": true, "should_record": true}, path[1])
}

func TestEncode_ForeignTimer(t *testing.T) {
	reg := timing.NewRegistry(func(string) timing.Timer { return nopTimer{} })
	reg.Record(timing.RecordedTiming{Path: stagePath(), DurationNanos: 1})

	_, err := Encode(reg, "p")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryCodec))
}

type nopTimer struct{}

func (nopTimer) RecordNanos(int64)  {}
func (nopTimer) Merge(timing.Timer) {}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing id", `{"producer":"p","buckets":[]}`},
		{"empty path", `{"id":"x","buckets":[{"path":[],"count":1}]}`},
		{"null path", `{"id":"x","buckets":[{"path":null,"count":1}]}`},
		{"negative count", `{"id":"x","buckets":[{"path":[{"name":"job"}],"count":-1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, perrors.IsCategory(err, perrors.CategoryCodec))
		})
	}
}

func TestDecodedPartialsConverge(t *testing.T) {
	var blobs [][]byte
	for i, durations := range [][]int64{{100, 250}, {50}} {
		reg := timing.NewRegistry(timer.Factory)
		for _, d := range durations {
			reg.Record(timing.RecordedTiming{Path: stagePath(), DurationNanos: d})
		}
		data, err := Encode(reg, string(rune('a'+i)))
		require.NoError(t, err)
		blobs = append(blobs, data)
	}

	target := timing.NewRegistry(timer.Factory)
	red := timing.Reduction{NewTimer: timer.Factory}
	for _, data := range blobs {
		env, err := Decode(data)
		require.NoError(t, err)
		red.AddInPlace(target, env.Registry())
	}

	assert.Equal(t, 1, target.Len())
	assert.Equal(t, timer.Snapshot{Name: "stage1", Count: 3, TotalNanos: 400, MinNanos: 50, MaxNanos: 250}, snapshotAt(t, target, stagePath()))
}
