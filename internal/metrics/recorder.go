package metrics

import "time"

// ResultLabel enumerates snapshot result categories for counters.
type ResultLabel string

const (
	ResultSuccess   ResultLabel = "success"
	ResultFailed    ResultLabel = "failed"
	ResultEmpty     ResultLabel = "empty"
	ResultDuplicate ResultLabel = "duplicate"
)

// Recorder defines observability hooks for registry reduction and snapshot
// traffic. Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveMergeDuration(d time.Duration)
	IncMerges(n int)
	ObserveFlushDuration(d time.Duration)
	IncSnapshotsPublished(result ResultLabel)
	IncSnapshotsReceived(result ResultLabel)
	SetRegistryBuckets(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveMergeDuration(time.Duration) {}
func (NoopRecorder) IncMerges(int)                      {}
func (NoopRecorder) ObserveFlushDuration(time.Duration) {}
func (NoopRecorder) IncSnapshotsPublished(ResultLabel)  {}
func (NoopRecorder) IncSnapshotsReceived(ResultLabel)   {}
func (NoopRecorder) SetRegistryBuckets(int)             {}
