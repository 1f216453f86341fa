package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyDepth      = "depth"
	KeyBuckets    = "buckets"
	KeyProducer   = "producer"
	KeySnapshotID = "snapshot_id"
	KeySubject    = "subject"
	KeyURL        = "url"
	KeyPartitions = "partitions"
	KeyDurationNS = "duration_ns"
	KeyDurationMS = "duration_ms"
	KeyInterval   = "interval"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Depth(d int) slog.Attr              { return slog.Int(KeyDepth, d) }
func Buckets(n int) slog.Attr            { return slog.Int(KeyBuckets, n) }
func Producer(id string) slog.Attr       { return slog.String(KeyProducer, id) }
func SnapshotID(id string) slog.Attr     { return slog.String(KeySnapshotID, id) }
func Subject(s string) slog.Attr         { return slog.String(KeySubject, s) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Partitions(n int) slog.Attr         { return slog.Int(KeyPartitions, n) }
func DurationNS(ns int64) slog.Attr      { return slog.Int64(KeyDurationNS, ns) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Interval(d time.Duration) slog.Attr { return slog.Duration(KeyInterval, d) }
func Addr(a string) slog.Attr            { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Elapsed reports the time since start in milliseconds under KeyDurationMS.
func Elapsed(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}
