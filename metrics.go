package hetrt

import "github.com/dcrandall/hetrt/internal/metrics"

// GetKernelTime returns the cumulative kernel execution time, in
// microseconds, accumulated by every completed timed launch since
// process start: every CUDA launch, and HSA launches when profiling is
// enabled. It is zero until at least one timed launch has completed.
//
// The accumulator itself lives in internal/metrics, not here: both
// internal/hsa and internal/cuda update it directly from their
// completion paths, and this package imports them to build a Runtime,
// so the state cannot live in this package without an import cycle.
// This function is the literal surface describes; the
// storage is just one level down.
func GetKernelTime() int64 {
	return metrics.Global.KernelTimeMicros.Load()
}

// MetricsSnapshot is a point-in-time read of every counter the runtime
// tracks, for diagnostics or a status ABI entry.
type MetricsSnapshot = metrics.Snapshot

// Metrics returns a snapshot of every launch/compile/latency counter.
func Metrics() MetricsSnapshot {
	return metrics.Global.Snapshot()
}
