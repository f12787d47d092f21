// Package metrics holds the process-wide kernel-launch counters and
// the latency histogram: atomic op counters plus a cumulative
// latency-bucket histogram, covering kernel launches and compiles
// instead of block I/O. It lives in its own internal package, not the
// root hetrt package,
// so internal/hsa and internal/cuda — which the root package imports
// to build a Runtime — can update it without an import cycle back to
// the root.
package metrics

import "sync/atomic"

// LatencyBuckets defines the launch-latency histogram buckets in
// microseconds, covering 10us to 100ms with logarithmic spacing,
// tighter than a block-I/O latency histogram since a kernel launch is
// dispatch-bound rather than disk-bound.
var LatencyBuckets = []uint64{
	10, 100, 1_000, 10_000, 100_000,
}

const numLatencyBuckets = 5

// Global is the single process-wide accumulator: the kernel-time
// total is updated with atomic fetch-add from the HSA completion
// reaper and the CUDA launch path; all
// other shared structures are per-device and mutex-guarded.
var Global Counters

// Counters tracks launch/compile counts and the kernel-time
// accumulator get_kernel_time reports, plus a launch-latency
// histogram.
type Counters struct {
	KernelTimeMicros atomic.Int64 // get_kernel_time accumulator
	Launches         atomic.Int64
	Compiles         atomic.Int64
	CacheHits        atomic.Int64

	latencyTotalUs atomic.Int64
	latencyCount   atomic.Int64
	latencyBuckets [numLatencyBuckets]atomic.Int64
}

// RecordLaunch accounts one dispatched kernel.
func (c *Counters) RecordLaunch() {
	c.Launches.Add(1)
}

// RecordCompile accounts one JIT compile, or a cache hit when hit is
// true (compile skipped because the (file, kernel) pair was already
// resolved, preserving the compiled-at-most-once-per-device
// invariant).
func (c *Counters) RecordCompile(hit bool) {
	if hit {
		c.CacheHits.Add(1)
		return
	}
	c.Compiles.Add(1)
}

// RecordCompletion accumulates one launch's elapsed time, called by
// the per-device completion reaper (internal/hsa) or the CUDA
// event-timed launch path (internal/cuda) when a kernel finishes.
func (c *Counters) RecordCompletion(elapsedMicros int64) {
	c.KernelTimeMicros.Add(elapsedMicros)
	c.latencyTotalUs.Add(elapsedMicros)
	c.latencyCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if uint64(elapsedMicros) <= bucket {
			c.latencyBuckets[i].Add(1)
		}
	}
}

// Snapshot is a point-in-time read of Counters for diagnostics/tests.
type Snapshot struct {
	KernelTimeMicros int64
	Launches         int64
	Compiles         int64
	CacheHits        int64
	AvgLatencyUs     float64
	LatencyHistogram [numLatencyBuckets]int64
}

// Snapshot reads every field of c without blocking writers (each field
// is its own atomic load).
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		KernelTimeMicros: c.KernelTimeMicros.Load(),
		Launches:         c.Launches.Load(),
		Compiles:         c.Compiles.Load(),
		CacheHits:        c.CacheHits.Load(),
	}
	count := c.latencyCount.Load()
	if count > 0 {
		s.AvgLatencyUs = float64(c.latencyTotalUs.Load()) / float64(count)
	}
	for i := range s.LatencyHistogram {
		s.LatencyHistogram[i] = c.latencyBuckets[i].Load()
	}
	return s
}
