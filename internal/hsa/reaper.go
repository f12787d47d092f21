package hsa

import (
	"time"

	"github.com/dcrandall/hetrt/internal/drivers/hsadrv"
	"github.com/dcrandall/hetrt/internal/logging"
	"github.com/dcrandall/hetrt/internal/metrics"
)

// completion is one dispatched packet's bookkeeping: which ring slot
// to retire, and — when profiling — the per-launch signal to read
// timestamps from (or, in this simulator, the time the packet was
// enqueued) before destroying it.
type completion struct {
	launchSignal uint64
	profiling    bool
	enqueuedAt   time.Time
	kernargPtr   uint64
}

// reaper is the single per-device completion-reaper goroutine,
// replacing a thread-detached-per-launch profiling worker with one
// long-lived task consuming a bounded channel of per-launch signals —
// lower overhead, same ordering guarantees. The launch thread is the
// only incrementer of the device signal; this goroutine is the only
// decrementer, the invariant the per-queued-kernel state machine
// depends on.
type reaper struct {
	driver hsadrv.Driver
	signal *Signal
	ring   *PacketRing
	ch     chan completion
	done   chan struct{}
}

func newReaper(driver hsadrv.Driver, signal *Signal, ring *PacketRing, backlog int) *reaper {
	r := &reaper{
		driver: driver,
		signal: signal,
		ring:   ring,
		ch:     make(chan completion, backlog),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *reaper) run() {
	for {
		select {
		case c := <-r.ch:
			r.complete(c)
		case <-r.done:
			return
		}
	}
}

// complete retires the dispatch, packet-written -> in-flight ->
// completed, records
// profiling timing if requested, and is the sole decrementer of the
// device signal.
func (r *reaper) complete(c completion) {
	r.ring.Retire(1)
	if c.profiling {
		elapsedUs := time.Since(c.enqueuedAt).Microseconds()
		if elapsedUs < 1 {
			elapsedUs = 1
		}
		metrics.Global.RecordCompletion(elapsedUs)
		if c.launchSignal != 0 {
			if err := r.driver.DestroySignal(c.launchSignal); err != nil {
				logging.Warn("hsa: destroy per-launch signal failed", "err", err)
			}
		}
	}
	r.signal.Decrement()
	if c.kernargPtr != 0 {
		if err := r.driver.Free(c.kernargPtr); err != nil {
			logging.Warn("hsa: free kernarg buffer failed", "err", err)
		}
	}
}

// submit enqueues a dispatch for the reaper to retire. It blocks if
// the backlog channel is full, which back-pressures the launcher
// rather than letting completions pile up unbounded.
func (r *reaper) submit(c completion) {
	r.ch <- c
}

func (r *reaper) close() {
	close(r.done)
}
