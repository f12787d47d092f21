package hsa

import "sync/atomic"

// Signal is a monotonic completion counter: a launch increments it
// before enqueuing its packet, and the agent (or, in the simulator,
// the reaper) decrements it back toward zero as each dispatch
// finishes. Synchronize blocks until the value reaches zero.
//
// This mirrors the HSA hardware signal's wait-for-value semantics
// closely enough for the queue/reaper machinery without modeling the
// full signal value/condition/timeout API surface.
type Signal struct {
	value int64
	ch    chan struct{}
}

// NewSignal returns a signal with value 0.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Add increments the signal by delta, used when a packet is enqueued.
func (s *Signal) Add(delta int64) {
	atomic.AddInt64(&s.value, delta)
}

// Decrement lowers the signal by one, used when a dispatch completes.
// It wakes exactly one blocked Wait call whenever the value reaches
// zero.
func (s *Signal) Decrement() {
	if atomic.AddInt64(&s.value, -1) == 0 {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

// Value returns the current signal value.
func (s *Signal) Value() int64 {
	return atomic.LoadInt64(&s.value)
}

// Wait blocks until the signal value reaches zero.
func (s *Signal) Wait() {
	for atomic.LoadInt64(&s.value) != 0 {
		<-s.ch
	}
}
