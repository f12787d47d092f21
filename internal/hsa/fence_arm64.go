//go:build linux && cgo && arm64

package hsa

/*
// arm64 store-store barrier: ensures all prior stores are globally
// visible before any subsequent store, used before writing the queue
// write index so the agent never observes a packet header update
// without seeing the rest of the packet body.
static inline void sfence_impl(void) {
    __asm__ __volatile__("dmb st" ::: "memory");
}

// arm64 full inner-shareable-domain barrier, used before ringing the
// doorbell.
static inline void mfence_impl(void) {
    __asm__ __volatile__("dmb ish" ::: "memory");
}
*/
import "C"

// releaseFence issues a store fence so packet writes are visible
// before the queue's write index is published.
func releaseFence() {
	C.sfence_impl()
}

// acquireFence issues a full fence before the doorbell ring, so the
// agent never begins fetching a packet whose writes haven't landed.
func acquireFence() {
	C.mfence_impl()
}
