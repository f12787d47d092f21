//go:build linux && cgo && amd64

package hsa

/*
#include <stdint.h>

// x86-64 store fence: ensures all prior stores are globally visible
// before any subsequent store, used before writing the queue write
// index so the agent never observes a packet header update without
// seeing the rest of the packet body.
static inline void sfence_impl(void) {
    __asm__ __volatile__("sfence" ::: "memory");
}

// x86-64 full memory fence, used before ringing the doorbell.
static inline void mfence_impl(void) {
    __asm__ __volatile__("mfence" ::: "memory");
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
