package hsa

import (
	"sync"
)

// PacketRing is the AQL queue's packet ring: a fixed-size circular
// buffer of 64-byte slots with a write index the agent polls and a
// doorbell that tells the agent new packets are ready.
// Reserve/WritePacket/RingDoorbell generalizes the reserve-write-flush
// shape of an io_uring submission queue to AQL dispatch packets.
type PacketRing struct {
	mu       sync.Mutex
	slots    [][]byte
	mask     uint32
	writeIdx uint64
	readIdx  uint64
	doorbell func(index uint64)
}

// ErrRingFull is returned by Reserve when every slot between readIdx
// and writeIdx is still occupied.
var ErrRingFull = errShortPacketRing{}

type errShortPacketRing struct{}

func (errShortPacketRing) Error() string { return "hsa: packet ring full" }

// NewPacketRing allocates a ring of the given capacity, which must be
// a power of two. doorbell is invoked with the new write index every
// time RingDoorbell is called; the real driver writes it to an
// MMIO-mapped doorbell register, the simulator just wakes a reaper.
func NewPacketRing(capacity uint32, doorbell func(index uint64)) *PacketRing {
	slots := make([][]byte, capacity)
	for i := range slots {
		slots[i] = make([]byte, packetSize)
	}
	return &PacketRing{slots: slots, mask: capacity - 1, doorbell: doorbell}
}

// Reserve claims the next ring slot for a packet write, returning its
// index. It returns ErrRingFull once len(slots) packets are reserved
// and not yet retired.
func (r *PacketRing) Reserve() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeIdx-r.readIdx >= uint64(len(r.slots)) {
		return 0, ErrRingFull
	}
	idx := r.writeIdx
	r.writeIdx++
	return idx, nil
}

// WritePacket copies p's wire form into the slot at idx. Callers must
// call releaseFence after writing the last packet in a batch and
// before RingDoorbell, so the agent never observes a partially
// written packet.
func (r *PacketRing) WritePacket(idx uint64, p *AQLPacket) {
	slot := r.slots[idx&uint64(r.mask)]
	copy(slot, p.Marshal())
}

// RingDoorbell publishes idx as the new write index and notifies the
// agent, issuing the acquire fence first.
func (r *PacketRing) RingDoorbell(idx uint64) {
	acquireFence()
	if r.doorbell != nil {
		r.doorbell(idx)
	}
}

// Retire advances the read index past count completed packets,
// freeing their slots for reuse.
func (r *PacketRing) Retire(count uint64) {
	r.mu.Lock()
	r.readIdx += count
	r.mu.Unlock()
}

// Outstanding reports how many reserved packets have not yet retired.
func (r *PacketRing) Outstanding() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeIdx - r.readIdx
}
