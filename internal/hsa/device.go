package hsa

import (
	"sync"

	"github.com/dcrandall/hetrt/internal/drivers/hsadrv"
)

// kernelKey identifies one resolved kernel symbol: the executable it
// came from, and the kernel name within it. The kernel cache maps this
// key to a tuple of (kernel object, kernarg_segment_size,
// group_segment_size, private_segment_size).
type kernelKey struct {
	exec uint64
	name string
}

// device holds the per-accelerator state: agent/handle, queue, signal,
// static capability flags, tagged memory
// regions, and the two caches, all behind one mutex that guards the
// caches only — never the queue or signal, which have their own
// synchronization.
type device struct {
	agent        hsadrv.Agent
	kernargRegion hsadrv.MemoryRegion
	fineRegion    hsadrv.MemoryRegion
	coarseRegion  hsadrv.MemoryRegion

	ring   *PacketRing
	signal *Signal
	reaper *reaper

	mu           sync.Mutex
	programCache map[string]hsadrv.Executable
	kernelCache  map[kernelKey]hsadrv.KernelSymbol
}

func newDevice(agent hsadrv.Agent, regions []hsadrv.MemoryRegion) *device {
	d := &device{
		agent:        agent,
		signal:       NewSignal(),
		programCache: make(map[string]hsadrv.Executable),
		kernelCache:  make(map[kernelKey]hsadrv.KernelSymbol),
	}
	for _, r := range regions {
		switch r.Tag {
		case hsadrv.RegionKernarg:
			d.kernargRegion = r
		case hsadrv.RegionFineGrained:
			d.fineRegion = r
		case hsadrv.RegionCoarseGrained:
			d.coarseRegion = r
		}
	}
	return d
}
