// Package hostplat implements the host/CPU platform (platform.TagHost):
// plain process memory for device-side allocations, and the staging
// target for AllocHost/AllocUnified. It also backs the registry's
// cross-platform Copy path, since every ReadAt/WriteAt eventually
// bottoms out in a memcpy against one of these regions.
//
// The sharded-lock region type gives each allocation its own shard
// set so concurrent copies into disjoint regions don't serialize on a
// single mutex.
package hostplat

import (
	"fmt"
	"sync"

	"github.com/dcrandall/hetrt/internal/platform"
)

// shardSize bounds how much of a region a single lock protects.
const shardSize = 64 * 1024

type region struct {
	data   []byte
	shards []sync.RWMutex
	pinned bool // true if data is backed by an mmap'd region, not the Go heap
}

func newRegion(bytes int64) *region {
	numShards := (bytes + shardSize - 1) / shardSize
	if numShards < 1 {
		numShards = 1
	}
	return &region{data: make([]byte, bytes), shards: make([]sync.RWMutex, numShards)}
}

// newPinnedRegion backs the region with an anonymous mmap instead of a
// Go slice, for AllocHost/AllocUnified (see mmap.go).
func newPinnedRegion(bytes int64) (*region, error) {
	data, err := pinnedMmap(bytes)
	if err != nil {
		return nil, err
	}
	numShards := (bytes + shardSize - 1) / shardSize
	if numShards < 1 {
		numShards = 1
	}
	return &region{data: data, shards: make([]sync.RWMutex, numShards), pinned: true}, nil
}

func (r *region) shardRange(off, length int64) (int, int) {
	start := int(off / shardSize)
	end := int((off + length - 1) / shardSize)
	if end >= len(r.shards) {
		end = len(r.shards) - 1
	}
	if end < start {
		end = start
	}
	return start, end
}

func (r *region) readAt(p []byte, off int64) {
	start, end := r.shardRange(off, int64(len(p)))
	for i := start; i <= end; i++ {
		r.shards[i].RLock()
	}
	copy(p, r.data[off:off+int64(len(p))])
	for i := start; i <= end; i++ {
		r.shards[i].RUnlock()
	}
}

func (r *region) writeAt(p []byte, off int64) {
	start, end := r.shardRange(off, int64(len(p)))
	for i := start; i <= end; i++ {
		r.shards[i].Lock()
	}
	copy(r.data[off:off+int64(len(p))], p)
	for i := start; i <= end; i++ {
		r.shards[i].Unlock()
	}
}

// Platform is the single-device host/CPU backend. There is always
// exactly one host device: index 0.
type Platform struct {
	mu      sync.Mutex
	regions map[uint64]*region
	next    uint64
}

// New constructs the host platform.
func New() *Platform {
	return &Platform{regions: make(map[uint64]*region), next: 1}
}

func (p *Platform) Tag() platform.Tag { return platform.TagHost }
func (p *Platform) NumDevices() int   { return 1 }

func (p *Platform) alloc(r *region) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ptr := p.next
	p.next++
	p.regions[ptr] = r
	return ptr
}

func (p *Platform) Alloc(device int, bytes int64) (uint64, error) {
	if bytes == 0 {
		return 0, nil
	}
	if err := p.checkDevice(device); err != nil {
		return 0, err
	}
	return p.alloc(newRegion(bytes)), nil
}

// AllocHost allocates an anonymous mmap'd region outside the Go heap
// (see mmap.go). The pages are not locked in memory: no mlock or
// MAP_LOCKED is applied.
func (p *Platform) AllocHost(device int, bytes int64) (uint64, error) {
	if err := p.checkDevice(device); err != nil {
		return 0, err
	}
	r, err := newPinnedRegion(bytes)
	if err != nil {
		return 0, err
	}
	return p.alloc(r), nil
}

// AllocUnified allocates the same pinned mapping AllocHost does; the
// host platform has no separate unified-memory manager to delegate to.
func (p *Platform) AllocUnified(device int, bytes int64) (uint64, error) {
	return p.AllocHost(device, bytes)
}

func (p *Platform) Release(device int, ptr uint64) error {
	p.mu.Lock()
	r, ok := p.regions[ptr]
	delete(p.regions, ptr)
	p.mu.Unlock()
	if ok && r.pinned {
		return pinnedMunmap(r.data)
	}
	return nil
}

func (p *Platform) ReleaseHost(device int, ptr uint64) error {
	return p.Release(device, ptr)
}

func (p *Platform) lookup(ptr uint64) (*region, error) {
	p.mu.Lock()
	r, ok := p.regions[ptr]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("hostplat: unknown pointer %#x", ptr)
	}
	return r, nil
}

func (p *Platform) ReadAt(device int, ptr uint64, off int64, dst []byte) error {
	r, err := p.lookup(ptr)
	if err != nil {
		return err
	}
	r.readAt(dst, off)
	return nil
}

func (p *Platform) WriteAt(device int, ptr uint64, off int64, src []byte) error {
	r, err := p.lookup(ptr)
	if err != nil {
		return err
	}
	r.writeAt(src, off)
	return nil
}

func (p *Platform) CopyDeviceToDevice(device int, dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	src, err := p.lookup(srcPtr)
	if err != nil {
		return err
	}
	buf := make([]byte, bytes)
	src.readAt(buf, srcOff)
	dst, err := p.lookup(dstPtr)
	if err != nil {
		return err
	}
	dst.writeAt(buf, dstOff)
	return nil
}

// LoadKernel always returns an error: the host platform never launches
// compiled kernels, it only stages memory for the accelerator platforms.
func (p *Platform) LoadKernel(device int, file, name string) error {
	return fmt.Errorf("hostplat: load_kernel not supported on the host platform")
}

func (p *Platform) LaunchKernel(device int, req platform.LaunchRequest) error {
	return fmt.Errorf("hostplat: launch_kernel not supported on the host platform")
}

func (p *Platform) Synchronize(device int) error {
	return p.checkDevice(device)
}

func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regions = nil
	return nil
}

func (p *Platform) checkDevice(device int) error {
	if device != 0 {
		return fmt.Errorf("hostplat: invalid device index %d", device)
	}
	return nil
}
