// Package hsa implements the HSA/ROCm-class accelerator platform:
// per-device queue/signal management, the two-level program/kernel
// cache, kernarg packing, and the AQL dispatch-packet launch protocol
// with optional profiling.
package hsa

import (
	"fmt"
	"time"

	"github.com/dcrandall/hetrt/internal/config"
	"github.com/dcrandall/hetrt/internal/drivers/hsadrv"
	"github.com/dcrandall/hetrt/internal/kernarg"
	"github.com/dcrandall/hetrt/internal/logging"
	"github.com/dcrandall/hetrt/internal/metrics"
	"github.com/dcrandall/hetrt/internal/platform"
	"github.com/dcrandall/hetrt/internal/progreg"
)

// Platform implements platform.Platform against an hsadrv.Driver —
// the real ROCm binding or, in every test and by default, hsadrv.Sim.
type Platform struct {
	driver    hsadrv.Driver
	progs     *progreg.Registry
	profiling bool
	tsFreq    uint64
	devices   []*device
}

// New brings the backend up, enumerates agents, and for each agent
// creates one queue and one completion signal. profiling enables the
// per-launch timing path; progs is the process-wide program-string
// registry (nil uses a private, empty one).
func New(driver hsadrv.Driver, progs *progreg.Registry, profiling bool) (*Platform, error) {
	if err := driver.Init(); err != nil {
		return nil, fmt.Errorf("hsa: driver init: %w", err)
	}
	freq, err := driver.TimestampFrequency()
	if err != nil {
		return nil, fmt.Errorf("hsa: query timestamp frequency: %w", err)
	}
	agents, err := driver.Agents()
	if err != nil {
		return nil, fmt.Errorf("hsa: enumerate agents: %w", err)
	}

	p := &Platform{driver: driver, progs: progs, profiling: profiling, tsFreq: freq}
	for _, agent := range agents {
		regions, err := driver.MemoryRegions(agent)
		if err != nil {
			return nil, fmt.Errorf("hsa: enumerate memory regions for agent %q: %w", agent.Name, err)
		}
		d := newDevice(agent, regions)

		qSize := config.DefaultQueueSize
		if agent.QueueMaxSize > 0 && uint32(qSize) > agent.QueueMaxSize {
			qSize = int(agent.QueueMaxSize)
		}
		d.ring = NewPacketRing(uint32(qSize), func(uint64) {})
		d.reaper = newReaper(driver, d.signal, d.ring, config.DefaultReaperBacklog)

		p.devices = append(p.devices, d)
	}
	return p, nil
}

func (p *Platform) Tag() platform.Tag { return platform.TagHSA }
func (p *Platform) NumDevices() int   { return len(p.devices) }

func (p *Platform) device(index int) (*device, error) {
	if index < 0 || index >= len(p.devices) {
		return nil, fmt.Errorf("hsa: invalid device index %d", index)
	}
	return p.devices[index], nil
}

// Alloc allocates from the coarse-grained (device-local) region.
func (p *Platform) Alloc(index int, bytes int64) (uint64, error) {
	if bytes == 0 {
		return 0, nil
	}
	d, err := p.device(index)
	if err != nil {
		return 0, err
	}
	return p.driver.Alloc(d.coarseRegion, bytes)
}

// AllocHost allocates from the fine-grained (host-visible) region.
func (p *Platform) AllocHost(index int, bytes int64) (uint64, error) {
	d, err := p.device(index)
	if err != nil {
		return 0, err
	}
	return p.driver.Alloc(d.fineRegion, bytes)
}

// AllocUnified mirrors AllocHost: the fine-grained region is visible
// to both host and device without an explicit copy.
func (p *Platform) AllocUnified(index int, bytes int64) (uint64, error) {
	return p.AllocHost(index, bytes)
}

func (p *Platform) Release(index int, ptr uint64) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	return p.driver.Free(ptr)
}

func (p *Platform) ReleaseHost(index int, ptr uint64) error {
	return p.Release(index, ptr)
}

func (p *Platform) ReadAt(index int, ptr uint64, off int64, dst []byte) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	return p.driver.Read(ptr, off, dst)
}

func (p *Platform) WriteAt(index int, ptr uint64, off int64, src []byte) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	return p.driver.Write(ptr, off, src)
}

func (p *Platform) CopyDeviceToDevice(index int, dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	return p.driver.Copy(dstPtr, dstOff, srcPtr, srcOff, bytes)
}

// LoadKernel resolves (file, name) into the two-level cache without
// launching it, for callers that want to pre-warm the cache.
func (p *Platform) LoadKernel(index int, file, name string) error {
	d, err := p.device(index)
	if err != nil {
		return err
	}
	_, err = p.resolveKernel(d, file, name)
	return err
}

// LaunchKernel implements the full launch protocol: resolve
// the kernel (compiling/caching as needed), pack the kernarg buffer,
// increment the device signal, build and enqueue the AQL dispatch
// packet, ring the doorbell, and hand completion bookkeeping to the
// device's reaper.
func (p *Platform) LaunchKernel(index int, req platform.LaunchRequest) error {
	d, err := p.device(index)
	if err != nil {
		return err
	}

	sym, err := p.resolveKernel(d, req.File, req.Name)
	if err != nil {
		return err
	}

	buf, layout := kernarg.Pack(req.Args, int(sym.KernargSegmentSize))
	defer kernarg.Release(buf)
	if layout.Mismatched(int(sym.KernargSegmentSize)) {
		logging.Warn("hsa: kernarg size mismatch (non-fatal); launching with declared segment size",
			"file", req.File, "kernel", req.Name, "planned", layout.Size, "segment", sym.KernargSegmentSize)
	}

	kernargPtr, err := p.driver.Alloc(d.kernargRegion, int64(sym.KernargSegmentSize))
	if err != nil {
		return fmt.Errorf("hsa: allocate kernarg buffer: %w", err)
	}
	if err := p.driver.Write(kernargPtr, 0, buf); err != nil {
		return fmt.Errorf("hsa: write kernarg buffer: %w", err)
	}

	var launchSignal uint64
	completionSignal := uint64(0)
	if p.profiling {
		launchSignal, err = p.driver.CreateSignal(1)
		if err != nil {
			return fmt.Errorf("hsa: create per-launch profiling signal: %w", err)
		}
		completionSignal = launchSignal
	}

	idx, err := d.ring.Reserve()
	if err != nil {
		return fmt.Errorf("hsa: reserve queue slot: %w", err)
	}
	d.signal.Add(1)
	metrics.Global.RecordLaunch()

	pkt := NewDispatchPacket(req.Grid, req.Block, sym.KernelObject, kernargPtr, completionSignal)
	pkt.GroupSegmentSize = sym.GroupSegmentSize
	pkt.PrivateSegmentSize = sym.PrivateSegmentSize
	d.ring.WritePacket(idx, pkt)
	releaseFence()
	d.ring.RingDoorbell(idx + 1)

	d.reaper.submit(completion{
		launchSignal: launchSignal,
		profiling:    p.profiling,
		enqueuedAt:   time.Now(),
		kernargPtr:   kernargPtr,
	})

	return nil
}

// Synchronize waits for the device signal to reach zero (wait
// condition "equal", no timeout) and warns, without failing, if the
// completion value observed is unexpectedly non-zero.
func (p *Platform) Synchronize(index int) error {
	d, err := p.device(index)
	if err != nil {
		return err
	}
	d.signal.Wait()
	if v := d.signal.Value(); v != 0 {
		logging.Warn("hsa: synchronize observed non-zero completion value (non-fatal)", "value", v)
	}
	return nil
}

// Close stops every device's reaper and destroys the executables in
// its program cache, last device first, then shuts the backend down.
func (p *Platform) Close() error {
	for i := len(p.devices) - 1; i >= 0; i-- {
		d := p.devices[i]
		d.reaper.close()
		d.mu.Lock()
		for file, exec := range d.programCache {
			if err := p.driver.DestroyExecutable(exec); err != nil {
				logging.Warn("hsa: destroy executable failed", "file", file, "err", err)
			}
		}
		clear(d.programCache)
		clear(d.kernelCache)
		d.mu.Unlock()
	}
	return p.driver.Shutdown()
}
