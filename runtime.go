package hetrt

import (
	"errors"

	"github.com/dcrandall/hetrt/internal/config"
	"github.com/dcrandall/hetrt/internal/cuda"
	"github.com/dcrandall/hetrt/internal/drivers/hsadrv"
	"github.com/dcrandall/hetrt/internal/drivers/ptxdrv"
	"github.com/dcrandall/hetrt/internal/hostplat"
	"github.com/dcrandall/hetrt/internal/hsa"
	"github.com/dcrandall/hetrt/internal/kernarg"
	"github.com/dcrandall/hetrt/internal/platform"
	"github.com/dcrandall/hetrt/internal/progreg"
	"github.com/dcrandall/hetrt/internal/registry"
)

// Runtime is the process-wide device runtime: the host platform plus
// whichever accelerator platforms Options enables, dispatched through a
// single registry.Registry.
type Runtime struct {
	reg   *registry.Registry
	progs *progreg.Registry
}

// Options selects which accelerator platforms New brings up and how.
// A nil Driver field constructs the in-process simulator for that
// platform; supplying one (typically a real_linux.go Real binding, or
// a fake for tests) overrides it.
type Options struct {
	HSADriver hsadrv.Driver
	NoHSA     bool
	HSAAgents int
	HSAISA    string

	CUDADriver  ptxdrv.Driver
	NoCUDA      bool
	CUDADevices int
	CUDACCMajor int
	CUDACCMinor int

	// Profiling enables the HSA platform's per-launch timing path; CUDA
	// launches are event-timed regardless. Nil defers to
	// config.Profiling()'s environment variable reading.
	Profiling *bool
}

func (o Options) profiling() bool {
	if o.Profiling != nil {
		return *o.Profiling
	}
	return config.Profiling()
}

// New brings up the host platform and every accelerator platform
// Options enables, registering them host-first then HSA then CUDA, per
// the fixed construction order, and returns a ready Runtime.
// A backend failure during bring-up is reported through the same
// fatal-category path every other runtime error uses (see errors.go).
func New(opts Options) (*Runtime, error) {
	reg := registry.New()
	progs := progreg.New()

	reg.Register(hostplat.New())

	if !opts.NoHSA {
		drv := opts.HSADriver
		if drv == nil {
			agents := opts.HSAAgents
			if agents <= 0 {
				agents = 1
			}
			isa := opts.HSAISA
			if isa == "" {
				isa = "gfx906"
			}
			drv = hsadrv.NewSim(agents, isa)
		}
		p, err := hsa.New(drv, progs, opts.profiling())
		if err != nil {
			e := newBackendError("init", "hsa", -1, 0, err.Error())
			report(e)
			return nil, e
		}
		reg.Register(p)
	}

	if !opts.NoCUDA {
		drv := opts.CUDADriver
		if drv == nil {
			devices := opts.CUDADevices
			if devices <= 0 {
				devices = 1
			}
			major, minor := opts.CUDACCMajor, opts.CUDACCMinor
			if major <= 0 {
				major, minor = 7, 5
			}
			drv = ptxdrv.NewSim(devices, major, minor)
		}
		p, err := cuda.New(drv, progs)
		if err != nil {
			e := newBackendError("init", "cuda", -1, 0, err.Error())
			report(e)
			return nil, e
		}
		reg.Register(p)
	}

	return &Runtime{reg: reg, progs: progs}, nil
}

// fail converts a registry/platform error into the *Error taxonomy,
// reports it (logging and, for fatal categories, calling Terminate),
// and returns it so every call site has one place that enforces
// the fatal/non-fatal split.
func (rt *Runtime) fail(op string, id int32, err error) *Error {
	var fault *registry.Fault
	var e *Error
	if errors.As(err, &fault) {
		e = newProgrammerError(op, id, fault.Msg)
	} else {
		tag, _ := registry.Decode(registry.DeviceId(id))
		e = newBackendError(op, tag.String(), id, 0, err.Error())
	}
	report(e)
	return e
}

// Alloc allocates device-local memory on the device named by id.
func (rt *Runtime) Alloc(id int32, bytes int64) (uint64, error) {
	ptr, err := rt.reg.Alloc(registry.DeviceId(id), bytes)
	if err != nil {
		return 0, rt.fail("alloc", id, err)
	}
	return ptr, nil
}

// AllocHost allocates host-accessible memory visible to the device
// named by id.
func (rt *Runtime) AllocHost(id int32, bytes int64) (uint64, error) {
	ptr, err := rt.reg.AllocHost(registry.DeviceId(id), bytes)
	if err != nil {
		return 0, rt.fail("alloc_host", id, err)
	}
	return ptr, nil
}

// AllocUnified allocates memory visible to both host and the device
// named by id without an explicit copy.
func (rt *Runtime) AllocUnified(id int32, bytes int64) (uint64, error) {
	ptr, err := rt.reg.AllocUnified(registry.DeviceId(id), bytes)
	if err != nil {
		return 0, rt.fail("alloc_unified", id, err)
	}
	return ptr, nil
}

// GetDevicePtr translates a pointer previously returned by AllocHost
// or AllocUnified on id into the device-visible pointer a kernel
// launch on the same device should use. No platform in this runtime
// keeps a separate host address space joined to the device one by a
// translation table: hostplat returns its mmap region, HSA its
// fine-grained pool allocation, and CUDA's AllocHost/AllocUnified
// return the same device allocation Alloc does (there is no
// host-mapped or managed CUDA allocation). So the device-visible
// pointer is the handle the caller already holds, returned unchanged.
// GetDevicePtr still validates the device id
// and exists so callers ported from a split-address-space ABI (the
// NVIDIA reference's cuMemHostGetDevicePointer) have somewhere to call.
func (rt *Runtime) GetDevicePtr(id int32, hostPtr uint64) (uint64, error) {
	if _, _, err := rt.reg.LookupDevice(registry.DeviceId(id)); err != nil {
		return 0, rt.fail("get_device_ptr", id, err)
	}
	return hostPtr, nil
}

// Release frees a pointer previously returned by Alloc/AllocUnified.
func (rt *Runtime) Release(id int32, ptr uint64) error {
	if err := rt.reg.Release(registry.DeviceId(id), ptr); err != nil {
		return rt.fail("release", id, err)
	}
	return nil
}

// ReleaseHost frees a pointer previously returned by AllocHost.
func (rt *Runtime) ReleaseHost(id int32, ptr uint64) error {
	if err := rt.reg.ReleaseHost(registry.DeviceId(id), ptr); err != nil {
		return rt.fail("release_host", id, err)
	}
	return nil
}

// Copy moves bytes from (srcID, srcPtr+srcOff) to (dstID, dstPtr+dstOff),
// across platforms if necessary.
func (rt *Runtime) Copy(srcID, dstID int32, srcPtr uint64, srcOff int64, dstPtr uint64, dstOff int64, bytes int64) error {
	err := rt.reg.Copy(registry.DeviceId(srcID), registry.DeviceId(dstID), srcPtr, srcOff, dstPtr, dstOff, bytes)
	if err != nil {
		return rt.fail("copy", srcID, err)
	}
	return nil
}

// RegisterFile supplies path's text in advance, so LoadKernel and the
// JIT pipelines never touch the filesystem for it.
func (rt *Runtime) RegisterFile(path, text string) {
	rt.progs.RegisterFile(path, text)
}

// LoadKernel resolves (file, name) to a launchable kernel on the
// device named by id, via that platform's two-level cache.
func (rt *Runtime) LoadKernel(id int32, file, name string) error {
	if err := rt.reg.LoadKernel(registry.DeviceId(id), file, name); err != nil {
		return rt.fail("load_kernel", id, err)
	}
	return nil
}

// LaunchKernel dispatches (file, name) on the device named by id with
// the given grid/block geometry and argument list. LoadKernel is
// called internally; callers do not need to call it first.
func (rt *Runtime) LaunchKernel(id int32, file, name string, grid, block [3]int, args []kernarg.Arg) error {
	req := platform.LaunchRequest{File: file, Name: name, Grid: grid, Block: block, Args: args}
	if err := rt.reg.LaunchKernel(registry.DeviceId(id), req); err != nil {
		return rt.fail("launch_kernel", id, err)
	}
	return nil
}

// Synchronize blocks until every kernel previously launched on the
// device named by id has completed.
func (rt *Runtime) Synchronize(id int32) error {
	if err := rt.reg.Synchronize(registry.DeviceId(id)); err != nil {
		return rt.fail("synchronize", id, err)
	}
	return nil
}

// Close tears down every registered platform in reverse construction
// order.
func (rt *Runtime) Close() error {
	if err := rt.reg.Close(); err != nil {
		return rt.fail("close", -1, err)
	}
	return nil
}

// EncodeDevice packs a platform tag and device index into the int32 id
// every Runtime method expects.
func EncodeDevice(tag platform.Tag, index int) int32 {
	return int32(registry.Encode(tag, index))
}

const (
	TagHost = platform.TagHost
	TagCUDA = platform.TagCUDA
	TagHSA  = platform.TagHSA
)
