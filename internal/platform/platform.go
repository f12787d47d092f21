// Package platform defines the uniform capability set every backend
// (host CPU, HSA/ROCm, CUDA/NVVM) exposes to the registry, one
// interface every accelerator implementation must satisfy.
package platform

import "github.com/dcrandall/hetrt/internal/kernarg"

// Tag identifies a backend kind. It occupies the low 4 bits of an
// encoded DeviceId.
type Tag uint8

const (
	TagHost   Tag = 0
	TagCUDA   Tag = 1
	TagOpenCL Tag = 2
	TagHSA    Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagHost:
		return "host"
	case TagCUDA:
		return "cuda"
	case TagOpenCL:
		return "opencl"
	case TagHSA:
		return "hsa"
	default:
		return "unknown"
	}
}

// LaunchRequest carries everything one launch_kernel call needs beyond
// the device and kernel identity. It replaces the reference
// implementation's global argument-staging array and current-texture
// statics: every launch is a self-contained parameter
// object.
type LaunchRequest struct {
	File  string
	Name  string
	Grid  [3]int
	Block [3]int
	Args  []kernarg.Arg
}

// Platform is the capability set every backend implements: {alloc,
// release, copy, launch, synchronize, load_kernel, compile_source}.
// RegisterFile is intentionally absent — the program-string registry
// is process-wide, not per platform; see internal/progreg.
type Platform interface {
	// Tag identifies which backend this Platform implements.
	Tag() Tag

	// NumDevices returns how many devices this platform enumerated at
	// construction time.
	NumDevices() int

	// Alloc allocates bytes of device-local memory on device. Bytes==0
	// must return a nil pointer without calling into the backend.
	Alloc(device int, bytes int64) (uint64, error)

	// AllocHost allocates host-accessible memory visible to device.
	AllocHost(device int, bytes int64) (uint64, error)

	// AllocUnified allocates memory visible to both host and device
	// without an explicit copy.
	AllocUnified(device int, bytes int64) (uint64, error)

	// Release frees a pointer previously returned by Alloc/AllocUnified.
	Release(device int, ptr uint64) error

	// ReleaseHost frees a pointer previously returned by AllocHost.
	ReleaseHost(device int, ptr uint64) error

	// ReadAt/WriteAt move bytes between this platform's device memory
	// (at ptr+off) and a host-resident byte slice. The registry builds
	// cross-platform Copy on top of these two primitives via host
	// staging; same-platform copies call CopyDeviceToDevice directly.
	ReadAt(device int, ptr uint64, off int64, p []byte) error
	WriteAt(device int, ptr uint64, off int64, p []byte) error

	// CopyDeviceToDevice performs a same-platform copy, which may use
	// device-side DMA instead of host staging.
	CopyDeviceToDevice(device int, dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error

	// LoadKernel resolves (file, name) to a launchable kernel, via the
	// two-level program/kernel cache described in It is
	// idempotent per (device, file, name).
	LoadKernel(device int, file, name string) error

	// LaunchKernel dispatches req on device. Implementations call
	// LoadKernel internally; callers do not need to call it first.
	LaunchKernel(device int, req LaunchRequest) error

	// Synchronize blocks until all kernels previously launched on
	// device have completed.
	Synchronize(device int) error

	// Close tears down every device's state in reverse device order
	// and shuts the backend down.
	Close() error
}
