// Package ptxdrv models the opaque CUDA driver+NVVM bindings: init,
// device enumeration, alloc/free, memcpy, module load, function
// lookup, kernel launch, event timing, and IR→PTX compilation via the
// vendor compiler. internal/cuda builds the driver+NVVM-class
// accelerator platform on top of Driver; it never calls the vendor SDK
// directly.
//
// Sim is the default, in-process implementation every test exercises.
// Real is a cgo binding behind the cudadrv build tag.
package ptxdrv

// DeviceInfo is the static per-device record captured at init: name
// and compute capability.
type DeviceInfo struct {
	Name              string
	ComputeCapMajor   int
	ComputeCapMinor   int
}

// Module is an opaque handle to PTX loaded into a context.
type Module uint64

// Function is an opaque handle to a named entry point resolved from a
// Module.
type Function uint64

// Event is an opaque timing event handle, used to bracket a launch
// for per-launch timing.
type Event uint64

// Driver is the full set of opaque backend operations the CUDA/NVVM
// platform (internal/cuda) needs.
type Driver interface {
	// Init brings the driver up and creates a context on device 0 (the
	// single default context).
	Init() error

	// DeviceCount returns how many CUDA devices the driver enumerated.
	DeviceCount() (int, error)

	// DeviceInfo returns the static record for device index i.
	DeviceInfo(i int) (DeviceInfo, error)

	// DriverVersion and CompilerVersion report the versions init
	// captures for diagnostics.
	DriverVersion() (string, error)
	CompilerVersion() (string, error)

	// Alloc/Free manage byte-sized device memory.
	Alloc(bytes int64) (uint64, error)
	Free(ptr uint64) error

	// Copy moves bytes between two device allocations.
	Copy(dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error

	// Read/Write move bytes between a device allocation and a host
	// slice.
	Read(ptr uint64, off int64, dst []byte) error
	Write(ptr uint64, off int64, src []byte) error

	// Compile lowers NVVM IR text to PTX via the vendor compiler,
	// returning the compiler's diagnostic log alongside any error so
	// callers can fetch and report the compiler log before aborting.
	Compile(ir string, targetArch string) (ptx string, log string, err error)

	// LoadModule JIT-loads PTX text into the current context, using
	// the given target compute capability for the JIT options.
	LoadModule(ptx string, computeCapMajor, computeCapMinor int) (Module, error)

	// GetFunction resolves a named kernel entry point within module.
	GetFunction(m Module, name string) (Function, error)

	// Launch dispatches fn with the given grid/block geometry, shared
	// memory in bytes, and a flat argument pointer array, on the
	// default stream.
	Launch(fn Function, grid, block [3]int, sharedMemBytes int, args []uintptr) error

	// RecordEvent, SynchronizeEvent and ElapsedTimeMillis bracket a launch for
	// per-launch timing.
	RecordEvent() (Event, error)
	SynchronizeEvent(e Event) error
	ElapsedTimeMillis(start, end Event) (float32, error)

	// BindTexture resolves a named texture reference in module and
	// binds addr+byteLen to it, configured to read as integer.
	BindTexture(m Module, name string, addr uint64, byteLen int64) error

	// Shutdown tears the driver/context down.
	Shutdown() error
}
