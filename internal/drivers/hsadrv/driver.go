// Package hsadrv models the opaque HSA/ROCm driver bindings: init, agent enumeration,
// memory-region-tagged alloc/free, memcpy, code-object loading and
// kernel symbol resolution. internal/hsa builds the accelerator
// platform state machine on top of the Driver interface; it never
// talks to the vendor runtime directly.
//
// Two implementations exist, in the build-tag-gated real-vs-simulated
// split common to hardware-backed Go drivers: Sim (this package's
// default, used unless a real binding is compiled in) and a cgo
// binding behind the hsart build tag in real_linux.go.
package hsadrv

// RegionTag distinguishes the three HSA memory-region kinds:
// kernarg, fine-grained and coarse-grained.
type RegionTag int

const (
	RegionKernarg RegionTag = iota
	RegionFineGrained
	RegionCoarseGrained
)

func (t RegionTag) String() string {
	switch t {
	case RegionKernarg:
		return "kernarg"
	case RegionFineGrained:
		return "fine-grained"
	case RegionCoarseGrained:
		return "coarse-grained"
	default:
		return "unknown"
	}
}

// Profile is an agent's HSA execution profile.
type Profile int

const (
	ProfileBase Profile = iota
	ProfileFull
)

// Agent is the static capability record recorded at init time: name,
// vendor, profile, ISA, type, version, and queue capacity.
type Agent struct {
	Handle       uint64
	Name         string
	Vendor       string
	Profile      Profile
	ISA          string // e.g. "gfx906"
	DeviceType   string // "GPU" or "CPU"
	Version      string
	QueueMaxSize uint32
}

// MemoryRegion is one tagged allocation pool an agent exposes.
type MemoryRegion struct {
	Agent uint64
	Tag   RegionTag
	Handle uint64
}

// Executable is a frozen, agent-loaded code object ready for symbol
// resolution. Valid reports whether executable validation passed;
// step 3 treats a non-zero validation result as a
// diagnosed-but-non-fatal warning, not a load failure.
type Executable struct {
	Handle uint64
	Valid  bool
}

// KernelSymbol is what GetSymbol resolves: the kernel object pointer
// plus the three segment sizes launch_kernel needs to size the
// kernarg buffer and the AQL packet's group/private segment fields.
type KernelSymbol struct {
	KernelObject       uint64
	KernargSegmentSize uint32
	GroupSegmentSize   uint32
	PrivateSegmentSize uint32
}

// Driver is the full set of opaque backend operations the HSA-class
// platform (internal/hsa) needs. Every method maps to one or more real
// HSA runtime calls (hsa_init, hsa_iterate_agents,
// hsa_amd_memory_pool_allocate, hsa_executable_load_agent_code_object,
// hsa_executable_symbol_get_info, ...).
type Driver interface {
	// Init brings the backend up. Must be called once before any other
	// method.
	Init() error

	// TimestampFrequency returns the system clock frequency in Hz,
	// used to convert dispatch start/end timestamps to microseconds.
	TimestampFrequency() (uint64, error)

	// Agents enumerates every agent the backend found during Init.
	Agents() ([]Agent, error)

	// MemoryRegions enumerates the tagged memory pools an agent
	// exposes.
	MemoryRegions(agent Agent) ([]MemoryRegion, error)

	// Alloc allocates bytes from the given region. Zero bytes must not
	// reach this call; callers check that before dispatching.
	Alloc(region MemoryRegion, bytes int64) (uint64, error)

	// Free releases a pointer previously returned by Alloc.
	Free(ptr uint64) error

	// Copy moves bytes between two previously allocated regions,
	// synchronous with respect to the caller.
	Copy(dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error

	// Read copies bytes out of a device allocation into a host slice.
	Read(ptr uint64, off int64, dst []byte) error

	// Write copies bytes from a host slice into a device allocation.
	Write(ptr uint64, off int64, src []byte) error

	// LoadCodeObject creates a code-object reader over binary, creates
	// an executable with the agent's profile, loads the code object,
	// freezes it and validates it.2 step 3. A non-nil
	// error here is a configuration/backend error (fatal); Valid==false
	// on the returned Executable is the non-fatal validation warning.
	LoadCodeObject(agent Agent, binary []byte) (Executable, error)

	// GetSymbol resolves kernelName within exec, reading the kernel
	// object pointer and the three segment sizes.
	GetSymbol(exec Executable, kernelName string) (KernelSymbol, error)

	// DestroyExecutable releases an executable. Used when two threads
	// race to compile the same (device, file) and lose: the losing
	// executable must not leak.
	DestroyExecutable(exec Executable) error

	// CreateSignal creates a new completion signal with the given
	// initial value.
	CreateSignal(initial uint64) (uint64, error)

	// DestroySignal destroys a signal previously created with
	// CreateSignal.
	DestroySignal(handle uint64) error

	// Shutdown tears the backend down. Called once, after every device
	// has been torn down.
	Shutdown() error
}
