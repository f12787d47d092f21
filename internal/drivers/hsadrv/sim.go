package hsadrv

import (
	"fmt"
	"hash/fnv"
	"sync"
)

// Sim is an in-process HSA driver simulator: the default binding for
// every build, and the only one exercised by the test suite (no test
// environment is expected to carry a ROCm-capable agent). It models
// one agent per simulated "device index" the caller configures with
// NewSim, with deterministic kernel symbol resolution so load_kernel's
// idempotence and the kernarg-mismatch diagnostics can be asserted
// without real hardware.
type Sim struct {
	mu        sync.Mutex
	agents    []Agent
	mem       map[uint64][]byte
	nextPtr   uint64
	nextExec  uint64
	execBins  map[uint64][]byte
	nextSig   uint64
}

// NewSim constructs a simulator with numAgents fake GPU agents, each
// reporting isa as its ISA string.
func NewSim(numAgents int, isa string) *Sim {
	s := &Sim{
		mem:      make(map[uint64][]byte),
		execBins: make(map[uint64][]byte),
		nextPtr:  1,
		nextExec: 1,
		nextSig:  1,
	}
	for i := 0; i < numAgents; i++ {
		s.agents = append(s.agents, Agent{
			Handle:       uint64(i + 1),
			Name:         fmt.Sprintf("sim-agent-%d", i),
			Vendor:       "AMD",
			Profile:      ProfileBase,
			ISA:          isa,
			DeviceType:   "GPU",
			Version:      "1.1",
			QueueMaxSize: 4096,
		})
	}
	return s
}

func (s *Sim) Init() error                            { return nil }
func (s *Sim) TimestampFrequency() (uint64, error)     { return 1_000_000_000, nil }
func (s *Sim) Agents() ([]Agent, error)                { return s.agents, nil }

func (s *Sim) MemoryRegions(agent Agent) ([]MemoryRegion, error) {
	return []MemoryRegion{
		{Agent: agent.Handle, Tag: RegionKernarg, Handle: agent.Handle<<8 | 1},
		{Agent: agent.Handle, Tag: RegionFineGrained, Handle: agent.Handle<<8 | 2},
		{Agent: agent.Handle, Tag: RegionCoarseGrained, Handle: agent.Handle<<8 | 3},
	}, nil
}

func (s *Sim) Alloc(region MemoryRegion, bytes int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr := s.nextPtr
	s.nextPtr++
	s.mem[ptr] = make([]byte, bytes)
	return ptr, nil
}

func (s *Sim) Free(ptr uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mem, ptr)
	return nil
}

func (s *Sim) lookup(ptr uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.mem[ptr]
	if !ok {
		return nil, fmt.Errorf("hsadrv/sim: unknown pointer %#x", ptr)
	}
	return b, nil
}

func (s *Sim) Copy(dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	src, err := s.lookup(srcPtr)
	if err != nil {
		return err
	}
	dst, err := s.lookup(dstPtr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(dst[dstOff:dstOff+bytes], src[srcOff:srcOff+bytes])
	return nil
}

func (s *Sim) Read(ptr uint64, off int64, dst []byte) error {
	b, err := s.lookup(ptr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(dst, b[off:off+int64(len(dst))])
	return nil
}

func (s *Sim) Write(ptr uint64, off int64, src []byte) error {
	b, err := s.lookup(ptr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(b[off:off+int64(len(src))], src)
	return nil
}

func (s *Sim) LoadCodeObject(agent Agent, binary []byte) (Executable, error) {
	if len(binary) == 0 {
		return Executable{}, fmt.Errorf("hsadrv/sim: empty code object")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.nextExec
	s.nextExec++
	s.execBins[h] = binary
	// The simulator always validates cleanly; real validation failures
	// (e.g. an agent ISA mismatch) are a real-driver-only concern.
	return Executable{Handle: h, Valid: true}, nil
}

// GetSymbol derives deterministic segment sizes from a hash of the
// binary contents and the kernel name, so two calls for the same
// (executable, name) always agree without needing a real symbol
// table — and two different kernel names in the same binary disagree,
// so cache-key collisions would be caught by a test that launches two
// differently named kernels from one file.
func (s *Sim) GetSymbol(exec Executable, kernelName string) (KernelSymbol, error) {
	s.mu.Lock()
	bin, ok := s.execBins[exec.Handle]
	s.mu.Unlock()
	if !ok {
		return KernelSymbol{}, fmt.Errorf("hsadrv/sim: unknown executable %d", exec.Handle)
	}
	h := fnv.New64a()
	h.Write(bin)
	h.Write([]byte(kernelName))
	sum := h.Sum64()
	return KernelSymbol{
		KernelObject:       sum,
		KernargSegmentSize: 16 + uint32(sum%4)*8,
		GroupSegmentSize:   uint32(sum>>8) % 1024,
		PrivateSegmentSize: uint32(sum>>16) % 256,
	}, nil
}

func (s *Sim) DestroyExecutable(exec Executable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.execBins, exec.Handle)
	return nil
}

func (s *Sim) CreateSignal(initial uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.nextSig
	s.nextSig++
	return h, nil
}

func (s *Sim) DestroySignal(handle uint64) error { return nil }

func (s *Sim) Shutdown() error { return nil }
