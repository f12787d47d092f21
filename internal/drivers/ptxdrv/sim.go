package ptxdrv

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
)

// Sim is an in-process CUDA/NVVM driver simulator. It recognizes a
// minimal pseudo-IR convention — one line per kernel, "kernel NAME" —
// so Compile/LoadModule/GetFunction can round-trip without a real
// NVVM toolchain, and so a kernel name missing from the IR produces
// the same "symbol not found" failure a real driver would.
type Sim struct {
	mu        sync.Mutex
	devices   []DeviceInfo
	mem       map[uint64][]byte
	nextPtr   uint64
	modules   map[Module]string // module handle -> pseudo-PTX text
	nextMod   uint64
	events    map[Event]struct{}
	nextEvent uint64
	launches  int
}

// NewSim constructs a simulator reporting numDevices fake GPUs, each
// with the given compute capability.
func NewSim(numDevices, ccMajor, ccMinor int) *Sim {
	s := &Sim{
		mem:     make(map[uint64][]byte),
		modules: make(map[Module]string),
		events:  make(map[Event]struct{}),
		nextPtr: 1,
		nextMod: 1,
	}
	for i := 0; i < numDevices; i++ {
		s.devices = append(s.devices, DeviceInfo{
			Name:            fmt.Sprintf("sim-gpu-%d", i),
			ComputeCapMajor: ccMajor,
			ComputeCapMinor: ccMinor,
		})
	}
	return s
}

func (s *Sim) Init() error                        { return nil }
func (s *Sim) DeviceCount() (int, error)           { return len(s.devices), nil }
func (s *Sim) DriverVersion() (string, error)      { return "sim-driver-1.0", nil }
func (s *Sim) CompilerVersion() (string, error)    { return "sim-nvvm-1.0", nil }

func (s *Sim) DeviceInfo(i int) (DeviceInfo, error) {
	if i < 0 || i >= len(s.devices) {
		return DeviceInfo{}, fmt.Errorf("ptxdrv/sim: invalid device index %d", i)
	}
	return s.devices[i], nil
}

func (s *Sim) Alloc(bytes int64) (uint64, error) {
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
		return nil, fmt.Errorf("ptxdrv/sim: unknown pointer %#x", ptr)
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

// Compile "lowers" ir to a pseudo-PTX form: ir is expected to contain
// one "kernel NAME" line per entry point. A line "fail COMPILERMSG"
// simulates a compile error, so callers can exercise the
// fetch-and-report-the-log-before-aborting path
// without a real compile failure to provoke.
func (s *Sim) Compile(ir string, targetArch string) (string, string, error) {
	var entries []string
	for _, line := range strings.Split(ir, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "fail "):
			msg := strings.TrimPrefix(line, "fail ")
			return "", "nvvm error: " + msg, fmt.Errorf("ptxdrv/sim: compile failed: %s", msg)
		case strings.HasPrefix(line, "kernel "):
			entries = append(entries, strings.TrimPrefix(line, "kernel "))
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, ".target %s\n", targetArch)
	for _, name := range entries {
		fmt.Fprintf(&b, ".visible .entry %s\n", name)
	}
	return b.String(), "", nil
}

func (s *Sim) LoadModule(ptx string, ccMajor, ccMinor int) (Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := Module(s.nextMod)
	s.nextMod++
	s.modules[h] = ptx
	return h, nil
}

func (s *Sim) GetFunction(m Module, name string) (Function, error) {
	s.mu.Lock()
	ptx, ok := s.modules[m]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("ptxdrv/sim: unknown module %d", m)
	}
	if !strings.Contains(ptx, ".visible .entry "+name) {
		return 0, fmt.Errorf("ptxdrv/sim: symbol %q not found in module", name)
	}
	h := fnv.New64a()
	h.Write([]byte(ptx))
	h.Write([]byte(name))
	return Function(h.Sum64()), nil
}

func (s *Sim) Launch(fn Function, grid, block [3]int, sharedMemBytes int, args []uintptr) error {
	if fn == 0 {
		return fmt.Errorf("ptxdrv/sim: launch with nil function")
	}
	s.mu.Lock()
	s.launches++
	s.mu.Unlock()
	return nil
}

// Launches reports how many kernels Launch has dispatched, for tests.
func (s *Sim) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

func (s *Sim) RecordEvent() (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEvent++
	e := Event(s.nextEvent)
	s.events[e] = struct{}{}
	return e, nil
}

func (s *Sim) SynchronizeEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e]; !ok {
		return fmt.Errorf("ptxdrv/sim: unknown event %d", e)
	}
	return nil
}

// ElapsedTimeMillis returns a deterministic, non-zero synthetic
// duration derived from the event handles, since the simulator has no
// real clock to bracket.
func (s *Sim) ElapsedTimeMillis(start, end Event) (float32, error) {
	if end <= start {
		return 0, fmt.Errorf("ptxdrv/sim: end event %d not after start event %d", end, start)
	}
	return float32(end-start) * 0.1, nil
}

func (s *Sim) BindTexture(m Module, name string, addr uint64, byteLen int64) error {
	s.mu.Lock()
	_, ok := s.modules[m]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("ptxdrv/sim: unknown module %d", m)
	}
	if byteLen <= 0 {
		return fmt.Errorf("ptxdrv/sim: texture %q needs a positive byte length", name)
	}
	return nil
}

func (s *Sim) Shutdown() error { return nil }
