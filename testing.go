package hetrt

import "os"

// NewSimRuntime is the constructor tests and downstream integration
// suites use to get a fully wired Runtime without any real accelerator
// hardware: every platform is backed by its in-process simulator
// (hsadrv.Sim / ptxdrv.Sim), handing callers a fake backend instead of
// real accelerator hardware. hsaAgents and
// cudaDevices size each simulator's device count; zero defaults both
// to one device.
func NewSimRuntime(hsaAgents, cudaDevices int) (*Runtime, error) {
	if hsaAgents <= 0 {
		hsaAgents = 1
	}
	if cudaDevices <= 0 {
		cudaDevices = 1
	}
	return New(Options{HSAAgents: hsaAgents, CUDADevices: cudaDevices})
}

// WriteFakeKernelFile writes a minimal, syntactically-empty kernel
// file to path so tests can exercise LoadKernel/LaunchKernel against a
// real filesystem path without a real compiler: native-binary
// extensions (.hsaco/.cubin/.fatbin) just need non-empty bytes for the
// simulators' LoadCodeObject/LoadModule to accept, and this writes
// exactly that. It is not meant for IR-source extensions, which need
// text a real or stubbed JIT pipeline can parse instead.
func WriteFakeKernelFile(path string) error {
	return os.WriteFile(path, []byte("hetrt-fake-kernel-binary"), 0o644)
}
