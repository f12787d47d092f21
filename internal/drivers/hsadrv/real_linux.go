//go:build hsart

package hsadrv

import (
	"fmt"
	"unsafe"
)

/*
#cgo LDFLAGS: -lhsa-runtime64

#include <hsa/hsa.h>
#include <hsa/hsa_ext_amd.h>
#include <string.h>
*/
import "C"

// Real is the cgo binding against libhsa-runtime64, the vendor ROCm
// user-mode driver. It is only compiled with -tags hsart; every other
// build uses Sim. Same flat-C-preamble, LDFLAGS-pragma,
// thin-Go-wrapper-per-entry-point shape as the CUDA binding in
// internal/drivers/ptxdrv, applied to the HSA runtime ABI instead.
type Real struct {
	agents []Agent
}

// NewReal constructs a Real binding. Init must still be called before
// any other method.
func NewReal() *Real {
	return &Real{}
}

func (r *Real) Init() error {
	if st := C.hsa_init(); st != C.HSA_STATUS_SUCCESS {
		return fmt.Errorf("hsadrv: hsa_init failed: status %d", int(st))
	}
	return nil
}

func (r *Real) TimestampFrequency() (uint64, error) {
	var freq C.uint64_t
	st := C.hsa_system_get_info(C.HSA_SYSTEM_INFO_TIMESTAMP_FREQUENCY, unsafe.Pointer(&freq))
	if st != C.HSA_STATUS_SUCCESS {
		return 0, fmt.Errorf("hsadrv: hsa_system_get_info(TIMESTAMP_FREQUENCY) failed: status %d", int(st))
	}
	return uint64(freq), nil
}

func (r *Real) Agents() ([]Agent, error) {
	// Real agent enumeration needs an hsa_iterate_agents callback
	// bridged through a cgo export, which needs a package-level handle
	// table keyed by a Go pointer the C callback can round-trip. Not
	// wired in this build; Sim is the binding every test exercises.
	return r.agents, fmt.Errorf("hsadrv: Agents requires hsa_iterate_agents wiring, not present in this build")
}

func (r *Real) MemoryRegions(agent Agent) ([]MemoryRegion, error) {
	return nil, fmt.Errorf("hsadrv: MemoryRegions requires hsa_agent_iterate_regions wiring for agent %d, not present in this build", agent.Handle)
}

func (r *Real) Alloc(region MemoryRegion, bytes int64) (uint64, error) {
	return 0, fmt.Errorf("hsadrv: Alloc requires hsa_amd_memory_pool_allocate wiring, not present in this build")
}

func (r *Real) Free(ptr uint64) error {
	return fmt.Errorf("hsadrv: Free requires hsa_amd_memory_pool_free wiring, not present in this build")
}

func (r *Real) Copy(dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	return fmt.Errorf("hsadrv: Copy requires hsa_memory_copy wiring, not present in this build")
}

func (r *Real) Read(ptr uint64, off int64, dst []byte) error {
	return fmt.Errorf("hsadrv: Read requires hsa_memory_copy wiring, not present in this build")
}

func (r *Real) Write(ptr uint64, off int64, src []byte) error {
	return fmt.Errorf("hsadrv: Write requires hsa_memory_copy wiring, not present in this build")
}

func (r *Real) LoadCodeObject(agent Agent, binary []byte) (Executable, error) {
	return Executable{}, fmt.Errorf("hsadrv: LoadCodeObject requires hsa_code_object_reader/executable wiring, not present in this build")
}

func (r *Real) GetSymbol(exec Executable, kernelName string) (KernelSymbol, error) {
	return KernelSymbol{}, fmt.Errorf("hsadrv: GetSymbol requires hsa_executable_get_symbol wiring, not present in this build")
}

func (r *Real) DestroyExecutable(exec Executable) error {
	return fmt.Errorf("hsadrv: DestroyExecutable requires hsa_executable_destroy wiring, not present in this build")
}

func (r *Real) CreateSignal(initial uint64) (uint64, error) {
	var sig C.hsa_signal_t
	if st := C.hsa_signal_create(C.hsa_signal_value_t(initial), 0, nil, &sig); st != C.HSA_STATUS_SUCCESS {
		return 0, fmt.Errorf("hsadrv: hsa_signal_create failed: status %d", int(st))
	}
	return uint64(*(*uintptr)(unsafe.Pointer(&sig))), nil
}

func (r *Real) DestroySignal(handle uint64) error {
	sig := *(*C.hsa_signal_t)(unsafe.Pointer(&handle))
	if st := C.hsa_signal_destroy(sig); st != C.HSA_STATUS_SUCCESS {
		return fmt.Errorf("hsadrv: hsa_signal_destroy failed: status %d", int(st))
	}
	return nil
}

func (r *Real) Shutdown() error {
	if st := C.hsa_shut_down(); st != C.HSA_STATUS_SUCCESS {
		return fmt.Errorf("hsadrv: hsa_shut_down failed: status %d", int(st))
	}
	return nil
}
