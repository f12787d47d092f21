//go:build cudadrv

package ptxdrv

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/dcrandall/hetrt/internal/config"
)

/*
#cgo LDFLAGS: -lcuda -lnvrtc -Wl,--unresolved-symbols=ignore-in-object-files

#include <cuda.h>
*/
import "C"

// Real is the cgo binding against libcuda/libnvrtc, in the style
// NVIDIA's own device-plugin cgo bindings use: flat C preamble, #cgo
// LDFLAGS with --unresolved-symbols=ignore so the binary still links
// on a build host without the driver installed. Only compiled with
// -tags cudadrv; every other build uses Sim.
type Real struct {
	ctx C.CUcontext
}

// NewReal constructs a Real binding. Init must still be called.
func NewReal() *Real {
	return &Real{}
}

func (r *Real) Init() error {
	if _, set := os.LookupEnv(config.EnvCUDACacheDisable); !set {
		os.Setenv(config.EnvCUDACacheDisable, "1")
	}
	if res := C.cuInit(0); res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuInit failed: code %d", int(res))
	}
	var dev C.CUdevice
	if res := C.cuDeviceGet(&dev, 0); res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuDeviceGet(0) failed: code %d", int(res))
	}
	if res := C.cuCtxCreate(&r.ctx, 0, dev); res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuCtxCreate failed: code %d", int(res))
	}
	return nil
}

func (r *Real) DeviceCount() (int, error) {
	var n C.int
	if res := C.cuDeviceGetCount(&n); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuDeviceGetCount failed: code %d", int(res))
	}
	return int(n), nil
}

func (r *Real) DeviceInfo(i int) (DeviceInfo, error) {
	var dev C.CUdevice
	if res := C.cuDeviceGet(&dev, C.int(i)); res != C.CUDA_SUCCESS {
		return DeviceInfo{}, fmt.Errorf("ptxdrv: cuDeviceGet(%d) failed: code %d", i, int(res))
	}
	var major, minor C.int
	C.cuDeviceGetAttribute(&major, C.CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MAJOR, dev)
	C.cuDeviceGetAttribute(&minor, C.CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MINOR, dev)
	var name [256]C.char
	C.cuDeviceGetName(&name[0], 256, dev)
	return DeviceInfo{
		Name:            C.GoString(&name[0]),
		ComputeCapMajor: int(major),
		ComputeCapMinor: int(minor),
	}, nil
}

func (r *Real) DriverVersion() (string, error) {
	var v C.int
	if res := C.cuDriverGetVersion(&v); res != C.CUDA_SUCCESS {
		return "", fmt.Errorf("ptxdrv: cuDriverGetVersion failed: code %d", int(res))
	}
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10), nil
}

func (r *Real) CompilerVersion() (string, error) {
	// nvrtcVersion requires the nvrtc header/bridge, intentionally left
	// out of this minimal binding; driver version is the operative
	// diagnostic for the init log.
	return "nvrtc (unknown)", nil
}

func (r *Real) Alloc(bytes int64) (uint64, error) {
	var dptr C.CUdeviceptr
	if res := C.cuMemAlloc(&dptr, C.size_t(bytes)); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuMemAlloc(%d) failed: code %d", bytes, int(res))
	}
	return uint64(dptr), nil
}

func (r *Real) Free(ptr uint64) error {
	if res := C.cuMemFree(C.CUdeviceptr(ptr)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuMemFree failed: code %d", int(res))
	}
	return nil
}

func (r *Real) Copy(dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	res := C.cuMemcpyDtoD(C.CUdeviceptr(dstPtr+uint64(dstOff)), C.CUdeviceptr(srcPtr+uint64(srcOff)), C.size_t(bytes))
	if res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuMemcpyDtoD failed: code %d", int(res))
	}
	return nil
}

func (r *Real) Read(ptr uint64, off int64, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	res := C.cuMemcpyDtoH(unsafe.Pointer(&dst[0]), C.CUdeviceptr(ptr+uint64(off)), C.size_t(len(dst)))
	if res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuMemcpyDtoH failed: code %d", int(res))
	}
	return nil
}

func (r *Real) Write(ptr uint64, off int64, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	res := C.cuMemcpyHtoD(C.CUdeviceptr(ptr+uint64(off)), unsafe.Pointer(&src[0]), C.size_t(len(src)))
	if res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuMemcpyHtoD failed: code %d", int(res))
	}
	return nil
}

func (r *Real) Compile(ir string, targetArch string) (string, string, error) {
	return "", "", fmt.Errorf("ptxdrv: Compile requires nvrtc wiring, not present in this build")
}

func (r *Real) LoadModule(ptx string, ccMajor, ccMinor int) (Module, error) {
	var mod C.CUmodule
	cstr := C.CString(ptx)
	defer C.free(unsafe.Pointer(cstr))
	if res := C.cuModuleLoadData(&mod, unsafe.Pointer(cstr)); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuModuleLoadData failed: code %d", int(res))
	}
	return Module(uintptr(unsafe.Pointer(mod))), nil
}

func (r *Real) GetFunction(m Module, name string) (Function, error) {
	var fn C.CUfunction
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	mod := (C.CUmodule)(unsafe.Pointer(uintptr(m)))
	if res := C.cuModuleGetFunction(&fn, mod, cname); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuModuleGetFunction(%s) failed: code %d", name, int(res))
	}
	return Function(uintptr(unsafe.Pointer(fn))), nil
}

func (r *Real) Launch(fn Function, grid, block [3]int, sharedMemBytes int, args []uintptr) error {
	cfn := (C.CUfunction)(unsafe.Pointer(uintptr(fn)))
	var argv unsafe.Pointer
	if len(args) > 0 {
		argv = unsafe.Pointer(&args[0])
	}
	res := C.cuLaunchKernel(cfn,
		C.uint(grid[0]), C.uint(grid[1]), C.uint(grid[2]),
		C.uint(block[0]), C.uint(block[1]), C.uint(block[2]),
		C.uint(sharedMemBytes), nil, (*unsafe.Pointer)(argv), nil)
	if res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuLaunchKernel failed: code %d", int(res))
	}
	return nil
}

func (r *Real) RecordEvent() (Event, error) {
	var ev C.CUevent
	if res := C.cuEventCreate(&ev, 0); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuEventCreate failed: code %d", int(res))
	}
	if res := C.cuEventRecord(ev, nil); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuEventRecord failed: code %d", int(res))
	}
	return Event(uintptr(unsafe.Pointer(ev))), nil
}

func (r *Real) SynchronizeEvent(e Event) error {
	ev := (C.CUevent)(unsafe.Pointer(uintptr(e)))
	if res := C.cuEventSynchronize(ev); res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptxdrv: cuEventSynchronize failed: code %d", int(res))
	}
	return nil
}

func (r *Real) ElapsedTimeMillis(start, end Event) (float32, error) {
	var ms C.float
	startEv := (C.CUevent)(unsafe.Pointer(uintptr(start)))
	endEv := (C.CUevent)(unsafe.Pointer(uintptr(end)))
	if res := C.cuEventElapsedTime(&ms, startEv, endEv); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("ptxdrv: cuEventElapsedTime failed: code %d", int(res))
	}
	return float32(ms), nil
}

func (r *Real) BindTexture(m Module, name string, addr uint64, byteLen int64) error {
	return fmt.Errorf("ptxdrv: BindTexture requires cuTexRefGetAddress wiring, not present in this build")
}

func (r *Real) Shutdown() error {
	if r.ctx != nil {
		C.cuCtxDestroy(r.ctx)
	}
	return nil
}
