// Package cuda implements the driver+NVVM-class accelerator platform:
// per-device module/function caching, byte-sized memory management,
// ceiling-division grid computation, event-timed launches and optional
// texture binding.
package cuda

import (
	"sync"

	"github.com/dcrandall/hetrt/internal/drivers/ptxdrv"
)

// funcKey identifies one resolved kernel function: the module it came
// from and the entry point name within it.
type funcKey struct {
	module ptxdrv.Module
	name   string
}

// device holds the per-GPU state: static capability info plus the two
// caches kept per-device rather than as process-global handles, the
// same shape internal/hsa/device.go uses. The mutex guards the caches
// only.
type device struct {
	info ptxdrv.DeviceInfo

	mu          sync.Mutex
	moduleCache map[string]ptxdrv.Module // kernel file path -> loaded module
	funcCache   map[funcKey]ptxdrv.Function
}

func newDevice(info ptxdrv.DeviceInfo) *device {
	return &device{
		info:        info,
		moduleCache: make(map[string]ptxdrv.Module),
		funcCache:   make(map[funcKey]ptxdrv.Function),
	}
}
