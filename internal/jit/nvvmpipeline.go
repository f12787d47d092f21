package jit

import (
	"fmt"

	"github.com/dcrandall/hetrt/internal/drivers/ptxdrv"
)

// CompileNVVM lowers irText to PTX via drv's vendor compiler. Unlike
// the HSA path, the NVVM pipeline is provided entirely by the backend
// compiler (nvrtc) and needs no in-process linker: this function is a
// thin wrapper that fetches and reports the compiler's log before
// returning the failure.
func CompileNVVM(drv ptxdrv.Driver, irText, targetArch string) (string, error) {
	ptx, log, err := drv.Compile(irText, targetArch)
	if err != nil {
		if log != "" {
			return "", fmt.Errorf("jit: nvvm compile failed: %s: %w", log, err)
		}
		return "", fmt.Errorf("jit: nvvm compile failed: %w", err)
	}
	return ptx, nil
}
