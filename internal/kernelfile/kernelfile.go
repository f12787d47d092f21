// Package kernelfile classifies a kernel file path into a Kind so the
// platform layer knows whether to hand it to a JIT pipeline or load it
// as a pre-compiled binary image.
package kernelfile

import (
	"path/filepath"
	"strings"
)

// Kind distinguishes how a kernel file's contents must be interpreted.
type Kind int

const (
	// KindUnknown marks an extension the runtime does not recognize.
	KindUnknown Kind = iota
	// KindNativeBinary is a generic pre-linked native shared object,
	// loaded directly.
	KindNativeBinary
	// KindHSACO is a pre-linked HSA code object, loaded directly.
	KindHSACO
	// KindCubin is a pre-compiled CUDA binary image, loaded directly.
	KindCubin
	// KindPTX is already the CUDA driver's JIT-loadable target format
	// — the output of an NVVM compile, not its input — so it loads
	// directly without a second compile pass.
	KindPTX
	// KindLLVMIR is portable LLVM intermediate representation text or
	// bitcode, compiled through the HSA JIT pipeline before it can
	// load.
	KindLLVMIR
	// KindSourceText is portable kernel source compiled through a
	// vendor JIT (nvrtc for CUDA, the HSA toolchain for ROCm) before
	// it can load.
	KindSourceText
)

var byExt = map[string]Kind{
	".so":     KindNativeBinary,
	".hsaco":  KindHSACO,
	".cubin":  KindCubin,
	".fatbin": KindCubin,
	".ptx":    KindPTX,
	".ll":     KindLLVMIR,
	".bc":     KindLLVMIR,
	".cu":     KindSourceText,
	".rocl":   KindSourceText,
}

// Classify returns the Kind implied by path's extension. Unknown
// extensions return KindUnknown; the caller turns that into a
// configuration error.
func Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	return byExt[ext]
}

// RequiresCompilation reports whether a kernel file of this Kind must
// pass through a JIT pipeline before it can be loaded onto a device.
func (k Kind) RequiresCompilation() bool {
	return k == KindLLVMIR || k == KindSourceText
}

func (k Kind) String() string {
	switch k {
	case KindNativeBinary:
		return "native"
	case KindHSACO:
		return "hsaco"
	case KindCubin:
		return "cubin"
	case KindPTX:
		return "ptx"
	case KindLLVMIR:
		return "llvm-ir"
	case KindSourceText:
		return "source"
	default:
		return "unknown"
	}
}
