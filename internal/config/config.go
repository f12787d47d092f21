// Package config holds process-wide defaults and environment-variable
// overrides for the device runtime: timing and sizing constants kept
// in one place rather than scattered as literals.
package config

import (
	"os"
	"time"
)

// Kernarg packing limits.
const (
	// KernargAlignCap is the maximum per-argument alignment for a
	// kernarg buffer; an argument's natural alignment is
	// min(size, KernargAlignCap). internal/kernarg applies the same cap
	// through its own alignCap constant and does not read this one.
	KernargAlignCap = 8

	// DefaultKernelCacheCapacityHint is a size hint for a device's
	// program/kernel cache maps. The HSA and CUDA device constructors
	// do not read it: their caches start empty and grow unbounded.
	DefaultKernelCacheCapacityHint = 16
)

// Queue/signal defaults for the HSA-class platform.
const (
	// DefaultQueueSize is the number of AQL packet slots per device
	// queue. Must be a power of two (index wraps via bitmask).
	DefaultQueueSize = 256

	// DefaultReaperBacklog bounds the per-device completion-reaper
	// channel; a launch blocks submitting to the reaper once this many
	// completions are outstanding and unprocessed.
	DefaultReaperBacklog = 1024
)

// Device bring-up timing: accelerator agent enumeration and
// queue/signal creation are synchronous backend calls, so there is
// far less slack needed than a device that polls for initial state.
const (
	// DriverInitTimeout is a time budget for a backend driver
	// init/enumerate call. Platform construction does not read it: those
	// calls run to completion with no timeout.
	DriverInitTimeout = 5 * time.Second
)

// Environment variable names. A faithful rewrite never hard-codes
// filesystem paths for optional auxiliary libraries; it reads them from
// the environment with a documented fallback.
const (
	// EnvOCMLPath overrides the path to the AMD OCML math-library
	// bitcode linked into every compiled HSA kernel.
	EnvOCMLPath = "HETRT_OCML_PATH"

	// EnvIRIFPath overrides the path to the AMD device-library
	// interface bitcode linked into every compiled HSA kernel.
	EnvIRIFPath = "HETRT_IRIF_PATH"

	// EnvCUDACacheDisable is the NVIDIA driver's own variable for
	// disabling the on-disk JIT cache; set during driver init so that
	// every recompile actually runs the pipeline under test.
	EnvCUDACacheDisable = "CUDA_CACHE_DISABLE"

	// EnvLLVMTools lets callers point at a non-default prefix for the
	// HSA JIT pipeline's llvm-as, llvm-link and llc tools; the linker is
	// chosen by EnvLinker instead.
	EnvLLVMTools = "HETRT_LLVM_TOOLS_PREFIX"

	// EnvLinker overrides the system linker invoked to turn the JIT
	// pipeline's object file into a loadable shared object.
	EnvLinker = "HETRT_LINKER"

	// EnvProfiling enables the HSA platform's per-launch profiling
	// signal when set to a recognized truthy value. CUDA launches are
	// event-timed whether or not it is set.
	EnvProfiling = "HETRT_PROFILE"
)

const (
	defaultOCMLPath = "/opt/rocm/lib/ocml.amdgcn.bc"
	defaultIRIFPath = "/opt/rocm/lib/irif.amdgcn.bc"
)

// OCMLPath returns the configured or default path to the OCML bitcode.
func OCMLPath() string {
	if v := os.Getenv(EnvOCMLPath); v != "" {
		return v
	}
	return defaultOCMLPath
}

// IRIFPath returns the configured or default path to the IRIF bitcode.
func IRIFPath() string {
	if v := os.Getenv(EnvIRIFPath); v != "" {
		return v
	}
	return defaultIRIFPath
}

// LLVMToolsPrefix returns the configured prefix to prepend to llvm-as,
// llvm-link and llc (e.g. "/usr/lib/llvm-18/bin/"). Empty means
// "resolve from PATH". The linker from Linker() is not prefixed.
func LLVMToolsPrefix() string {
	return os.Getenv(EnvLLVMTools)
}

// Linker returns the system linker command used to turn the HSA JIT
// pipeline's object file into a shared object, defaulting to "cc".
func Linker() string {
	if v := os.Getenv(EnvLinker); v != "" {
		return v
	}
	return "cc"
}

// Profiling reports whether per-launch profiling should be enabled by
// default, read from EnvProfiling. Unset or unrecognized values default
// to disabled.
func Profiling() bool {
	switch os.Getenv(EnvProfiling) {
	case "1", "true", "TRUE", "yes":
		return true
	default:
		return false
	}
}
