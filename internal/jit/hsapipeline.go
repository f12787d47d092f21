// Package jit lowers portable kernel IR to a backend-native binary.
// No usable LLVM Go binding exists in the wider ecosystem (no
// llvm.org/llvm/... bindings maintained against current LLVM
// releases, no stable cgo LLVM-C wrapper), so the HSA path shells out
// to the llvm-as/llc/llvm-link/linker toolchain via os/exec instead.
package jit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/dcrandall/hetrt/internal/config"
)

// HSAOptions configures one CompileHSA call. Grid/launch parameters
// never belong here — this is compile-time configuration only, passed
// through per call rather than held in package-level statics.
type HSAOptions struct {
	OptLevel int // 0-3, passed to llc -O<level>
	Config   *runtimeConfig
}

var isaVersionRe = regexp.MustCompile(`(\d+)$`)

func isaVersion(isa string) int {
	m := isaVersionRe.FindStringSubmatch(isa)
	if m == nil {
		return 0
	}
	v, _ := strconv.Atoi(m[1])
	return v
}

func tool(name string) string {
	return filepath.Join(config.LLVMToolsPrefix(), name)
}

// CompileHSA lowers irText (textual LLVM IR) to a GCN shared-object
// binary for isa (e.g. "gfx906"): parse the IR with llvm-as, assemble
// the synthesized config module, check that the OCML and IRIF bitcode
// files exist, link kernel, config, OCML and IRIF with
// llvm-link -only-needed, emit an object file with llc for the AMDGPU
// target (PIC relocation, kernel code model, -O<OptLevel>, unsafe FP
// math from the config), invoke the system linker, and read the
// resulting shared object back. No module's data layout is
// overridden, no separate opt/inlining pass runs, and no FP-fusion
// flag is passed to llc.
func CompileHSA(irText, isa string, opts HSAOptions) ([]byte, error) {
	if opts.Config == nil {
		cfg := defaultRuntimeConfig
		cfg.ISAVersion = isaVersion(isa)
		opts.Config = &cfg
	}

	dir, err := os.MkdirTemp("", "hetrt-hsa-jit-*")
	if err != nil {
		return nil, fmt.Errorf("jit: create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	kernelLL := filepath.Join(dir, "kernel.ll")
	if err := os.WriteFile(kernelLL, []byte(irText), 0o644); err != nil {
		return nil, fmt.Errorf("jit: write kernel IR: %w", err)
	}
	kernelBC, err := assemble(dir, "kernel", kernelLL)
	if err != nil {
		return nil, fmt.Errorf("jit: parse IR: %w", err)
	}

	configLL := filepath.Join(dir, "config.ll")
	if err := os.WriteFile(configLL, []byte(synthesizeConfigModule(*opts.Config)), 0o644); err != nil {
		return nil, fmt.Errorf("jit: write config module: %w", err)
	}
	configBC, err := assemble(dir, "config", configLL)
	if err != nil {
		return nil, fmt.Errorf("jit: assemble config module: %w", err)
	}

	auxLibs := []string{config.OCMLPath(), config.IRIFPath()}
	for _, lib := range auxLibs {
		if _, err := os.Stat(lib); err != nil {
			return nil, fmt.Errorf("jit: auxiliary module load failed: %s: %w", lib, err)
		}
	}

	linkedBC := filepath.Join(dir, "linked.bc")
	linkArgs := append([]string{"-only-needed", "-o", linkedBC, kernelBC, configBC}, auxLibs...)
	if out, err := run(tool("llvm-link"), linkArgs...); err != nil {
		return nil, fmt.Errorf("jit: link failed: %w: %s", err, out)
	}

	objFile := filepath.Join(dir, "kernel.o")
	llcArgs := []string{
		"-mtriple=amdgcn-amd-amdhsa",
		"-mcpu=" + isa,
		"-O" + strconv.Itoa(clampOptLevel(opts.OptLevel)),
		"-relocation-model=pic",
		"-code-model=kernel",
		"-enable-unsafe-fp-math=" + boolFlag(opts.Config.UnsafeMath),
		"-filetype=obj",
		"-o", objFile,
		linkedBC,
	}
	if out, err := run(tool("llc"), llcArgs...); err != nil {
		return nil, fmt.Errorf("jit: codegen failed: %w: %s", err, out)
	}

	soFile := filepath.Join(dir, "kernel.so")
	if out, err := run(config.Linker(), "-shared", "-o", soFile, objFile); err != nil {
		return nil, fmt.Errorf("jit: linker invocation failed: %w: %s", err, out)
	}

	bin, err := os.ReadFile(soFile)
	if err != nil {
		return nil, fmt.Errorf("jit: read linked shared object: %w", err)
	}
	return bin, nil
}

func clampOptLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 3 {
		return 3
	}
	return level
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// assemble runs llvm-as over an IR text file, returning the produced
// bitcode path. A non-zero exit here is an IR parse failure.
func assemble(dir, name, llPath string) (string, error) {
	bcPath := filepath.Join(dir, name+".bc")
	if out, err := run(tool("llvm-as"), "-o", bcPath, llPath); err != nil {
		return "", fmt.Errorf("%w: %s", err, out)
	}
	return bcPath, nil
}

func run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
