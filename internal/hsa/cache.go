package hsa

import (
	"fmt"
	"os"

	"github.com/dcrandall/hetrt/internal/drivers/hsadrv"
	"github.com/dcrandall/hetrt/internal/jit"
	"github.com/dcrandall/hetrt/internal/kernelfile"
	"github.com/dcrandall/hetrt/internal/logging"
	"github.com/dcrandall/hetrt/internal/metrics"
	"github.com/dcrandall/hetrt/internal/progreg"
)

// resolveKernel implements the two-level program/kernel
// cache exactly: the device mutex is held only around map lookups and
// inserts, and released across filesystem I/O, JIT compilation and
// symbol resolution so a slow compile on one device never stalls
// another. Two threads racing to resolve the same (file, kernel) both
// do the work; the loser's compiled executable is destroyed rather
// than leaked.
func (p *Platform) resolveKernel(d *device, file, name string) (hsadrv.KernelSymbol, error) {
	d.mu.Lock()
	exec, ok := d.programCache[file]
	d.mu.Unlock()

	if !ok {
		loaded, err := p.loadProgram(d, file)
		if err != nil {
			return hsadrv.KernelSymbol{}, err
		}

		d.mu.Lock()
		if existing, already := d.programCache[file]; already {
			// Lost the race: the first writer wins; this compile's
			// executable must not leak.
			d.mu.Unlock()
			if err := p.driver.DestroyExecutable(loaded); err != nil {
				logging.Warn("hsa: destroy losing executable failed", "err", err)
			}
			exec = existing
		} else {
			d.programCache[file] = loaded
			d.mu.Unlock()
			exec = loaded
			metrics.Global.RecordCompile(false)
		}
	} else {
		metrics.Global.RecordCompile(true)
	}

	if !exec.Valid {
		logging.Warn("hsa: executable validation failed (non-fatal)", "file", file)
	}

	key := kernelKey{exec: exec.Handle, name: name}
	d.mu.Lock()
	sym, ok := d.kernelCache[key]
	d.mu.Unlock()
	if ok {
		return sym, nil
	}

	sym, err := p.driver.GetSymbol(exec, name)
	if err != nil {
		return hsadrv.KernelSymbol{}, fmt.Errorf("hsa: resolve kernel %q in %q: %w", name, file, err)
	}

	d.mu.Lock()
	if existing, already := d.kernelCache[key]; already {
		sym = existing
	} else {
		d.kernelCache[key] = sym
	}
	d.mu.Unlock()
	return sym, nil
}

// loadProgram loads or compiles file into an executable on d's agent:
// native binaries load verbatim, IR source goes through the JIT
// pipeline keyed on the agent's ISA string.
func (p *Platform) loadProgram(d *device, file string) (hsadrv.Executable, error) {
	kind := kernelfile.Classify(file)
	if kind == kernelfile.KindUnknown {
		return hsadrv.Executable{}, fmt.Errorf("hsa: unrecognized kernel file extension: %s", file)
	}

	var binary []byte
	if kind.RequiresCompilation() {
		text, err := p.loadIRText(file)
		if err != nil {
			return hsadrv.Executable{}, fmt.Errorf("hsa: load IR %q: %w", file, err)
		}
		bin, err := jit.CompileHSA(text, d.agent.ISA, jit.HSAOptions{OptLevel: 2})
		if err != nil {
			return hsadrv.Executable{}, fmt.Errorf("hsa: compile %q for %s: %w", file, d.agent.ISA, err)
		}
		binary = bin
	} else {
		bin, err := os.ReadFile(file)
		if err != nil {
			return hsadrv.Executable{}, fmt.Errorf("hsa: read native code object %q: %w", file, err)
		}
		binary = bin
	}

	return p.driver.LoadCodeObject(d.agent, binary)
}

// loadIRText resolves file's IR text, preferring the process-wide
// program-string registry over the filesystem.
func (p *Platform) loadIRText(file string) (string, error) {
	if p.progs != nil {
		return p.progs.LoadFile(file)
	}
	return progreg.New().LoadFile(file)
}
