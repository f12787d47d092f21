package cuda

import (
	"fmt"
	"os"

	"github.com/dcrandall/hetrt/internal/drivers/ptxdrv"
	"github.com/dcrandall/hetrt/internal/jit"
	"github.com/dcrandall/hetrt/internal/kernelfile"
	"github.com/dcrandall/hetrt/internal/metrics"
	"github.com/dcrandall/hetrt/internal/progreg"
)

// resolveFunction implements the kernel pipeline: read IR
// (or a pre-compiled cubin), compile through the NVVM path if needed,
// JIT-load into a module, and resolve the named entry point — each
// step cached per device, with the device mutex held only around the
// cache map accesses, mirroring internal/hsa/cache.go's lock
// discipline.
func (p *Platform) resolveFunction(d *device, file, name string) (ptxdrv.Function, error) {
	d.mu.Lock()
	mod, ok := d.moduleCache[file]
	d.mu.Unlock()

	if !ok {
		loaded, err := p.loadModule(d, file)
		if err != nil {
			return 0, err
		}
		d.mu.Lock()
		if existing, already := d.moduleCache[file]; already {
			mod = existing
		} else {
			d.moduleCache[file] = loaded
			mod = loaded
			metrics.Global.RecordCompile(false)
		}
		d.mu.Unlock()
	} else {
		metrics.Global.RecordCompile(true)
	}

	key := funcKey{module: mod, name: name}
	d.mu.Lock()
	fn, ok := d.funcCache[key]
	d.mu.Unlock()
	if ok {
		return fn, nil
	}

	fn, err := p.driver.GetFunction(mod, name)
	if err != nil {
		return 0, fmt.Errorf("cuda: resolve kernel %q in %q: %w", name, file, err)
	}

	d.mu.Lock()
	if existing, already := d.funcCache[key]; already {
		fn = existing
	} else {
		d.funcCache[key] = fn
	}
	d.mu.Unlock()
	return fn, nil
}

// loadModule reads file, compiling it through the NVVM pipeline when
// it is IR source rather than a pre-compiled cubin, and JIT-loads the
// result into the current context at d's compute capability.
func (p *Platform) loadModule(d *device, file string) (ptxdrv.Module, error) {
	kind := kernelfile.Classify(file)
	if kind == kernelfile.KindUnknown {
		return 0, fmt.Errorf("cuda: unrecognized kernel file extension: %s", file)
	}

	var ptx string
	if kind.RequiresCompilation() {
		text, err := p.loadIRText(file)
		if err != nil {
			return 0, fmt.Errorf("cuda: load IR %q: %w", file, err)
		}
		arch := fmt.Sprintf("sm_%d%d", d.info.ComputeCapMajor, d.info.ComputeCapMinor)
		compiled, err := jit.CompileNVVM(p.driver, text, arch)
		if err != nil {
			return 0, fmt.Errorf("cuda: compile %q for %s: %w", file, arch, err)
		}
		ptx = compiled
	} else {
		bin, err := os.ReadFile(file)
		if err != nil {
			return 0, fmt.Errorf("cuda: read cubin %q: %w", file, err)
		}
		ptx = string(bin)
	}

	return p.driver.LoadModule(ptx, d.info.ComputeCapMajor, d.info.ComputeCapMinor)
}

// loadIRText resolves file's IR text, preferring the process-wide
// program-string registry over the filesystem, exactly
// like internal/hsa.Platform.loadIRText.
func (p *Platform) loadIRText(file string) (string, error) {
	if p.progs != nil {
		return p.progs.LoadFile(file)
	}
	return progreg.New().LoadFile(file)
}
