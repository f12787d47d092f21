package cuda

import "fmt"

// BindTexture resolves file's module on device and binds a named
// texture reference to addr, read as integer, spanning byteLen bytes.
// byteLen is an explicit parameter rather than a hard-coded dimension
// product, so no caller-specific size assumption leaks into the
// platform. Binding is optional — only kernels that declare a matching
// texture reference need it.
func (p *Platform) BindTexture(index int, file, name string, addr uint64, byteLen int64) error {
	d, err := p.device(index)
	if err != nil {
		return err
	}
	if byteLen <= 0 {
		return fmt.Errorf("cuda: texture %q needs a positive byte length, got %d", name, byteLen)
	}

	d.mu.Lock()
	mod, ok := d.moduleCache[file]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("cuda: bind texture %q: %q not loaded on device %d; call LoadKernel first", name, file, index)
	}

	return p.driver.BindTexture(mod, name, addr, byteLen)
}
