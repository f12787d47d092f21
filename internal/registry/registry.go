// Package registry implements the platform dispatch core: it owns the
// ordered list of platforms, decodes device ids, validates inputs, and
// routes each operation to the platform that owns the target device.
// Generalizes a one-backend, many-queues construct-and-serve
// orchestration into many backends, many devices.
package registry

import (
	"github.com/dcrandall/hetrt/internal/platform"
)

// FaultKind distinguishes the programmer-error conditions the registry
// itself detects, as opposed to errors a Platform implementation
// returns (which are backend errors).
type FaultKind int

const (
	FaultUnknownPlatform FaultKind = iota
	FaultInvalidDevice
	FaultNegativeSize
)

// Fault is a registry-level validation failure: unknown platform tag,
// out-of-range device index, or a negative size. Inputs are
// validated before dispatch: platform tag must be registered, device
// index must exist, and negative sizes are rejected.
type Fault struct {
	Kind FaultKind
	Op   string
	Msg  string
}

func (f *Fault) Error() string { return f.Msg }

// Registry owns every constructed Platform and dispatches ABI-shaped
// calls to the one that owns the target device.
type Registry struct {
	byTag map[platform.Tag]platform.Platform
	order []platform.Tag // construction order; Close tears down in reverse
}

// New returns an empty Registry. Platforms are registered with
// Register in a fixed construction order: host first, then each
// accelerator platform in turn.
func New() *Registry {
	return &Registry{byTag: make(map[platform.Tag]platform.Platform)}
}

// Register adds a constructed platform. Registering the same tag twice
// replaces the previous entry without affecting construction order.
func (r *Registry) Register(p platform.Platform) {
	tag := p.Tag()
	if _, exists := r.byTag[tag]; !exists {
		r.order = append(r.order, tag)
	}
	r.byTag[tag] = p
}

// Platform returns the registered platform for tag, if any.
func (r *Registry) Platform(tag platform.Tag) (platform.Platform, bool) {
	p, ok := r.byTag[tag]
	return p, ok
}

func (r *Registry) lookup(op string, id DeviceId) (platform.Platform, int, error) {
	tag, index := Decode(id)
	p, ok := r.byTag[tag]
	if !ok {
		return nil, 0, &Fault{Kind: FaultUnknownPlatform, Op: op, Msg: "unknown platform tag " + tagString(tag)}
	}
	if index < 0 || index >= p.NumDevices() {
		return nil, 0, &Fault{Kind: FaultInvalidDevice, Op: op, Msg: "invalid device index"}
	}
	return p, index, nil
}

func tagString(tag platform.Tag) string {
	return tag.String() + " (" + itoa(int(tag)) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// LookupDevice validates id and returns the platform that owns it and
// its intra-platform device index, for callers (like GetDevicePtr)
// that only need to validate a device id without dispatching an
// operation through it.
func (r *Registry) LookupDevice(id DeviceId) (platform.Platform, int, error) {
	return r.lookup("get_device_ptr", id)
}

// Alloc validates and dispatches an allocation.
// bytes==0 yields a nil pointer without touching the backend.
func (r *Registry) Alloc(id DeviceId, bytes int64) (uint64, error) {
	if bytes < 0 {
		return 0, &Fault{Kind: FaultNegativeSize, Op: "alloc", Msg: "negative allocation size"}
	}
	if bytes == 0 {
		return 0, nil
	}
	p, dev, err := r.lookup("alloc", id)
	if err != nil {
		return 0, err
	}
	return p.Alloc(dev, bytes)
}

// AllocHost mirrors Alloc for host-accessible memory.
func (r *Registry) AllocHost(id DeviceId, bytes int64) (uint64, error) {
	if bytes < 0 {
		return 0, &Fault{Kind: FaultNegativeSize, Op: "alloc_host", Msg: "negative allocation size"}
	}
	if bytes == 0 {
		return 0, nil
	}
	p, dev, err := r.lookup("alloc_host", id)
	if err != nil {
		return 0, err
	}
	return p.AllocHost(dev, bytes)
}

// AllocUnified mirrors Alloc for unified memory.
func (r *Registry) AllocUnified(id DeviceId, bytes int64) (uint64, error) {
	if bytes < 0 {
		return 0, &Fault{Kind: FaultNegativeSize, Op: "alloc_unified", Msg: "negative allocation size"}
	}
	if bytes == 0 {
		return 0, nil
	}
	p, dev, err := r.lookup("alloc_unified", id)
	if err != nil {
		return 0, err
	}
	return p.AllocUnified(dev, bytes)
}

// Release frees ptr on the device named by id.
func (r *Registry) Release(id DeviceId, ptr uint64) error {
	if ptr == 0 {
		return nil
	}
	p, dev, err := r.lookup("release", id)
	if err != nil {
		return err
	}
	return p.Release(dev, ptr)
}

// ReleaseHost frees a host-accessible pointer.
func (r *Registry) ReleaseHost(id DeviceId, ptr uint64) error {
	if ptr == 0 {
		return nil
	}
	p, dev, err := r.lookup("release_host", id)
	if err != nil {
		return err
	}
	return p.ReleaseHost(dev, ptr)
}

// Copy moves bytes from (srcID, srcPtr+srcOff) to (dstID, dstPtr+dstOff).
// Same-platform-and-device copies delegate directly to the platform
// (which may use device-side DMA); everything else is mediated through
// a host staging buffer.
func (r *Registry) Copy(srcID, dstID DeviceId, srcPtr uint64, srcOff int64, dstPtr uint64, dstOff int64, bytes int64) error {
	if bytes < 0 {
		return &Fault{Kind: FaultNegativeSize, Op: "copy", Msg: "negative copy size"}
	}
	if bytes == 0 {
		return nil
	}

	srcPlat, srcDev, err := r.lookup("copy", srcID)
	if err != nil {
		return err
	}
	dstPlat, dstDev, err := r.lookup("copy", dstID)
	if err != nil {
		return err
	}

	if srcPlat.Tag() == dstPlat.Tag() && srcDev == dstDev {
		return srcPlat.CopyDeviceToDevice(srcDev, dstPtr, dstOff, srcPtr, srcOff, bytes)
	}

	staging := make([]byte, bytes)
	if err := srcPlat.ReadAt(srcDev, srcPtr, srcOff, staging); err != nil {
		return err
	}
	return dstPlat.WriteAt(dstDev, dstPtr, dstOff, staging)
}

// LoadKernel resolves (file, name) on the device named by id.
func (r *Registry) LoadKernel(id DeviceId, file, name string) error {
	p, dev, err := r.lookup("load_kernel", id)
	if err != nil {
		return err
	}
	return p.LoadKernel(dev, file, name)
}

// LaunchKernel dispatches req on the device named by id.
func (r *Registry) LaunchKernel(id DeviceId, req platform.LaunchRequest) error {
	p, dev, err := r.lookup("launch_kernel", id)
	if err != nil {
		return err
	}
	return p.LaunchKernel(dev, req)
}

// Synchronize blocks until every kernel previously launched on the
// device named by id has completed.
func (r *Registry) Synchronize(id DeviceId) error {
	p, dev, err := r.lookup("synchronize", id)
	if err != nil {
		return err
	}
	return p.Synchronize(dev)
}

// Close tears down every registered platform in reverse construction
// order.
func (r *Registry) Close() error {
	var first error
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.byTag[r.order[i]]
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
