package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrandall/hetrt/internal/platform"
)

// fakePlatform is a minimal in-memory Platform used only to exercise
// Registry dispatch and validation; the real backends live in
// internal/hostplat, internal/hsa and internal/cuda.
type fakePlatform struct {
	tag      platform.Tag
	devices  int
	mem      map[uint64][]byte
	next     uint64
	closed   bool
	onClose  func()
	loadErr  error
	launched []platform.LaunchRequest
}

func newFakePlatform(tag platform.Tag, devices int) *fakePlatform {
	return &fakePlatform{tag: tag, devices: devices, mem: make(map[uint64][]byte), next: 1}
}

func (f *fakePlatform) Tag() platform.Tag { return f.tag }
func (f *fakePlatform) NumDevices() int   { return f.devices }

func (f *fakePlatform) Alloc(device int, bytes int64) (uint64, error) {
	ptr := f.next
	f.next++
	f.mem[ptr] = make([]byte, bytes)
	return ptr, nil
}

func (f *fakePlatform) AllocHost(device int, bytes int64) (uint64, error) {
	return f.Alloc(device, bytes)
}

func (f *fakePlatform) AllocUnified(device int, bytes int64) (uint64, error) {
	return f.Alloc(device, bytes)
}

func (f *fakePlatform) Release(device int, ptr uint64) error {
	delete(f.mem, ptr)
	return nil
}

func (f *fakePlatform) ReleaseHost(device int, ptr uint64) error { return f.Release(device, ptr) }

func (f *fakePlatform) ReadAt(device int, ptr uint64, off int64, p []byte) error {
	copy(p, f.mem[ptr][off:])
	return nil
}

func (f *fakePlatform) WriteAt(device int, ptr uint64, off int64, p []byte) error {
	copy(f.mem[ptr][off:], p)
	return nil
}

func (f *fakePlatform) CopyDeviceToDevice(device int, dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	copy(f.mem[dstPtr][dstOff:], f.mem[srcPtr][srcOff:srcOff+bytes])
	return nil
}

func (f *fakePlatform) LoadKernel(device int, file, name string) error { return f.loadErr }

func (f *fakePlatform) LaunchKernel(device int, req platform.LaunchRequest) error {
	f.launched = append(f.launched, req)
	return nil
}

func (f *fakePlatform) Synchronize(device int) error { return nil }

func (f *fakePlatform) Close() error {
	f.closed = true
	if f.onClose != nil {
		f.onClose()
	}
	return nil
}

func TestUnknownPlatformTagAbortsWithDiagnostic(t *testing.T) {
	r := New()
	r.Register(newFakePlatform(platform.TagHost, 1))

	_, err := r.Alloc(Encode(platform.TagCUDA, 0), 16)
	require.Error(t, err)

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultUnknownPlatform, fault.Kind)
	assert.Contains(t, fault.Msg, "cuda")
}

func TestInvalidDeviceIndexAborts(t *testing.T) {
	r := New()
	r.Register(newFakePlatform(platform.TagHost, 1))

	_, err := r.Alloc(Encode(platform.TagHost, 5), 16)
	require.Error(t, err)

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultInvalidDevice, fault.Kind)
}

func TestNegativeSizeRejected(t *testing.T) {
	r := New()
	r.Register(newFakePlatform(platform.TagHost, 1))

	_, err := r.Alloc(Encode(platform.TagHost, 0), -1)
	require.Error(t, err)

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultNegativeSize, fault.Kind)
}

func TestZeroSizeAllocReturnsNullWithoutTouchingBackend(t *testing.T) {
	r := New()
	fp := newFakePlatform(platform.TagHost, 1)
	r.Register(fp)

	ptr, err := r.Alloc(Encode(platform.TagHost, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ptr)
	assert.Empty(t, fp.mem, "zero-size alloc must not call into the backend")
}

func TestSamePlatformSameDeviceCopyDelegatesDirectly(t *testing.T) {
	r := New()
	fp := newFakePlatform(platform.TagHost, 1)
	r.Register(fp)
	id := Encode(platform.TagHost, 0)

	src, _ := r.Alloc(id, 4)
	dst, _ := r.Alloc(id, 4)
	copy(fp.mem[src], []byte{1, 2, 3, 4})

	require.NoError(t, r.Copy(id, id, src, 0, dst, 0, 4))
	assert.Equal(t, []byte{1, 2, 3, 4}, fp.mem[dst])
}

func TestCrossPlatformCopyStagesThroughReadWrite(t *testing.T) {
	r := New()
	cuda := newFakePlatform(platform.TagCUDA, 1)
	hsa := newFakePlatform(platform.TagHSA, 1)
	r.Register(cuda)
	r.Register(hsa)

	srcID := Encode(platform.TagCUDA, 0)
	dstID := Encode(platform.TagHSA, 0)

	src, _ := r.Alloc(srcID, 4)
	dst, _ := r.Alloc(dstID, 4)
	copy(cuda.mem[src], []byte{9, 8, 7, 6})

	require.NoError(t, r.Copy(srcID, dstID, src, 0, dst, 0, 4))
	assert.Equal(t, []byte{9, 8, 7, 6}, hsa.mem[dst])
}

func TestCloseTearsDownInReverseOrder(t *testing.T) {
	r := New()
	first := newFakePlatform(platform.TagHost, 1)
	second := newFakePlatform(platform.TagCUDA, 1)
	r.Register(first)
	r.Register(second)

	var order []platform.Tag
	first.onClose = func() { order = append(order, first.tag) }
	second.onClose = func() { order = append(order, second.tag) }

	require.NoError(t, r.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Equal(t, []platform.Tag{platform.TagCUDA, platform.TagHost}, order)
}

func TestLaunchKernelDispatchesToOwningPlatform(t *testing.T) {
	r := New()
	fp := newFakePlatform(platform.TagHSA, 1)
	r.Register(fp)
	id := Encode(platform.TagHSA, 0)

	req := platform.LaunchRequest{File: "saxpy.hsaco", Name: "saxpy", Grid: [3]int{4, 1, 1}, Block: [3]int{1, 1, 1}}
	require.NoError(t, r.LaunchKernel(id, req))
	require.Len(t, fp.launched, 1)
	assert.Equal(t, "saxpy", fp.launched[0].Name)
}
