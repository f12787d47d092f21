package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrandall/hetrt"
)

func newTestRuntime(t *testing.T) *hetrt.Runtime {
	t.Helper()
	rt, err := hetrt.NewSimRuntime(1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

// TestFlatArgArraysReassembleIntoKernargArgs covers the one piece of
// real marshaling this package does: three parallel C-ABI-shaped
// arrays collapse into the []kernarg.Arg the Go-level Runtime expects.
func TestFlatArgArraysReassembleIntoKernargArgs(t *testing.T) {
	rt := newTestRuntime(t)
	dev := hetrt.EncodeDevice(hetrt.TagHSA, 0)

	file := t.TempDir() + "/k.hsaco"
	require.NoError(t, hetrt.WriteFakeKernelFile(file))

	ptr, err := Alloc(rt, dev, 64)
	require.NoError(t, err)

	err = LaunchKernel(rt, dev, file, "add",
		[3]int32{1, 1, 1}, [3]int32{32, 1, 1},
		[]uint64{ptr}, []int64{8}, []int32{int32(5)}, 1)
	require.NoError(t, err)
	require.NoError(t, Synchronize(rt, dev))
}

func TestGetDevicePtrIsIdentityForPinnedAllocations(t *testing.T) {
	rt := newTestRuntime(t)
	dev := hetrt.EncodeDevice(hetrt.TagHost, 0)

	ptr, err := AllocHost(rt, dev, 32)
	require.NoError(t, err)

	devPtr, err := GetDevicePtr(rt, dev, ptr)
	require.NoError(t, err)
	assert.Equal(t, ptr, devPtr)
}

func TestPrintFunctionsDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		PrintInt(42)
		PrintFloat(3.14)
		PrintDouble(2.71828)
		PrintPtr(0xdeadbeef)
	})
}
