// Package abi gives every entry of the external interface
// table a free function with a C-ABI-shaped argument list: flat int32
// device ids, raw argument/size/type arrays instead of a slice of
// structs. It exists for a future cgo-export layer to forward to —
// that export layer itself (the `//export` declarations and the
// generated header) is explicitly out of scope; this
// package only narrows the Go-to-C impedance gap on the Go side.
package abi

import (
	"fmt"
	"os"

	"github.com/dcrandall/hetrt"
	"github.com/dcrandall/hetrt/internal/kernarg"
)

// Alloc, Release and friends take and return the same flat scalar
// types a cgo `//export` function could forward without marshaling.

func Alloc(rt *hetrt.Runtime, dev int32, bytes int64) (uint64, error) {
	return rt.Alloc(dev, bytes)
}

func AllocHost(rt *hetrt.Runtime, dev int32, bytes int64) (uint64, error) {
	return rt.AllocHost(dev, bytes)
}

func AllocUnified(rt *hetrt.Runtime, dev int32, bytes int64) (uint64, error) {
	return rt.AllocUnified(dev, bytes)
}

func Release(rt *hetrt.Runtime, dev int32, ptr uint64) error {
	return rt.Release(dev, ptr)
}

func ReleaseHost(rt *hetrt.Runtime, dev int32, ptr uint64) error {
	return rt.ReleaseHost(dev, ptr)
}

func Copy(rt *hetrt.Runtime, srcDev, dstDev int32, srcPtr uint64, srcOff int64, dstPtr uint64, dstOff int64, bytes int64) error {
	return rt.Copy(srcDev, dstDev, srcPtr, srcOff, dstPtr, dstOff, bytes)
}

// GetDevicePtr mirrors the get_device_ptr ABI entry: it
// translates a host pointer from AllocHost/AllocUnified into the
// device-visible pointer a launch on the same device should use.
func GetDevicePtr(rt *hetrt.Runtime, dev int32, hostPtr uint64) (uint64, error) {
	return rt.GetDevicePtr(dev, hostPtr)
}

func LoadKernel(rt *hetrt.Runtime, dev int32, file, name string) error {
	return rt.LoadKernel(dev, file, name)
}

// LaunchKernel mirrors the launch_kernel ABI entry exactly:
// grid/block as flat 3-element arrays, and one argument per three
// parallel arrays (pointer, byte size, type tag) instead of a slice of
// structs, reassembled here into the []kernarg.Arg the Go-level
// Runtime expects. argPtrs/argSizes/argTypes must each have at least
// numArgs elements.
func LaunchKernel(rt *hetrt.Runtime, dev int32, file, name string, grid, block [3]int32, argPtrs []uint64, argSizes []int64, argTypes []int32, numArgs int32) error {
	args := make([]kernarg.Arg, numArgs)
	for i := int32(0); i < numArgs; i++ {
		args[i] = kernarg.Arg{
			Ptr:  argPtrs[i],
			Size: int(argSizes[i]),
			Type: kernarg.ArgType(argTypes[i]),
		}
	}
	g := [3]int{int(grid[0]), int(grid[1]), int(grid[2])}
	b := [3]int{int(block[0]), int(block[1]), int(block[2])}
	return rt.LaunchKernel(dev, file, name, g, b, args)
}

func Synchronize(rt *hetrt.Runtime, dev int32) error {
	return rt.Synchronize(dev)
}

func RegisterFile(rt *hetrt.Runtime, path, text string) {
	rt.RegisterFile(path, text)
}

// GetKernelTime exposes the global kernel-time accumulator.
func GetKernelTime(rt *hetrt.Runtime) int64 {
	return hetrt.GetKernelTime()
}

// PrintInt, PrintFloat, PrintDouble and PrintPtr are the print_*
// family: trivial stderr forwarders compiler-emitted code calls for
// scalar debug output. The cgo-export surface itself is out of scope;
// these are the Go-side bodies that surface would forward to, kept
// here next to the rest of the ABI table for completeness.
func PrintInt(v int64) {
	fmt.Fprintln(os.Stderr, v)
}

func PrintFloat(v float32) {
	fmt.Fprintln(os.Stderr, v)
}

func PrintDouble(v float64) {
	fmt.Fprintln(os.Stderr, v)
}

func PrintPtr(v uint64) {
	fmt.Fprintf(os.Stderr, "%#x\n", v)
}
