// Package kernarg lays out kernel argument blocks for launch and pools
// the staging buffers used to do it: manual, offset-tracked binary
// layout plus a size-bucketed sync.Pool for the staging buffers.
package kernarg

import (
	"encoding/binary"
	"sync"
)

// ArgType optionally tags an argument's element type. The runtime does
// not interpret it — it is forwarded to kernels that branch on it —
// but a zero value means "untyped, treat as opaque bytes".
type ArgType uint8

const (
	TypeUnknown ArgType = iota
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypePointer
)

// Arg is one (pointer, size) pair in a launch's argument list, with an
// optional type tag. Size is in bytes.
type Arg struct {
	Ptr  uint64
	Size int
	Type ArgType
}

// alignCap is the maximum per-argument alignment; an argument's actual
// alignment is min(Size, alignCap).
const alignCap = 8

// alignOf returns the alignment to use for an argument of the given
// size: its own size, capped at alignCap, and never less than 1.
func alignOf(size int) int {
	if size <= 0 {
		return 1
	}
	if size > alignCap {
		return alignCap
	}
	return size
}

// Layout describes where each argument landed in a packed buffer.
type Layout struct {
	Offsets []int // Offsets[i] is the byte offset of Args[i]
	Size    int   // total bytes consumed, before any segment-size override
}

// Plan computes the offsets for a sequence of arguments without
// allocating a buffer, so callers can validate against a reported
// kernarg segment size before committing to a write.
func Plan(args []Arg) Layout {
	offsets := make([]int, len(args))
	offset := 0
	for i, a := range args {
		align := alignOf(a.Size)
		if rem := offset % align; rem != 0 {
			offset += align - rem
		}
		offsets[i] = offset
		offset += a.Size
	}
	return Layout{Offsets: offsets, Size: offset}
}

// Pack writes args into a buffer of exactly segmentSize bytes (as
// reported by the kernel's kernarg_segment_size) and returns it along
// with the Layout actually used. The buffer is obtained from the
// shared pool; callers must call Release when the launch is done with
// it. If the planned size exceeds segmentSize the buffer is still
// sized to segmentSize — the caller is expected to have already
// reported the mismatch as a validation warning, since the launch
// proceeds regardless with the declared segment size.
func Pack(args []Arg, segmentSize int) ([]byte, Layout) {
	layout := Plan(args)
	buf := Get(segmentSize)
	for i, a := range args {
		off := layout.Offsets[i]
		n := a.Size
		if n > 8 {
			n = 8
		}
		if off+n > len(buf) {
			// Truncated by segmentSize; nothing more fits.
			break
		}
		writeArg(buf[off:], a)
	}
	return buf, layout
}

// writeArg stores a in little-endian form; pointer-sized and smaller
// arguments are zero-extended into an 8-byte-aligned slot footprint
// capped by the argument's own declared size.
func writeArg(dst []byte, a Arg) {
	switch {
	case a.Size >= 8:
		binary.LittleEndian.PutUint64(dst[:8], a.Ptr)
	case a.Size >= 4:
		binary.LittleEndian.PutUint32(dst[:4], uint32(a.Ptr))
	case a.Size >= 2:
		binary.LittleEndian.PutUint16(dst[:2], uint16(a.Ptr))
	case a.Size >= 1:
		dst[0] = byte(a.Ptr)
	}
}

// Mismatched reports whether the planned layout size differs from the
// kernel's reported kernarg segment size, the condition
// calls a diagnosed-but-non-fatal mismatch.
func (l Layout) Mismatched(segmentSize int) bool {
	return l.Size != segmentSize
}

// Size-bucketed buffer pool. Kernarg buffers are small (a handful of
// pointers/scalars) compared to a typical I/O buffer, so the buckets
// are scaled down accordingly.
const (
	size64  = 64
	size256 = 256
	size1k  = 1024
	size4k  = 4096
)

var pool = struct {
	p64  sync.Pool
	p256 sync.Pool
	p1k  sync.Pool
	p4k  sync.Pool
}{
	p64:  sync.Pool{New: func() any { b := make([]byte, size64); return &b }},
	p256: sync.Pool{New: func() any { b := make([]byte, size256); return &b }},
	p1k:  sync.Pool{New: func() any { b := make([]byte, size1k); return &b }},
	p4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
}

// Get returns a pooled buffer of at least size bytes, zeroed.
func Get(size int) []byte {
	var buf []byte
	switch {
	case size <= size64:
		buf = (*pool.p64.Get().(*[]byte))[:size64][:size]
	case size <= size256:
		buf = (*pool.p256.Get().(*[]byte))[:size256][:size]
	case size <= size1k:
		buf = (*pool.p1k.Get().(*[]byte))[:size1k][:size]
	case size <= size4k:
		buf = (*pool.p4k.Get().(*[]byte))[:size4k][:size]
	default:
		return make([]byte, size)
	}
	clear(buf)
	return buf
}

// Release returns buf to the pool it came from, keyed by capacity.
func Release(buf []byte) {
	switch cap(buf) {
	case size64:
		b := buf[:size64]
		pool.p64.Put(&b)
	case size256:
		b := buf[:size256]
		pool.p256.Put(&b)
	case size1k:
		b := buf[:size1k]
		pool.p1k.Put(&b)
	case size4k:
		b := buf[:size4k]
		pool.p4k.Put(&b)
	}
}
