package hsa

import (
	"encoding/binary"
	"unsafe"
)

// AQLPacket is the 64-byte HSA Architected Queue Language dispatch
// packet the hardware doorbell mechanism consumes. Field layout is
// fixed by the HSA runtime ABI, so it is marshaled by hand with
// encoding/binary field by field rather than via an unsafe cast.
type AQLPacket struct {
	Header             uint16
	Setup              uint16
	WorkgroupSizeX     uint16
	WorkgroupSizeY     uint16
	WorkgroupSizeZ     uint16
	Reserved0          uint16
	GridSizeX          uint32
	GridSizeY          uint32
	GridSizeZ          uint32
	PrivateSegmentSize uint32
	GroupSegmentSize   uint32
	KernelObject       uint64
	KernargAddress     uint64
	Reserved1          uint64
	CompletionSignal   uint64
}

const packetSize = 64

// compile-time layout check: a real AQL dispatch packet is exactly 64
// bytes on the wire, regardless of Go struct padding.
var _ [packetSize]byte = [unsafe.Sizeof(AQLPacket{})]byte{}

// Packet header bits, per the HSA dispatch packet ABI.
const (
	packetTypeDispatch     = 2
	headerTypeShift        = 0
	barrierBit             = 1 << 8
	scacquireFenceShift    = 9
	screleaseFenceShift    = 11
	fenceNone              = 0
	fenceAgent             = 1
	fenceSystem            = 2
	setupDimShift          = 0
)

// header packs packet type and the acquire/release fence scope this
// runtime always requests: system scope on both sides, so a kernel's
// memory effects are visible to the host and to other agents before
// its completion signal is observed to reach zero.
func header() uint16 {
	h := uint16(packetTypeDispatch) << headerTypeShift
	h |= uint16(fenceSystem) << scacquireFenceShift
	h |= uint16(fenceSystem) << screleaseFenceShift
	return h
}

func setup(dims int) uint16 {
	return uint16(dims) << setupDimShift
}

// Marshal writes p to a 64-byte buffer in the wire layout the queue's
// ring memory expects.
func (p *AQLPacket) Marshal() []byte {
	buf := make([]byte, packetSize)
	binary.LittleEndian.PutUint16(buf[0:2], p.Header)
	binary.LittleEndian.PutUint16(buf[2:4], p.Setup)
	binary.LittleEndian.PutUint16(buf[4:6], p.WorkgroupSizeX)
	binary.LittleEndian.PutUint16(buf[6:8], p.WorkgroupSizeY)
	binary.LittleEndian.PutUint16(buf[8:10], p.WorkgroupSizeZ)
	binary.LittleEndian.PutUint16(buf[10:12], p.Reserved0)
	binary.LittleEndian.PutUint32(buf[12:16], p.GridSizeX)
	binary.LittleEndian.PutUint32(buf[16:20], p.GridSizeY)
	binary.LittleEndian.PutUint32(buf[20:24], p.GridSizeZ)
	binary.LittleEndian.PutUint32(buf[24:28], p.PrivateSegmentSize)
	binary.LittleEndian.PutUint32(buf[28:32], p.GroupSegmentSize)
	binary.LittleEndian.PutUint64(buf[32:40], p.KernelObject)
	binary.LittleEndian.PutUint64(buf[40:48], p.KernargAddress)
	binary.LittleEndian.PutUint64(buf[48:56], p.Reserved1)
	binary.LittleEndian.PutUint64(buf[56:64], p.CompletionSignal)
	return buf
}

// UnmarshalAQLPacket reads a packet back out of its 64-byte wire form.
func UnmarshalAQLPacket(data []byte) (*AQLPacket, error) {
	if len(data) < packetSize {
		return nil, errShortPacket
	}
	p := &AQLPacket{}
	p.Header = binary.LittleEndian.Uint16(data[0:2])
	p.Setup = binary.LittleEndian.Uint16(data[2:4])
	p.WorkgroupSizeX = binary.LittleEndian.Uint16(data[4:6])
	p.WorkgroupSizeY = binary.LittleEndian.Uint16(data[6:8])
	p.WorkgroupSizeZ = binary.LittleEndian.Uint16(data[8:10])
	p.Reserved0 = binary.LittleEndian.Uint16(data[10:12])
	p.GridSizeX = binary.LittleEndian.Uint32(data[12:16])
	p.GridSizeY = binary.LittleEndian.Uint32(data[16:20])
	p.GridSizeZ = binary.LittleEndian.Uint32(data[20:24])
	p.PrivateSegmentSize = binary.LittleEndian.Uint32(data[24:28])
	p.GroupSegmentSize = binary.LittleEndian.Uint32(data[28:32])
	p.KernelObject = binary.LittleEndian.Uint64(data[32:40])
	p.KernargAddress = binary.LittleEndian.Uint64(data[40:48])
	p.Reserved1 = binary.LittleEndian.Uint64(data[48:56])
	p.CompletionSignal = binary.LittleEndian.Uint64(data[56:64])
	return p, nil
}

// NewDispatchPacket builds a ready-to-enqueue AQL packet for a 3D grid
// launch, using workgroup sizes derived from grid/block.
func NewDispatchPacket(grid, block [3]int, kernelObject, kernargAddress, completionSignal uint64) *AQLPacket {
	return &AQLPacket{
		Header:           header(),
		Setup:            setup(3),
		WorkgroupSizeX:   uint16(block[0]),
		WorkgroupSizeY:   uint16(block[1]),
		WorkgroupSizeZ:   uint16(block[2]),
		GridSizeX:        uint32(grid[0] * block[0]),
		GridSizeY:        uint32(grid[1] * block[1]),
		GridSizeZ:        uint32(grid[2] * block[2]),
		KernelObject:     kernelObject,
		KernargAddress:   kernargAddress,
		CompletionSignal: completionSignal,
	}
}
