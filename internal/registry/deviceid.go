package registry

import "github.com/dcrandall/hetrt/internal/platform"

// DeviceId is the 32-bit encoded device identifier used across the C
// ABI: the low 4 bits select a platform.Tag, the remaining high bits
// are the device index within that platform. Decoding is total —
// every int32 value decodes to some (tag, index) pair — but an
// unregistered tag fails the call.
type DeviceId int32

const tagBits = 4
const tagMask = (1 << tagBits) - 1

// Encode packs a platform tag and device index into a DeviceId.
func Encode(tag platform.Tag, index int) DeviceId {
	return DeviceId(uint32(index)<<tagBits | uint32(tag)&tagMask)
}

// Decode splits a DeviceId back into its platform tag and device
// index. Decoding never fails by itself; whether the tag names a
// registered platform is checked by the Registry.
func Decode(id DeviceId) (platform.Tag, int) {
	v := uint32(id)
	return platform.Tag(v & tagMask), int(v >> tagBits)
}
