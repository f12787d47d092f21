package hostplat

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pinnedMmap backs host-accessible and unified allocations with an
// anonymous mmap'd region instead of a plain Go slice, using
// unix.Mmap(MAP_PRIVATE|MAP_ANONYMOUS), so the garbage collector never
// moves or frees its backing memory. The mapping is not page-locked:
// no mlock or MAP_LOCKED is applied, so the kernel may still swap it.
func pinnedMmap(bytes int64) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, int(bytes), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("hostplat: mmap %d bytes: %w", bytes, err)
	}
	return b, nil
}

func pinnedMunmap(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Munmap(b)
}
