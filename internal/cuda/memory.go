package cuda

import "fmt"

// Alloc/Release/ReadAt/WriteAt/CopyDeviceToDevice are byte-sized
// throughout, never scaled by an element type: internal/drivers
// /ptxdrv.Driver.Alloc already takes a byte count, so there is no unit
// conversion left to get wrong here.

func (p *Platform) Alloc(index int, bytes int64) (uint64, error) {
	if bytes == 0 {
		return 0, nil
	}
	if _, err := p.device(index); err != nil {
		return 0, err
	}
	return p.driver.Alloc(bytes)
}

func (p *Platform) AllocHost(index int, bytes int64) (uint64, error) {
	return p.Alloc(index, bytes)
}

func (p *Platform) AllocUnified(index int, bytes int64) (uint64, error) {
	return p.Alloc(index, bytes)
}

func (p *Platform) Release(index int, ptr uint64) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	if ptr == 0 {
		return nil
	}
	return p.driver.Free(ptr)
}

func (p *Platform) ReleaseHost(index int, ptr uint64) error {
	return p.Release(index, ptr)
}

func (p *Platform) ReadAt(index int, ptr uint64, off int64, dst []byte) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	return p.driver.Read(ptr, off, dst)
}

func (p *Platform) WriteAt(index int, ptr uint64, off int64, src []byte) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	return p.driver.Write(ptr, off, src)
}

func (p *Platform) CopyDeviceToDevice(index int, dstPtr uint64, dstOff int64, srcPtr uint64, srcOff int64, bytes int64) error {
	if _, err := p.device(index); err != nil {
		return err
	}
	if bytes <= 0 {
		return fmt.Errorf("cuda: copy of non-positive length %d", bytes)
	}
	return p.driver.Copy(dstPtr, dstOff, srcPtr, srcOff, bytes)
}
