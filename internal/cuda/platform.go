package cuda

import (
	"fmt"

	"github.com/dcrandall/hetrt/internal/drivers/ptxdrv"
	"github.com/dcrandall/hetrt/internal/logging"
	"github.com/dcrandall/hetrt/internal/platform"
	"github.com/dcrandall/hetrt/internal/progreg"
)

// Platform implements platform.Platform against a ptxdrv.Driver — the
// real CUDA binding or, in every test and by default, ptxdrv.Sim.
type Platform struct {
	driver         ptxdrv.Driver
	progs          *progreg.Registry
	driverVersion  string
	compilerVersion string
	devices        []*device
}

// New brings the driver up, creates the single default context on
// device 0, enumerates devices and captures their static info: driver
// and compiler versions, plus each device's name and compute
// capability.
func New(driver ptxdrv.Driver, progs *progreg.Registry) (*Platform, error) {
	if err := driver.Init(); err != nil {
		return nil, fmt.Errorf("cuda: driver init: %w", err)
	}
	drvVer, err := driver.DriverVersion()
	if err != nil {
		return nil, fmt.Errorf("cuda: query driver version: %w", err)
	}
	compVer, err := driver.CompilerVersion()
	if err != nil {
		return nil, fmt.Errorf("cuda: query compiler version: %w", err)
	}
	count, err := driver.DeviceCount()
	if err != nil {
		return nil, fmt.Errorf("cuda: enumerate devices: %w", err)
	}
	if count == 0 {
		logging.Warn("cuda: driver reports zero devices")
	}

	p := &Platform{driver: driver, progs: progs, driverVersion: drvVer, compilerVersion: compVer}
	for i := 0; i < count; i++ {
		info, err := driver.DeviceInfo(i)
		if err != nil {
			return nil, fmt.Errorf("cuda: query device %d info: %w", i, err)
		}
		p.devices = append(p.devices, newDevice(info))
	}
	return p, nil
}

func (p *Platform) Tag() platform.Tag { return platform.TagCUDA }
func (p *Platform) NumDevices() int   { return len(p.devices) }

// DriverVersion and CompilerVersion expose the diagnostics init
// captures, for callers building a status/info surface.
func (p *Platform) DriverVersion() string   { return p.driverVersion }
func (p *Platform) CompilerVersion() string { return p.compilerVersion }

func (p *Platform) device(index int) (*device, error) {
	if index < 0 || index >= len(p.devices) {
		return nil, fmt.Errorf("cuda: invalid device index %d", index)
	}
	return p.devices[index], nil
}

// LoadKernel resolves (file, name) to a cached function without
// launching it.
func (p *Platform) LoadKernel(index int, file, name string) error {
	d, err := p.device(index)
	if err != nil {
		return err
	}
	_, err = p.resolveFunction(d, file, name)
	return err
}

// Synchronize is a no-op beyond validating the device index: every
// CUDA launch in this platform already synchronizes on its own end
// event before returning, so there is nothing left
// in-flight for a caller to wait on.
func (p *Platform) Synchronize(index int) error {
	_, err := p.device(index)
	return err
}

// Close tears the driver/context down. There is nothing per-device to
// release beyond the driver-owned module/function handles, which die
// with the context.
func (p *Platform) Close() error {
	return p.driver.Shutdown()
}
