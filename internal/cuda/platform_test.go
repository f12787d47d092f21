package cuda

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrandall/hetrt/internal/drivers/ptxdrv"
	"github.com/dcrandall/hetrt/internal/kernarg"
	"github.com/dcrandall/hetrt/internal/metrics"
	"github.com/dcrandall/hetrt/internal/platform"
)

func writePseudoIR(t *testing.T, kernelName string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), kernelName+".cu")
	require.NoError(t, os.WriteFile(path, []byte("kernel "+kernelName+"\n"), 0o644))
	return path
}

func TestHostDeviceHostRoundTrip(t *testing.T) {
	p, err := New(ptxdrv.NewSim(1, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	ptr, err := p.Alloc(0, 32)
	require.NoError(t, err)

	in := []byte{9, 8, 7, 6, 5, 4, 3, 2}
	require.NoError(t, p.WriteAt(0, ptr, 0, in))

	out := make([]byte, len(in))
	require.NoError(t, p.ReadAt(0, ptr, 0, out))
	assert.Equal(t, in, out)
	require.NoError(t, p.Release(0, ptr))
}

func TestLoadKernelIsIdempotentAndCompilesOnce(t *testing.T) {
	metrics.Global = metrics.Counters{}
	file := writePseudoIR(t, "vector_add")

	p, err := New(ptxdrv.NewSim(1, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.LoadKernel(0, file, "vector_add"))
	require.NoError(t, p.LoadKernel(0, file, "vector_add"))

	snap := metrics.Global.Snapshot()
	assert.Equal(t, int64(1), snap.Compiles)
	assert.Equal(t, int64(1), snap.CacheHits)
}

func TestCompileFailureReportsCompilerLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cu")
	require.NoError(t, os.WriteFile(path, []byte("fail undefined reference to foo\n"), 0o644))

	p, err := New(ptxdrv.NewSim(1, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	err = p.LoadKernel(0, path, "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined reference to foo")
}

func TestConcurrentLaunchesRecordTiming(t *testing.T) {
	metrics.Global = metrics.Counters{}
	file := writePseudoIR(t, "saxpy")

	p, err := New(ptxdrv.NewSim(1, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	const goroutines = 8
	const perGoroutine = 16

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				req := platform.LaunchRequest{
					File:  file,
					Name:  "saxpy",
					Grid:  GridDim([3]int{1000, 1, 1}, [3]int{32, 1, 1}),
					Block: [3]int{32, 1, 1},
					Args: []kernarg.Arg{
						{Ptr: 0x2000, Size: 8, Type: kernarg.TypePointer},
					},
				}
				assert.NoError(t, p.LaunchKernel(0, req))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, p.Synchronize(0))
	snap := metrics.Global.Snapshot()
	assert.Equal(t, int64(goroutines*perGoroutine), snap.Launches)
	assert.Greater(t, snap.KernelTimeMicros, int64(0))
}

func TestBindTextureRequiresPriorLoad(t *testing.T) {
	p, err := New(ptxdrv.NewSim(1, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	err = p.BindTexture(0, "nope.ptx", "tex", 0x4000, 1024)
	assert.Error(t, err)
}

func TestBindTextureRejectsNonPositiveByteLength(t *testing.T) {
	file := writePseudoIR(t, "with_texture")

	p, err := New(ptxdrv.NewSim(1, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.LoadKernel(0, file, "with_texture"))
	err = p.BindTexture(0, file, "tex", 0x4000, 0)
	assert.Error(t, err)
}

func TestAllocRejectsInvalidDeviceIndex(t *testing.T) {
	p, err := New(ptxdrv.NewSim(2, 7, 5), nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Alloc(9, 16)
	assert.Error(t, err)
}

func TestTagAndDeviceCount(t *testing.T) {
	p, err := New(ptxdrv.NewSim(4, 8, 9), nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, platform.TagCUDA, p.Tag())
	assert.Equal(t, 4, p.NumDevices())
	assert.Equal(t, "sim-driver-1.0", p.DriverVersion())
	assert.Equal(t, "sim-nvvm-1.0", p.CompilerVersion())
}
