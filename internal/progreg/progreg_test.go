package progreg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenLoadRoundTrip(t *testing.T) {
	r := New()
	r.RegisterFile("kernels/saxpy.cl", "__kernel void saxpy() {}")

	text, err := r.LoadFile("kernels/saxpy.cl")
	require.NoError(t, err)
	assert.Equal(t, "__kernel void saxpy() {}", text)
}

func TestLoadFileFallsBackToFilesystemOnce(t *testing.T) {
	orig := openFile
	calls := 0
	openFile = func(path string) ([]byte, error) {
		calls++
		return []byte("source text"), nil
	}
	defer func() { openFile = orig }()

	r := New()
	for i := 0; i < 5; i++ {
		text, err := r.LoadFile("unregistered.ir")
		require.NoError(t, err)
		assert.Equal(t, "source text", text)
	}
	assert.Equal(t, 1, calls, "LoadFile must cache after the first filesystem read")
}

func TestLoadFilePropagatesReadError(t *testing.T) {
	orig := openFile
	openFile = func(path string) ([]byte, error) { return nil, os.ErrNotExist }
	defer func() { openFile = orig }()

	r := New()
	_, err := r.LoadFile("missing.ir")
	assert.Error(t, err)
}

func TestForgetForcesReRead(t *testing.T) {
	orig := openFile
	calls := 0
	openFile = func(path string) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}
	defer func() { openFile = orig }()

	r := New()
	_, _ = r.LoadFile("x.ir")
	r.Forget("x.ir")
	_, _ = r.LoadFile("x.ir")
	assert.Equal(t, 2, calls)
}

func TestStoreFileOverwritesRegisteredText(t *testing.T) {
	r := New()
	r.RegisterFile("a.ir", "first")
	r.StoreFile("a.ir", "second")

	text, err := r.LoadFile("a.ir")
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}
