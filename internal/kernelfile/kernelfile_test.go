package kernelfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRecognizedExtensions(t *testing.T) {
	cases := map[string]Kind{
		"saxpy.ll":           KindLLVMIR,
		"saxpy.bc":           KindLLVMIR,
		"saxpy.hsaco":        KindHSACO,
		"kernels/reduce.ptx": KindPTX,
		"reduce.cubin":       KindCubin,
		"reduce.fatbin":      KindCubin,
		"reduce.cu":          KindSourceText,
		"reduce.rocl":        KindSourceText,
		"libkernel.so":       KindNativeBinary,
		"README.LL":          KindLLVMIR, // extension matching is case-insensitive
	}
	for path, want := range cases {
		assert.Equal(t, want, Classify(path), "path %q", path)
	}
}

func TestClassifyUnknownExtension(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify("notes.txt"))
	assert.Equal(t, KindUnknown, Classify("no-extension"))
}

func TestRequiresCompilation(t *testing.T) {
	assert.True(t, KindLLVMIR.RequiresCompilation())
	assert.True(t, KindSourceText.RequiresCompilation())
	assert.False(t, KindPTX.RequiresCompilation())
	assert.False(t, KindHSACO.RequiresCompilation())
	assert.False(t, KindCubin.RequiresCompilation())
	assert.False(t, KindNativeBinary.RequiresCompilation())
	assert.False(t, KindUnknown.RequiresCompilation())
}
