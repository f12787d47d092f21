package hetrt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesContext(t *testing.T) {
	err := newBackendError("launch", "hsa", 3, 42, "queue full")
	msg := err.Error()
	assert.Contains(t, msg, "queue full")
	assert.Contains(t, msg, "op=launch")
}

func TestErrorIsMatchesByCategoryAndOp(t *testing.T) {
	a := newConfigError("load_kernel", "bad extension")
	b := newConfigError("load_kernel", "different message, same op+category")
	c := newConfigError("register_file", "bad extension")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsCategory(t *testing.T) {
	err := newValidationWarning("synchronize", "hsa", 1, "signal completion non-zero")
	assert.True(t, IsCategory(err, CategoryValidation))
	assert.False(t, IsCategory(err, CategoryBackend))
}

func TestReportTerminatesOnFatalCategory(t *testing.T) {
	terminated := false
	orig := Terminate
	Terminate = func() { terminated = true }
	defer func() { Terminate = orig }()

	report(newProgrammerError("alloc", 99, "unknown platform tag 7"))
	require.True(t, terminated)
}

func TestReportDoesNotTerminateOnValidationWarning(t *testing.T) {
	terminated := false
	orig := Terminate
	Terminate = func() { terminated = true }
	defer func() { Terminate = orig }()

	report(newValidationWarning("load_kernel", "hsa", 0, "executable validation returned non-zero"))
	require.False(t, terminated)
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Op: "copy", Category: CategoryBackend, Inner: inner}
	assert.Equal(t, inner, errors.Unwrap(err))
}
