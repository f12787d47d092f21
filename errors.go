// Package hetrt is the device runtime for a heterogeneous-compute code
// generator: allocation, host/device data movement, JIT compilation of
// kernel IR, launch, and synchronization across a host executor and one
// or more accelerator backends.
package hetrt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dcrandall/hetrt/internal/logging"
)

// Category classifies a runtime error by its taxonomy: backend,
// configuration, validation, or programmer error.
type Category string

const (
	// CategoryBackend marks a non-success status returned by a backend
	// driver call. Fatal.
	CategoryBackend Category = "backend"
	// CategoryConfig marks a bad kernel-file extension, missing file,
	// malformed IR, or wrong ISA prefix. Fatal.
	CategoryConfig Category = "configuration"
	// CategoryValidation marks a diagnostic-only condition: executable
	// validation returned non-zero, a kernarg size mismatch, or a
	// non-zero signal completion value. Execution continues.
	CategoryValidation Category = "validation"
	// CategoryProgrammer marks caller misuse: unknown platform tag,
	// invalid device index. Fatal, except size==0 allocations which
	// are handled by the caller before an Error is ever constructed.
	CategoryProgrammer Category = "programmer"
)

// fatal reports whether errors in this category terminate the
// process: there is no recovery path, so these are always surfaced as
// process-fatal diagnostics.
func (c Category) fatal() bool {
	return c == CategoryBackend || c == CategoryConfig || c == CategoryProgrammer
}

// Error is the structured error type for every diagnostic this runtime
// produces. It carries enough context (operation, device, platform,
// backend status code) to reconstruct what failed without parsing a
// free-form message.
type Error struct {
	Op          string   // operation that failed, e.g. "alloc", "load_kernel"
	DeviceID    int32    // encoded device id, -1 if not applicable
	Platform    string   // platform tag name, empty if not applicable
	Category    Category // high-level error category
	BackendCode int      // backend-specific status code, 0 if not applicable
	Msg         string   // human-readable message
	Inner       error    // wrapped cause, if any
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Platform != "" {
		parts = append(parts, fmt.Sprintf("platform=%s", e.Platform))
	}
	if e.DeviceID >= 0 {
		parts = append(parts, fmt.Sprintf("device=%d", e.DeviceID))
	}
	if e.BackendCode != 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.BackendCode))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Category)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("hetrt: %s (%s)", msg, strings.Join(parts, " "))
	}
	return fmt.Sprintf("hetrt: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == te.Category && e.Op == te.Op
}

// newBackendError builds a fatal backend-error diagnostic.
func newBackendError(op, platform string, deviceID int32, code int, msg string) *Error {
	return &Error{Op: op, DeviceID: deviceID, Platform: platform, Category: CategoryBackend, BackendCode: code, Msg: msg}
}

// newConfigError builds a fatal configuration-error diagnostic.
func newConfigError(op, msg string) *Error {
	return &Error{Op: op, DeviceID: -1, Category: CategoryConfig, Msg: msg}
}

// newProgrammerError builds a fatal programmer-error diagnostic.
func newProgrammerError(op string, deviceID int32, msg string) *Error {
	return &Error{Op: op, DeviceID: deviceID, Category: CategoryProgrammer, Msg: msg}
}

// newValidationWarning builds a non-fatal validation diagnostic.
func newValidationWarning(op, platform string, deviceID int32, msg string) *Error {
	return &Error{Op: op, DeviceID: deviceID, Platform: platform, Category: CategoryValidation, Msg: msg}
}

// Terminate is called for fatal categories after the diagnostic is
// logged. It defaults to os.Exit(1): any backend error aborts the
// process with a non-zero exit. Tests override it to observe
// termination without killing the test binary — this is a seam a
// long-running server process wouldn't need, since it would never
// abort the whole process on a single I/O error.
var Terminate = func() { os.Exit(1) }

// report logs a diagnostic and, for fatal categories, calls Terminate.
// Every code path that constructs an *Error funnels through here so
// the fatal/non-fatal split in is enforced in one place.
func report(err *Error) {
	if err.Category == CategoryValidation {
		logging.Warn(err.Error())
		return
	}
	if err.Category.fatal() {
		logging.Fatal(err.Error())
		Terminate()
		return
	}
	logging.Error(err.Error())
}

// IsCategory reports whether err (or something it wraps) is a *Error
// in the given category.
func IsCategory(err error, cat Category) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == cat
	}
	return false
}
