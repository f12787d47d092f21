package jit

import "fmt"

// runtimeConfig expresses the handful of compile-time options the
// synthesized config module defines: finite-only, unsafe-math,
// denormals-are-zero, the ISA version, and whether sqrt must be
// correctly rounded. Each becomes an integer-returning LLVM IR
// function the linked kernel module can call.
type runtimeConfig struct {
	FiniteOnly      bool
	UnsafeMath      bool
	DenormsAreZero  bool
	ISAVersion      int
	CorrectlyRoundedSqrt bool
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// synthesizeConfigModule emits a minimal LLVM IR text module defining
// one zero-argument function per runtimeConfig field, each returning a
// constant i32. It is linked into every compiled HSA kernel ahead of
// the OCML math library and the IRIF interface module, matching the
// required link ordering.
func synthesizeConfigModule(cfg runtimeConfig) string {
	return fmt.Sprintf(`; synthesized runtime configuration module
define i32 @__hetrt_finite_only() {
  ret i32 %d
}
define i32 @__hetrt_unsafe_math() {
  ret i32 %d
}
define i32 @__hetrt_daz_opt() {
  ret i32 %d
}
define i32 @__hetrt_isa_version() {
  ret i32 %d
}
define i32 @__hetrt_correctly_rounded_sqrt() {
  ret i32 %d
}
`,
		boolInt(cfg.FiniteOnly),
		boolInt(cfg.UnsafeMath),
		boolInt(cfg.DenormsAreZero),
		cfg.ISAVersion,
		boolInt(cfg.CorrectlyRoundedSqrt),
	)
}

// defaultRuntimeConfig is the configuration used when CompileHSA's
// caller does not override it: flush-to-zero denormals and a
// correctly-rounded sqrt. It applies to the HSA path only; CompileNVVM
// passes just the target architecture and sets no flush-to-zero option.
var defaultRuntimeConfig = runtimeConfig{
	FiniteOnly:           false,
	UnsafeMath:           false,
	DenormsAreZero:       true,
	ISAVersion:           0,
	CorrectlyRoundedSqrt: true,
}
