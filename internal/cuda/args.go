package cuda

import "github.com/dcrandall/hetrt/internal/kernarg"

// stageArgs converts a launch's argument list into the flat host
// pointer array internal/drivers/ptxdrv.Driver.Launch expects. Each
// call builds its own slice rather than writing into shared statics,
// so concurrent launches on the same device never clobber each
// other's arguments, and there is no staged index to reset between
// launches.
func stageArgs(args []kernarg.Arg) []uintptr {
	ptrs := make([]uintptr, len(args))
	for i, a := range args {
		ptrs[i] = uintptr(a.Ptr)
	}
	return ptrs
}
