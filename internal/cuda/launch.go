package cuda

import (
	"fmt"

	"github.com/dcrandall/hetrt/internal/metrics"
	"github.com/dcrandall/hetrt/internal/platform"
)

// GridDim computes the grid dimensions that fully cover problem, given
// block as the per-block extent in each of the three dimensions, using
// ceiling division — floor division would under-cover a problem size
// that isn't an exact multiple of the block size, leaving
// `G * B >= P` violated in that dimension. A zero or negative block
// extent maps to a grid extent of 1 in that dimension rather than
// dividing by zero.
func GridDim(problem, block [3]int) [3]int {
	var grid [3]int
	for i := 0; i < 3; i++ {
		b := block[i]
		if b <= 0 {
			grid[i] = 1
			continue
		}
		grid[i] = (problem[i] + b - 1) / b
	}
	return grid
}

// LaunchKernel implements the launch sequence: resolve the
// cached function, stage the argument pointer array fresh per call,
// bracket the launch with a start/end event pair for per-launch
// timing, and fold the elapsed time into the shared kernel-time
// accumulator exactly as internal/hsa's reaper does for HSA
// dispatches.
func (p *Platform) LaunchKernel(index int, req platform.LaunchRequest) error {
	d, err := p.device(index)
	if err != nil {
		return err
	}

	fn, err := p.resolveFunction(d, req.File, req.Name)
	if err != nil {
		return err
	}

	ptrs := stageArgs(req.Args)

	start, err := p.driver.RecordEvent()
	if err != nil {
		return fmt.Errorf("cuda: record start event: %w", err)
	}
	if err := p.driver.Launch(fn, req.Grid, req.Block, 0, ptrs); err != nil {
		return fmt.Errorf("cuda: launch %q: %w", req.Name, err)
	}
	end, err := p.driver.RecordEvent()
	if err != nil {
		return fmt.Errorf("cuda: record end event: %w", err)
	}

	metrics.Global.RecordLaunch()

	if err := p.driver.SynchronizeEvent(end); err != nil {
		return fmt.Errorf("cuda: synchronize end event: %w", err)
	}
	elapsedMs, err := p.driver.ElapsedTimeMillis(start, end)
	if err != nil {
		return fmt.Errorf("cuda: read elapsed time: %w", err)
	}
	metrics.Global.RecordCompletion(int64(elapsedMs * 1000))
	return nil
}
