package cuda

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGridCoversDomain checks the full-coverage invariant: for any
// problem size P and block size B, the computed grid G must satisfy
// G*B >= P in every dimension.
func TestGridCoversDomain(t *testing.T) {
	cases := []struct {
		problem, block [3]int
	}{
		{[3]int{1000, 1, 1}, [3]int{32, 1, 1}},
		{[3]int{1024, 1, 1}, [3]int{32, 1, 1}},
		{[3]int{1, 1, 1}, [3]int{256, 1, 1}},
		{[3]int{100, 100, 4}, [3]int{16, 16, 1}},
		{[3]int{0, 0, 0}, [3]int{32, 1, 1}},
	}
	for _, c := range cases {
		grid := GridDim(c.problem, c.block)
		for i := 0; i < 3; i++ {
			assert.GreaterOrEqual(t, grid[i]*c.block[i], c.problem[i],
				"dimension %d: grid=%d block=%d problem=%d", i, grid[i], c.block[i], c.problem[i])
		}
	}
}

func TestGridDimNeverDividesByZero(t *testing.T) {
	grid := GridDim([3]int{10, 10, 10}, [3]int{0, -1, 5})
	assert.Equal(t, [3]int{1, 1, 2}, grid)
}
