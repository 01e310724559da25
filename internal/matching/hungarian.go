package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCostMatrix is returned for ragged, tall or non-finite cost matrices.
var ErrInvalidCostMatrix = errors.New("invalid cost matrix")

// hungarian solves the rectangular minimum-cost assignment problem for a
// rows x cols matrix with rows <= cols, using the O(rows^2 * cols) shortest
// augmenting path variant of Kuhn-Munkres with row and column potentials.
// It returns the column assigned to each row.
//
// Rows are processed in order and columns are scanned left to right, so equal
// inputs always produce the same assignment.
func hungarian(cost [][]float64) ([]int, error) {
	n := len(cost)
	if n == 0 {
		return []int{}, nil
	}
	m := len(cost[0])
	if n > m {
		return nil, fmt.Errorf("%w: %d rows exceed %d columns", ErrInvalidCostMatrix, n, m)
	}
	for i, row := range cost {
		if len(row) != m {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidCostMatrix, i, len(row), m)
		}
		for j, c := range row {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return nil, fmt.Errorf("%w: cell (%d,%d) is not finite", ErrInvalidCostMatrix, i, j)
			}
		}
	}

	// 1-indexed; column 0 is the virtual source of each augmenting path.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1) // p[j]: row matched to column j, 0 if free
	way := make([]int, m+1)
	minv := make([]float64, m+1)
	used := make([]bool, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 == 0 {
				return nil, fmt.Errorf("%w: no augmenting path for row %d", ErrInvalidCostMatrix, i-1)
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= m; j++ {
		if p[j] != 0 {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment, nil
}
