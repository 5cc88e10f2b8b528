package place

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// unknownCost is the cost between items whose similarity is unknown.
const unknownCost = 100

// CostMatrix builds the symmetric k×k placement cost: 1/(sim+1) for known
// pairs, unknownCost otherwise, and 0 on the diagonal. k == 0 yields an
// empty matrix.
func CostMatrix(k int, sim Similarity) *mat.Dense {
	if k == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			if s, ok := sim.Similarity(i, j); ok {
				m.Set(i, j, 1/(s+1))
			} else {
				m.Set(i, j, unknownCost)
			}
		}
	}
	return m
}

// Cell is an item's position on the grid.
type Cell struct {
	Index int `json:"index"`
	Row   int `json:"row"`
	Col   int `json:"col"`
}

// Placement is the result of Place. Order lists item indices along the
// spiral from the center.
type Placement struct {
	Size  int    `json:"size"`
	Cells []Cell `json:"cells"`
	Order []int  `json:"order"`
}

// GridRadius returns n such that the (2n-1)×(2n-1) grid holds k items.
func GridRadius(k int) int {
	s := (math.Sqrt(float64(k)) - 1) / 2
	n := int(s) + 1
	if s-float64(int(s)) > 0 {
		n++
	}
	return n
}

var quadrants = [4][2]int{{-1, 1}, {-1, -1}, {1, 1}, {1, -1}}

// Place greedily fills a square grid from the center: the item with the
// lowest total cost goes first, then each step places the remaining item
// and free cell with the lowest distance-weighted cost to everything placed,
// searching the innermost square that still has room.
func Place(cost *mat.Dense) Placement {
	if cost == nil || cost.IsEmpty() {
		return Placement{Order: []int{}, Cells: []Cell{}}
	}
	k, _ := cost.Dims()
	n := GridRadius(k)
	size := 2*n - 1
	center := n - 1

	grid := make([][]int, size)
	for r := range grid {
		grid[r] = make([]int, size)
		for c := range grid[r] {
			grid[r][c] = -1
		}
	}

	remaining := make([]int, 0, k)
	first := firstItem(cost, k)
	for i := 0; i < k; i++ {
		if i != first {
			remaining = append(remaining, i)
		}
	}
	filled := []Cell{{Index: first, Row: center, Col: center}}
	grid[center][center] = first

	for len(remaining) > 0 {
		best := Cell{Index: -1}
		bestScore := math.Inf(1)
		for level := 0; level < n; level++ {
			for a := 0; a <= level; a++ {
				for b := 0; b <= level; b++ {
					for _, q := range quadrants {
						row, col := center+q[0]*a, center+q[1]*b
						if grid[row][col] >= 0 {
							continue
						}
						for _, item := range remaining {
							score := 0.0
							for _, f := range filled {
								score += distance(row, col, f.Row, f.Col) * cost.At(item, f.Index)
							}
							if score < bestScore {
								bestScore = score
								best = Cell{Index: item, Row: row, Col: col}
							}
						}
					}
				}
			}
			if !math.IsInf(bestScore, 1) {
				break
			}
		}
		filled = append(filled, best)
		grid[best.Row][best.Col] = best.Index
		remaining = removeItem(remaining, best.Index)
	}

	return Placement{Size: size, Cells: filled, Order: spiralOrder(grid, center, n)}
}

// firstItem is the column with the smallest sum.
func firstItem(cost *mat.Dense, k int) int {
	best, bestSum := 0, math.Inf(1)
	for j := 0; j < k; j++ {
		sum := 0.0
		for i := 0; i < k; i++ {
			sum += cost.At(i, j)
		}
		if sum < bestSum {
			best, bestSum = j, sum
		}
	}
	return best
}

func distance(r1, c1, r2, c2 int) float64 {
	dr, dc := float64(r1-r2), float64(c1-c2)
	return math.Log1p(dr*dr + dc*dc)
}

func removeItem(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// spiralOrder reads the grid ring by ring from the center. Ring r starts
// beside the previous ring's last cell and walks the four sides in turn.
// Empty cells are skipped.
func spiralOrder(grid [][]int, center, n int) []int {
	order := make([]int, 0, len(grid)*len(grid))
	visit := func(dr, dc int) {
		if v := grid[center+dr][center+dc]; v >= 0 {
			order = append(order, v)
		}
	}
	visit(0, 0)
	for r := 1; r < n; r++ {
		for a := r - 1; a >= -r; a-- {
			visit(a, r)
		}
		for b := r - 1; b >= -r; b-- {
			visit(-r, b)
		}
		for a := -r + 1; a <= r; a++ {
			visit(a, -r)
		}
		for b := -r + 1; b <= r; b++ {
			visit(r, b)
		}
	}
	return order
}
