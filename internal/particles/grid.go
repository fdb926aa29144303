package particles

// Grid is a uniform spatial index over live particles. It is rebuilt once per
// update pass, so queries always see the positions of the current frame.
type Grid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]int // particle slot indices per cell
}

// NewGrid creates a grid covering a width x height area with square cells.
func NewGrid(width, height, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 64
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]int, cols*rows),
	}
}

// Reset clears all cells, keeping their backing arrays for reuse.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert files a particle slot index under the cell containing (x, y).
// Positions outside the area clamp to the border cells.
func (g *Grid) Insert(slot int, x, y float64) {
	g.cells[g.cellIndex(x, y)] = append(g.cells[g.cellIndex(x, y)], slot)
}

// NeighborCount returns how many indexed particles lie in the cell containing
// (x, y) and its eight surrounding cells.
func (g *Grid) NeighborCount(x, y float64) int {
	cx, cy := g.cellCoords(x, y)
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := cx+dx, cy+dy
			if nx < 0 || nx >= g.cols || ny < 0 || ny >= g.rows {
				continue
			}
			count += len(g.cells[ny*g.cols+nx])
		}
	}
	return count
}

// ForEachInCell calls fn with each particle slot index in the cell containing
// (x, y).
func (g *Grid) ForEachInCell(x, y float64, fn func(slot int)) {
	for _, slot := range g.cells[g.cellIndex(x, y)] {
		fn(slot)
	}
}

func (g *Grid) cellCoords(x, y float64) (int, int) {
	cx := int(x / g.cellSize)
	cy := int(y / g.cellSize)
	if cx < 0 {
		cx = 0
	}
	if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	}
	if cy >= g.rows {
		cy = g.rows - 1
	}
	return cx, cy
}

func (g *Grid) cellIndex(x, y float64) int {
	cx, cy := g.cellCoords(x, y)
	return cy*g.cols + cx
}
