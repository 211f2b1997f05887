package game

import "tuss-cogs/internal/models"

const (
	GridColumns        = 6
	GridRows           = 4
	GridSize           = GridColumns * GridRows
	DefaultTriggerCell = 9
)

// Direction is the propagation phase of the triggers.
type Direction int

const (
	Down Direction = iota
	Left
	Up
	Right
)

func (d Direction) String() string {
	switch d {
	case Down:
		return "down"
	case Left:
		return "left"
	case Up:
		return "up"
	case Right:
		return "right"
	}
	return "unknown"
}

// Next returns the phase that follows d.
func (d Direction) Next() Direction {
	return (d + 1) % 4
}

// Grid is a fixed-size board of piece codes, stored row-major.
type Grid struct {
	cells []models.PieceCode
	cols  int
}

// NewGrid returns an empty grid with the given dimensions.
func NewGrid(rows, cols int) *Grid {
	return &Grid{cells: make([]models.PieceCode, rows*cols), cols: cols}
}

// DefaultGrid returns the starting board: 6x4 with a single trigger.
func DefaultGrid() *Grid {
	g := NewGrid(GridRows, GridColumns)
	g.cells[DefaultTriggerCell] = models.PieceTrigger
	return g
}

// GridFromCodes builds a grid from an existing row-major layout.
func GridFromCodes(codes []models.PieceCode, cols int) *Grid {
	cells := make([]models.PieceCode, len(codes))
	copy(cells, codes)
	return &Grid{cells: cells, cols: cols}
}

func (g *Grid) Len() int { return len(g.cells) }
func (g *Grid) Cols() int { return g.cols }

// Rows counts partial trailing rows as full rows.
func (g *Grid) Rows() int {
	if len(g.cells) == 0 {
		return 0
	}
	return (len(g.cells)-1)/g.cols + 1
}

func (g *Grid) InBounds(i int) bool {
	return i >= 0 && i < len(g.cells)
}

// At returns the code in cell i; out-of-range cells read as empty.
func (g *Grid) At(i int) models.PieceCode {
	if !g.InBounds(i) {
		return models.PieceEmpty
	}
	return g.cells[i]
}

func (g *Grid) set(i int, code models.PieceCode) {
	g.cells[i] = code
}

// Codes returns a copy of the cells.
func (g *Grid) Codes() []models.PieceCode {
	out := make([]models.PieceCode, len(g.cells))
	copy(out, g.cells)
	return out
}

// Triggers returns trigger cell indices in ascending order.
func (g *Grid) Triggers() []int {
	var out []int
	for i, c := range g.cells {
		if c == models.PieceTrigger {
			out = append(out, i)
		}
	}
	return out
}

// Neighbor returns the cell adjacent to i in direction d.
func (g *Grid) Neighbor(i int, d Direction) (int, bool) {
	if !g.InBounds(i) {
		return 0, false
	}
	row, col := i/g.cols, i%g.cols
	var n int
	switch d {
	case Down:
		if row >= g.Rows()-1 {
			return 0, false
		}
		n = i + g.cols
	case Left:
		if col == 0 {
			return 0, false
		}
		n = i - 1
	case Up:
		if row == 0 {
			return 0, false
		}
		n = i - g.cols
	case Right:
		if col >= g.cols-1 {
			return 0, false
		}
		n = i + 1
	default:
		return 0, false
	}
	if !g.InBounds(n) {
		return 0, false
	}
	return n, true
}
