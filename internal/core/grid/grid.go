// Package grid models the toroidal contribution calendar and the mapping
// between its cells and calendar dates.
//
// A Grid is Width columns of Rows cells. Columns advance with calendar time
// (oldest week first) and rows are weekdays, Sunday first. Each cell holds a
// non-negative vitality count; a cell is alive when its count is positive.
//
// Grids are immutable values. Every constructor returns a fresh grid and no
// method mutates the receiver, so a Grid can be shared freely between
// goroutines.
package grid

import (
	"fmt"

	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
)

// Rows is the number of weekdays in a column.
const Rows = 7

// DefaultWidth is ceil(365/7): enough columns to hold a full year of weeks.
const DefaultWidth = (365 + Rows - 1) / Rows

// ErrDimension reports a persisted grid whose shape is not width×Rows.
var ErrDimension = apperrors.New(apperrors.CodeGridDimension, "grid dimensions mismatch")

// Cell addresses one grid position.
type Cell struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// Grid is an immutable width×Rows matrix of vitality counts.
type Grid struct {
	width int
	cells []int // column-major: index = column*Rows + row
}

// New returns an all-dead grid with the given number of columns.
// It panics when width is not positive.
func New(width int) Grid {
	mustWidth(width)
	return Grid{width: width, cells: make([]int, width*Rows)}
}

// Generate builds a fresh grid by asking fn for the vitality of every cell.
// Negative values are clamped to zero.
func Generate(width int, fn func(column, row int) int) Grid {
	g := New(width)
	for column := 0; column < width; column++ {
		for row := 0; row < Rows; row++ {
			if v := fn(column, row); v > 0 {
				g.cells[column*Rows+row] = v
			}
		}
	}
	return g
}

// FromCells decodes the persisted row-within-column representation.
func FromCells(cells [][]int) (Grid, error) {
	if len(cells) == 0 {
		return Grid{}, apperrors.WrapWithMetadata(
			apperrors.CodeGridDimension,
			"decode grid",
			map[string]string{"columns": "0"},
			ErrDimension,
		)
	}
	g := New(len(cells))
	for column, rows := range cells {
		if len(rows) != Rows {
			return Grid{}, apperrors.WrapWithMetadata(
				apperrors.CodeGridDimension,
				"decode grid",
				map[string]string{
					"column": fmt.Sprint(column),
					"rows":   fmt.Sprint(len(rows)),
				},
				ErrDimension,
			)
		}
		for row, v := range rows {
			if v < 0 {
				return Grid{}, apperrors.WithMetadata(
					apperrors.CodeGridDimension,
					"decode grid: negative vitality",
					map[string]string{
						"column": fmt.Sprint(column),
						"row":    fmt.Sprint(row),
					},
				)
			}
			g.cells[column*Rows+row] = v
		}
	}
	return g, nil
}

// Width returns the number of columns.
func (g Grid) Width() int {
	g.mustInit()
	return g.width
}

// Vitality returns the event count stored at (column, row).
// It panics when the coordinate is outside the grid.
func (g Grid) Vitality(column, row int) int {
	return g.cells[g.index(column, row)]
}

// Alive reports whether the cell at (column, row) has positive vitality.
func (g Grid) Alive(column, row int) bool {
	return g.Vitality(column, row) > 0
}

// LiveCount returns the number of alive cells.
func (g Grid) LiveCount() int {
	g.mustInit()
	n := 0
	for _, v := range g.cells {
		if v > 0 {
			n++
		}
	}
	return n
}

// Live returns the alive cells in column-major order, oldest week first and
// weekdays ascending within a week.
func (g Grid) Live() []Cell {
	g.mustInit()
	live := make([]Cell, 0, g.LiveCount())
	for i, v := range g.cells {
		if v > 0 {
			live = append(live, Cell{Column: i / Rows, Row: i % Rows})
		}
	}
	return live
}

// Cells returns a copy of the grid in its persisted row-within-column form.
func (g Grid) Cells() [][]int {
	g.mustInit()
	out := make([][]int, g.width)
	for column := range out {
		out[column] = append([]int(nil), g.cells[column*Rows:(column+1)*Rows]...)
	}
	return out
}

// Equal reports whether both grids have the same shape and vitality counts.
func (g Grid) Equal(other Grid) bool {
	if g.width != other.width || len(g.cells) != len(other.cells) {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// String renders the grid one weekday per line, '#' for alive and '.' for dead.
// Run reports and test failure messages print it.
func (g Grid) String() string {
	if g.width == 0 {
		return "<uninitialized grid>"
	}
	buf := make([]byte, 0, (g.width+1)*Rows)
	for row := 0; row < Rows; row++ {
		for column := 0; column < g.width; column++ {
			if g.cells[column*Rows+row] > 0 {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}

func (g Grid) index(column, row int) int {
	g.mustInit()
	if column < 0 || column >= g.width || row < 0 || row >= Rows {
		panic(fmt.Sprintf("grid: cell (%d, %d) outside %dx%d grid", column, row, g.width, Rows))
	}
	return column*Rows + row
}

func (g Grid) mustInit() {
	if g.width <= 0 || len(g.cells) != g.width*Rows {
		panic("grid: use of uninitialized grid")
	}
}

func mustWidth(width int) {
	if width <= 0 {
		panic(fmt.Sprintf("grid: width must be positive, got %d", width))
	}
}
