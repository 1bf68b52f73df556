// Package life advances contribution grids by Conway's Game of Life on a
// torus: the first and last columns are adjacent, and so are Sunday and
// Saturday.
package life

import (
	"fmt"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
)

// Step returns the next generation of g.
//
// A live cell survives with two or three live neighbors; a dead cell is born
// with exactly three. Every neighbor count reads g only, and the result is a
// fresh grid whose cells hold exactly 1 (alive) or 0 (dead). Vitality counts
// above one in g carry no extra weight.
//
// Step is pure: the same input always yields the same output.
func Step(g grid.Grid) grid.Grid {
	return grid.Generate(g.Width(), func(column, row int) int {
		if next(g.Alive(column, row), LiveNeighbors(g, column, row)) {
			return 1
		}
		return 0
	})
}

// Advance applies Step generations times. Zero generations returns g as is.
// It panics when generations is negative.
func Advance(g grid.Grid, generations int) grid.Grid {
	if generations < 0 {
		panic(fmt.Sprintf("life: negative generation count %d", generations))
	}
	for i := 0; i < generations; i++ {
		g = Step(g)
	}
	return g
}

// LiveNeighbors counts the live cells among the eight neighbors of
// (column, row), wrapping both axes.
func LiveNeighbors(g grid.Grid, column, row int) int {
	width := g.Width()
	n := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if g.Alive(wrap(column+dx, width), wrap(row+dy, grid.Rows)) {
				n++
			}
		}
	}
	return n
}

func next(alive bool, neighbors int) bool {
	if alive {
		return neighbors == 2 || neighbors == 3
	}
	return neighbors == 3
}

func wrap(i, m int) int {
	return (i%m + m) % m
}
