package grid

import (
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Frame is the coordinate system shared by every grid built for one run:
// the anchor day plus the number of columns. The last column holds the
// anchor's week; each earlier column is one calendar week older.
//
// Weeks start on Sunday and rows follow time.Weekday, so row 0 is Sunday.
type Frame struct {
	anchor time.Time
	width  int
}

// NewFrame normalizes anchor to midnight UTC and returns its frame.
// It panics when width is not positive.
func NewFrame(anchor time.Time, width int) Frame {
	mustWidth(width)
	return Frame{anchor: Midnight(anchor), width: width}
}

// Anchor returns the normalized anchor day.
func (f Frame) Anchor() time.Time {
	return f.anchor
}

// Width returns the number of columns in grids of this frame.
func (f Frame) Width() int {
	return f.width
}

// Midnight truncates t to the start of its UTC calendar day.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Locate maps a date onto the frame. The second result is false when the date
// falls outside the grid's span, either older than the first column or in a
// week after the anchor's.
func (f Frame) Locate(date time.Time) (Cell, bool) {
	f.mustInit()
	day := Midnight(date)
	days := dayNumber(f.anchor) - dayNumber(day)
	weeks := (weekStart(f.anchor) - weekStart(day)) / Rows

	column := int64(f.width-1) - weeks
	if column < 0 || column >= int64(f.width) {
		return Cell{}, false
	}
	anchorWeekday := int64(f.anchor.Weekday())
	row := ((anchorWeekday-days)%Rows + Rows) % Rows
	return Cell{Column: int(column), Row: int(row)}, true
}

// Place is the inverse of Locate: it returns the day shown at cell.
// It panics when cell is outside the frame.
//
// Cells after the anchor's weekday in the last column map to days later than
// the anchor. Locate never produces them from past dates, so callers
// rendering history skip them.
func (f Frame) Place(cell Cell) time.Time {
	f.mustInit()
	if cell.Column < 0 || cell.Column >= f.width || cell.Row < 0 || cell.Row >= Rows {
		panic(fmt.Sprintf("grid: cell (%d, %d) outside %dx%d frame", cell.Column, cell.Row, f.width, Rows))
	}
	weeksBack := f.width - 1 - cell.Column
	start := f.anchor.AddDate(0, 0, -int(f.anchor.Weekday()))
	return start.AddDate(0, 0, -Rows*weeksBack+cell.Row)
}

// Build accumulates one vitality point per date. Dates outside the frame are
// dropped without error.
func (f Frame) Build(dates []time.Time) Grid {
	f.mustInit()
	g := New(f.width)
	for _, date := range dates {
		cell, ok := f.Locate(date)
		if !ok {
			continue
		}
		g.cells[cell.Column*Rows+cell.Row]++
	}
	return g
}

// Contains reports whether date lands inside the frame.
func (f Frame) Contains(date time.Time) bool {
	_, ok := f.Locate(date)
	return ok
}

func (f Frame) mustInit() {
	if f.width <= 0 {
		panic("grid: use of uninitialized frame")
	}
}

// dayNumber counts whole days since the Unix epoch for a UTC midnight.
// Floor division keeps pre-epoch days consistent.
func dayNumber(day time.Time) int64 {
	return floorDiv(day.Unix(), secondsPerDay)
}

// weekStart returns the day number of the Sunday that opens day's week.
func weekStart(day time.Time) int64 {
	return dayNumber(day) - int64(day.Weekday())
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
