// Package schedule turns a generation into the dated history entries that
// redraw it on a contribution calendar.
package schedule

import (
	"fmt"
	"time"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
)

// Identity is the committer template applied to every event.
type Identity struct {
	Name    string
	Email   string
	Message string
}

// Event is one dated, attributed history entry derived from a live cell.
type Event struct {
	Date        time.Time `json:"date"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	Message     string    `json:"message"`
	Cell        grid.Cell `json:"cell"`
}

// Render emits one event per live cell of g, dated by frame.Place. Live
// cells of the anchor's week that fall after the anchor day have not happened
// yet and produce no event.
//
// Events are ordered oldest week first and by weekday within a week, so
// their dates never decrease; replaying them in order yields a linear
// history. A grid with no live cells yields an empty slice.
//
// g must have been built against a frame of the same width; anything else is
// a programming error and panics.
func Render(g grid.Grid, frame grid.Frame, id Identity) []Event {
	if g.Width() != frame.Width() {
		panic(fmt.Sprintf("schedule: grid width %d does not match frame width %d", g.Width(), frame.Width()))
	}
	anchor := frame.Anchor()
	live := g.Live()
	events := make([]Event, 0, len(live))
	for _, cell := range live {
		date := frame.Place(cell)
		if date.After(anchor) {
			continue
		}
		events = append(events, Event{
			Date:        date,
			AuthorName:  id.Name,
			AuthorEmail: id.Email,
			Message:     id.Message,
			Cell:        cell,
		})
	}
	return events
}

// Span returns the first and last event dates. ok is false for an empty
// schedule.
func Span(events []Event) (first, last time.Time, ok bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return events[0].Date, events[len(events)-1].Date, true
}
