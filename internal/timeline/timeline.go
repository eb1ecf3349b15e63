// Package timeline implements the append-only event log attached to each
// application. Stored order is insertion order; chronological order is a
// projection, never a storage invariant.
package timeline

import (
	"fmt"
	"sort"

	"apptrack/tracker-service/internal/status"
)

// Event is one timestamped milestone record in an application's history.
// Events are never mutated in place; corrections are recorded as new events.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// Validate checks the event's own fields: id and title present, date a
// syntactically valid YYYY-MM-DD string.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if !status.ValidDate(e.Date) {
		return fmt.Errorf("event date %q is not a valid YYYY-MM-DD date", e.Date)
	}
	return nil
}

// Append returns a new slice equal to events with e appended. The input slice
// is never mutated, reordered, or truncated. Fails when e is invalid or its
// id collides with an existing event.
func Append(events []Event, e Event) ([]Event, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	for _, existing := range events {
		if existing.ID == e.ID {
			return nil, fmt.Errorf("duplicate event id %q", e.ID)
		}
	}
	out := make([]Event, len(events), len(events)+1)
	copy(out, events)
	return append(out, e), nil
}

// Chronological returns the events sorted by date ascending. The sort is
// stable: events sharing a date keep their original relative order. The input
// is copied, not mutated, so each call restarts from the stored order.
func Chronological(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
