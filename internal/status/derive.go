package status

import "time"

// DateLayout is the wire format for all milestone and event dates.
const DateLayout = "2006-01-02"

// MilestoneDates holds the six milestone date fields of an application.
// Each field is a plain YYYY-MM-DD string; empty means "not set".
type MilestoneDates struct {
	AppliedDate     string `json:"appliedDate"`
	PhoneScreenDate string `json:"phoneScreenDate"`
	Round1Date      string `json:"round1Date"`
	Round2Date      string `json:"round2Date"`
	AcceptedDate    string `json:"acceptedDate"`
	DeclinedDate    string `json:"declinedDate"`
}

// Current is the cached, always re-derivable status projection stored on an
// application. EventID is assigned by callers that link a status change to a
// timeline event; Calculate never populates it.
type Current struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	EventID string `json:"eventId,omitempty"`
}

// ValidDate reports whether s is a syntactically valid YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// candidates pairs each milestone field with its status, in ascending
// priority order. Built once from the registry; the order matters for the
// tie-break rule in Calculate.
var candidates = []struct {
	def  Definition
	date func(MilestoneDates) string
}{
	{defaults[1], func(d MilestoneDates) string { return d.AppliedDate }},
	{defaults[2], func(d MilestoneDates) string { return d.PhoneScreenDate }},
	{defaults[3], func(d MilestoneDates) string { return d.Round1Date }},
	{defaults[4], func(d MilestoneDates) string { return d.Round2Date }},
	{defaults[5], func(d MilestoneDates) string { return d.AcceptedDate }},
	{defaults[6], func(d MilestoneDates) string { return d.DeclinedDate }},
}

// Calculate derives the current status from the milestone dates.
//
// Policy: the candidate with the latest valid date wins; on an exact date tie
// the candidate later in the workflow wins. Unset, empty, or unparseable
// dates are skipped silently — chronology always overrides workflow order, so
// a terminal status can be superseded by a later date on an earlier field.
// Pure function: same input, same output, no side effects.
func Calculate(d MilestoneDates) Current {
	initial := Initial()
	winner := Current{ID: initial.ID, Name: initial.Name}

	var best time.Time
	var found bool
	for _, c := range candidates {
		raw := c.date(d)
		if raw == "" {
			continue
		}
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			continue
		}
		// Scanning in ascending priority order, so >= hands ties to the
		// higher-priority candidate.
		if !found || t.After(best) || t.Equal(best) {
			best = t
			found = true
			winner = Current{ID: c.def.ID, Name: c.def.Name}
		}
	}
	return winner
}
