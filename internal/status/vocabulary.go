// Package status defines the application status vocabulary and the rules
// that derive a single current status from an application's milestone dates.
//
// Canonical workflow:
//
//	Not Applied ──► Applied ──► Phone Screen ──► Round 1 ──► Round 2 ──► Accepted
//	                                                                 └─► Declined
//
// Accepted and Declined are terminal. Priority ranks increase along the
// workflow; terminal statuses carry the highest ranks.
package status

// Definition describes one status in the workflow vocabulary.
type Definition struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Terminal bool   `json:"isTerminal"`
}

// Status ids. These are a durable contract with stored CurrentStatus records.
const (
	NotApplied  = "not_applied"
	Applied     = "applied"
	PhoneScreen = "phone_screen"
	Round1      = "round_1"
	Round2      = "round_2"
	Accepted    = "accepted"
	Declined    = "declined"
)

// defaults is the canonical seven-status registry, in workflow order.
var defaults = []Definition{
	{ID: NotApplied, Name: "Not Applied", Priority: 1},
	{ID: Applied, Name: "Applied", Priority: 2},
	{ID: PhoneScreen, Name: "Phone Screen", Priority: 3},
	{ID: Round1, Name: "Round 1", Priority: 4},
	{ID: Round2, Name: "Round 2", Priority: 5},
	{ID: Accepted, Name: "Accepted", Priority: 6, Terminal: true},
	{ID: Declined, Name: "Declined", Priority: 7, Terminal: true},
}

// Default returns the canonical status registry in ascending priority order.
// The returned slice is a fresh copy; callers cannot mutate the registry.
func Default() []Definition {
	out := make([]Definition, len(defaults))
	copy(out, defaults)
	return out
}

// Lookup returns the Definition for the given status id, or false when the
// id is not part of the vocabulary.
func Lookup(id string) (Definition, bool) {
	for _, d := range defaults {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Initial returns the designated "not started" status.
func Initial() Definition { return defaults[0] }
