// Package application contains the tracker's business logic: the application
// aggregate, the service operating on it, and the storage contract. It is
// transport-agnostic — used by the HTTP layer (httpapi package) and the
// follow-up sweeper (reminder package).
package application

import (
	"time"

	"apptrack/tracker-service/internal/status"
	"apptrack/tracker-service/internal/timeline"
)

// Classification enums. Values mirror what clients submit.
type (
	ApplicationType string
	RoleType        string
	LocationType    string
)

const (
	TypeCold ApplicationType = "cold"
	TypeWarm ApplicationType = "warm"

	RoleFullTime   RoleType = "full_time"
	RolePartTime   RoleType = "part_time"
	RoleContract   RoleType = "contract"
	RoleInternship RoleType = "internship"

	LocationRemote LocationType = "remote"
	LocationHybrid LocationType = "hybrid"
	LocationOnSite LocationType = "on_site"
)

// Application is the aggregate root: identity, classification, the six
// milestone date fields, the append-only event log, and the cached
// currentStatus projection. CurrentStatus is always re-derivable from the
// milestone dates and is recomputed on every date mutation.
type Application struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	CompanyName string `json:"companyName"`
	RoleName    string `json:"roleName"`

	ApplicationType ApplicationType `json:"applicationType"`
	RoleType        RoleType        `json:"roleType,omitempty"`
	LocationType    LocationType    `json:"locationType,omitempty"`

	// Optional references to the job board and workflow the application was
	// provisioned from. UUIDs when set.
	JobBoardID string `json:"jobBoardId,omitempty"`
	WorkflowID string `json:"workflowId,omitempty"`

	status.MilestoneDates

	Events        []timeline.Event `json:"events"`
	CurrentStatus status.Current   `json:"currentStatus"`

	FollowUpAt *time.Time `json:"followUpAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy. Repositories hand out clones so callers never
// share slices with stored state.
func (a *Application) Clone() *Application {
	out := *a
	if a.Events != nil {
		out.Events = make([]timeline.Event, len(a.Events))
		copy(out.Events, a.Events)
	}
	if a.FollowUpAt != nil {
		t := *a.FollowUpAt
		out.FollowUpAt = &t
	}
	return &out
}

func validApplicationType(t ApplicationType) bool {
	return t == TypeCold || t == TypeWarm
}

func validRoleType(t RoleType) bool {
	switch t {
	case RoleFullTime, RolePartTime, RoleContract, RoleInternship:
		return true
	}
	return false
}

func validLocationType(t LocationType) bool {
	switch t {
	case LocationRemote, LocationHybrid, LocationOnSite:
		return true
	}
	return false
}
