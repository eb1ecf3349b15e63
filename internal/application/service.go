package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"apptrack/tracker-service/internal/metrics"
	"apptrack/tracker-service/internal/status"
	"apptrack/tracker-service/internal/timeline"
)

// statusChangedChannel is the Redis pub/sub channel for status transitions,
// consumed by the Gateway for SSE forwarding.
const statusChangedChannel = "EVENT_STATUS_CHANGED"

// Service encapsulates all application business logic. It has no dependency
// on net/http — it can be used by any transport layer.
type Service struct {
	repo Repository
	rdb  *redis.Client // nil disables notifications
}

// NewService returns a configured Service. rdb may be nil, in which case
// status-change notifications are skipped.
func NewService(repo Repository, rdb *redis.Client) *Service {
	return &Service{repo: repo, rdb: rdb}
}

// CreateInput carries everything a caller supplies when recording a new
// application. Events and CurrentStatus are stored exactly as given — Create
// never derives or injects anything; callers wanting a derived status at
// creation time run status.Calculate themselves first.
type CreateInput struct {
	UserID      string          `json:"userId"`
	CompanyName string          `json:"companyName"`
	RoleName    string          `json:"roleName"`
	Type        ApplicationType `json:"applicationType"`
	RoleType    RoleType        `json:"roleType"`
	Location    LocationType    `json:"locationType"`
	JobBoardID  string          `json:"jobBoardId"`
	WorkflowID  string          `json:"workflowId"`

	status.MilestoneDates

	Events        []timeline.Event `json:"events"`
	CurrentStatus status.Current   `json:"currentStatus"`
}

// Create validates the input and stores a new application.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Application, error) {
	if in.UserID == "" {
		return nil, validationf("userId is required")
	}
	if in.CompanyName == "" {
		return nil, validationf("companyName is required")
	}
	if in.RoleName == "" {
		return nil, validationf("roleName is required")
	}
	if !validApplicationType(in.Type) {
		return nil, validationf("applicationType must be %q or %q, got %q", TypeCold, TypeWarm, in.Type)
	}
	if in.RoleType != "" && !validRoleType(in.RoleType) {
		return nil, validationf("unknown roleType %q", in.RoleType)
	}
	if in.Location != "" && !validLocationType(in.Location) {
		return nil, validationf("unknown locationType %q", in.Location)
	}
	if in.JobBoardID != "" {
		if _, err := uuid.Parse(in.JobBoardID); err != nil {
			return nil, validationf("jobBoardId must be a UUID")
		}
	}
	if in.WorkflowID != "" {
		if _, err := uuid.Parse(in.WorkflowID); err != nil {
			return nil, validationf("workflowId must be a UUID")
		}
	}
	if err := validateDates(in.MilestoneDates); err != nil {
		return nil, err
	}

	// Initial events go through the same append path as later ones, so a
	// duplicate id or malformed date in the payload rejects the whole create.
	var events []timeline.Event
	for _, e := range in.Events {
		appended, err := timeline.Append(events, e)
		if err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		events = appended
	}

	now := time.Now().UTC()
	app := &Application{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		CompanyName:     in.CompanyName,
		RoleName:        in.RoleName,
		ApplicationType: in.Type,
		RoleType:        in.RoleType,
		LocationType:    in.Location,
		JobBoardID:      in.JobBoardID,
		WorkflowID:      in.WorkflowID,
		MilestoneDates:  in.MilestoneDates,
		Events:          events,
		CurrentStatus:   in.CurrentStatus,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, app); err != nil {
		return nil, err
	}
	metrics.ApplicationsCreatedTotal.Inc()
	return app, nil
}

// Get returns a single application, validating ownership.
func (s *Service) Get(ctx context.Context, userID, id string) (*Application, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns all of the user's applications, newest first. If statusFilter
// is non-empty it must be a known status id.
func (s *Service) List(ctx context.Context, userID, statusFilter string) ([]Application, error) {
	if statusFilter != "" {
		if _, ok := status.Lookup(statusFilter); !ok {
			return nil, validationf("unknown status filter %q", statusFilter)
		}
	}
	return s.repo.List(ctx, userID, statusFilter)
}

// milestoneSetters maps the six accepted update field names onto the
// aggregate. Any other field name in an update payload is rejected.
var milestoneSetters = map[string]func(*Application, string){
	"appliedDate":     func(a *Application, v string) { a.AppliedDate = v },
	"phoneScreenDate": func(a *Application, v string) { a.PhoneScreenDate = v },
	"round1Date":      func(a *Application, v string) { a.Round1Date = v },
	"round2Date":      func(a *Application, v string) { a.Round2Date = v },
	"acceptedDate":    func(a *Application, v string) { a.AcceptedDate = v },
	"declinedDate":    func(a *Application, v string) { a.DeclinedDate = v },
}

// UpdateMilestoneDates merges the given date fields into the stored
// aggregate, re-derives currentStatus from the merged result, and persists
// both atomically. Only the six milestone field names are accepted; an
// unknown field or malformed date rejects the whole update before anything
// is persisted. An empty string clears a field.
func (s *Service) UpdateMilestoneDates(ctx context.Context, userID, id string, updates map[string]string) (*Application, error) {
	if len(updates) == 0 {
		return nil, validationf("no date fields in update")
	}
	for field, value := range updates {
		if _, ok := milestoneSetters[field]; !ok {
			return nil, validationf("unknown update field %q", field)
		}
		if value != "" && !status.ValidDate(value) {
			return nil, validationf("field %q: %q is not a valid YYYY-MM-DD date", field, value)
		}
	}

	var from, to string
	app, err := s.repo.Update(ctx, userID, id, func(a *Application) error {
		from = a.CurrentStatus.ID
		for field, value := range updates {
			milestoneSetters[field](a, value)
		}
		derived := status.Calculate(a.MilestoneDates)
		to = derived.ID
		a.CurrentStatus = derived
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusDerivationsTotal.Inc()
	if from != to {
		metrics.StatusChangesTotal.Inc()
		s.publishStatusChanged(ctx, userID, id, from, to)
	}
	return app, nil
}

// AppendEvent records a new timeline event. It deliberately does not touch
// milestone dates or currentStatus — event recording and status-date
// recording are separate entry points. A blank event id gets a generated
// UUID; a supplied id must not collide with a stored event.
func (s *Service) AppendEvent(ctx context.Context, userID, id string, e timeline.Event) (*Application, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	app, err := s.repo.AppendEvent(ctx, userID, id, e)
	if err != nil {
		return nil, err
	}
	metrics.EventsAppendedTotal.Inc()
	return app, nil
}

// Timeline returns the application's events in chronological order.
func (s *Service) Timeline(ctx context.Context, userID, id string) ([]timeline.Event, error) {
	app, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return timeline.Chronological(app.Events), nil
}

// SetFollowUp sets the follow-up reminder timestamp on an application.
func (s *Service) SetFollowUp(ctx context.Context, userID, id string, at time.Time) (*Application, error) {
	return s.repo.Update(ctx, userID, id, func(a *Application) error {
		at := at.UTC()
		a.FollowUpAt = &at
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Delete removes the application, validating ownership.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// validateDates rejects any set-but-malformed milestone date at the write
// boundary. Read-side derivation stays tolerant; this check is what keeps
// garbage out of stored records in the first place.
func validateDates(d status.MilestoneDates) error {
	fields := map[string]string{
		"appliedDate":     d.AppliedDate,
		"phoneScreenDate": d.PhoneScreenDate,
		"round1Date":      d.Round1Date,
		"round2Date":      d.Round2Date,
		"acceptedDate":    d.AcceptedDate,
		"declinedDate":    d.DeclinedDate,
	}
	for field, value := range fields {
		if value != "" && !status.ValidDate(value) {
			return validationf("field %q: %q is not a valid YYYY-MM-DD date", field, value)
		}
	}
	return nil
}

// publishStatusChanged notifies subscribers of a status transition.
// Non-fatal: a publish failure is logged and the update still succeeds.
func (s *Service) publishStatusChanged(ctx context.Context, userID, appID, from, to string) {
	if s.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]string{
		"type":          statusChangedChannel,
		"applicationId": appID,
		"userId":        userID,
		"from":          from,
		"to":            to,
	})
	if err := s.rdb.Publish(ctx, statusChangedChannel, event).Err(); err != nil {
		slog.Warn("publish EVENT_STATUS_CHANGED failed", "err", err)
	}
}
