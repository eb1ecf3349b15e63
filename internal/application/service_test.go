package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptrack/tracker-service/internal/application"
	"apptrack/tracker-service/internal/status"
	"apptrack/tracker-service/internal/storage"
	"apptrack/tracker-service/internal/timeline"
)

func newService(t *testing.T) *application.Service {
	t.Helper()
	return application.NewService(storage.NewMemory(), nil)
}

func validInput(userID string) application.CreateInput {
	return application.CreateInput{
		UserID:      userID,
		CompanyName: "Acme",
		RoleName:    "Backend Engineer",
		Type:        application.TypeCold,
	}
}

// ── Create ─────────────────────────────────────────────────────────────────

func TestCreate_AssignsIdentityAndTimestamps(t *testing.T) {
	svc := newService(t)

	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, "user-a", app.UserID)
	assert.False(t, app.CreatedAt.IsZero())
	assert.Equal(t, app.CreatedAt, app.UpdatedAt)
}

func TestCreate_StoresStatusAndEventsVerbatim(t *testing.T) {
	svc := newService(t)

	in := validInput("user-a")
	in.AppliedDate = "2025-01-15"
	in.Events = []timeline.Event{{ID: "e1", Title: "Applied", Date: "2025-01-15"}}
	// Caller-supplied status is stored as-is; Create never derives one.
	in.CurrentStatus = status.Current{ID: status.Applied, Name: "Applied", EventID: "e1"}

	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, status.Applied, app.CurrentStatus.ID)
	assert.Equal(t, "e1", app.CurrentStatus.EventID)
	require.Len(t, app.Events, 1)
	assert.Equal(t, "e1", app.Events[0].ID)
}

func TestCreate_DoesNotAutoDerive(t *testing.T) {
	svc := newService(t)

	in := validInput("user-a")
	in.AppliedDate = "2025-01-15"
	// No CurrentStatus supplied: the stored projection stays zero-valued.
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, app.CurrentStatus.ID)
}

func TestCreate_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*application.CreateInput)
	}{
		{"missing userId", func(in *application.CreateInput) { in.UserID = "" }},
		{"missing companyName", func(in *application.CreateInput) { in.CompanyName = "" }},
		{"missing roleName", func(in *application.CreateInput) { in.RoleName = "" }},
		{"missing applicationType", func(in *application.CreateInput) { in.Type = "" }},
		{"unknown applicationType", func(in *application.CreateInput) { in.Type = "lukewarm" }},
		{"unknown roleType", func(in *application.CreateInput) { in.RoleType = "gig" }},
		{"unknown locationType", func(in *application.CreateInput) { in.Location = "moon" }},
		{"malformed jobBoardId", func(in *application.CreateInput) { in.JobBoardID = "not-a-uuid" }},
		{"malformed workflowId", func(in *application.CreateInput) { in.WorkflowID = "not-a-uuid" }},
		{"malformed milestone date", func(in *application.CreateInput) { in.AppliedDate = "01/15/2025" }},
		{"duplicate event ids", func(in *application.CreateInput) {
			in.Events = []timeline.Event{
				{ID: "e1", Title: "Applied", Date: "2025-01-15"},
				{ID: "e1", Title: "Applied twice", Date: "2025-01-16"},
			}
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := newService(t)
			in := validInput("user-a")
			c.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			var verr *application.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

// ── UpdateMilestoneDates ───────────────────────────────────────────────────

func TestUpdateMilestoneDates_RecalculatesStatus(t *testing.T) {
	svc := newService(t)
	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	updated, err := svc.UpdateMilestoneDates(context.Background(), "user-a", app.ID, map[string]string{
		"appliedDate":     "2025-01-15",
		"phoneScreenDate": "2025-01-25",
		"round1Date":      "2025-01-20",
	})
	require.NoError(t, err)

	// Phone screen is chronologically latest even though round 1 is the
	// later workflow step.
	assert.Equal(t, status.PhoneScreen, updated.CurrentStatus.ID)
	assert.Equal(t, "Phone Screen", updated.CurrentStatus.Name)
	assert.Equal(t, "2025-01-25", updated.PhoneScreenDate)
	assert.True(t, updated.UpdatedAt.After(app.UpdatedAt) || updated.UpdatedAt.Equal(app.UpdatedAt))
}

func TestUpdateMilestoneDates_MergesWithExisting(t *testing.T) {
	svc := newService(t)
	in := validInput("user-a")
	in.AppliedDate = "2025-01-10"
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	updated, err := svc.UpdateMilestoneDates(context.Background(), "user-a", app.ID, map[string]string{
		"acceptedDate": "2025-02-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-01-10", updated.AppliedDate, "untouched field preserved")
	assert.Equal(t, status.Accepted, updated.CurrentStatus.ID)
}

func TestUpdateMilestoneDates_UnknownFieldRejectedBeforePersistence(t *testing.T) {
	svc := newService(t)
	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	_, err = svc.UpdateMilestoneDates(context.Background(), "user-a", app.ID, map[string]string{
		"appliedDate": "2025-01-15",
		"notAField":   "x",
	})
	var verr *application.ValidationError
	require.ErrorAs(t, err, &verr)

	// The rejected update must leave the stored record completely unchanged —
	// including the valid field that rode along with the bad one.
	stored, err := svc.Get(context.Background(), "user-a", app.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AppliedDate)
	assert.Equal(t, app.UpdatedAt, stored.UpdatedAt)
}

func TestUpdateMilestoneDates_MalformedDateRejected(t *testing.T) {
	svc := newService(t)
	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	_, err = svc.UpdateMilestoneDates(context.Background(), "user-a", app.ID, map[string]string{
		"appliedDate": "Jan 15 2025",
	})
	var verr *application.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpdateMilestoneDates_EmptyStringClearsField(t *testing.T) {
	svc := newService(t)
	in := validInput("user-a")
	in.AppliedDate = "2025-01-10"
	in.DeclinedDate = "2025-02-01"
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	updated, err := svc.UpdateMilestoneDates(context.Background(), "user-a", app.ID, map[string]string{
		"declinedDate": "",
	})
	require.NoError(t, err)

	assert.Empty(t, updated.DeclinedDate)
	assert.Equal(t, status.Applied, updated.CurrentStatus.ID)
}

func TestUpdateMilestoneDates_NotOwned(t *testing.T) {
	svc := newService(t)
	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	_, err = svc.UpdateMilestoneDates(context.Background(), "user-b", app.ID, map[string]string{
		"appliedDate": "2025-01-15",
	})
	assert.ErrorIs(t, err, application.ErrNotFound)
}

// ── AppendEvent ────────────────────────────────────────────────────────────

func TestAppendEvent_DoesNotTouchDatesOrStatus(t *testing.T) {
	svc := newService(t)
	in := validInput("user-a")
	in.AppliedDate = "2025-01-10"
	in.CurrentStatus = status.Current{ID: status.Applied, Name: "Applied"}
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	updated, err := svc.AppendEvent(context.Background(), "user-a", app.ID, timeline.Event{
		Title: "Recruiter reached out",
		Date:  "2025-02-14",
	})
	require.NoError(t, err)

	require.Len(t, updated.Events, 1)
	assert.NotEmpty(t, updated.Events[0].ID, "blank event id gets a generated one")
	assert.Equal(t, status.Applied, updated.CurrentStatus.ID, "status untouched")
	assert.Equal(t, "2025-01-10", updated.AppliedDate, "dates untouched")
}

func TestAppendEvent_NonDestructive(t *testing.T) {
	svc := newService(t)
	in := validInput("user-a")
	in.Events = []timeline.Event{
		{ID: "e1", Title: "Applied", Date: "2025-01-10"},
		{ID: "e2", Title: "Phone screen", Date: "2025-01-18"},
	}
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	updated, err := svc.AppendEvent(context.Background(), "user-a", app.ID, timeline.Event{
		ID: "e3", Title: "Round 1", Date: "2025-01-25",
	})
	require.NoError(t, err)

	require.Len(t, updated.Events, len(app.Events)+1)
	for i, e := range app.Events {
		assert.Equal(t, e, updated.Events[i])
	}
}

func TestAppendEvent_DuplicateID(t *testing.T) {
	svc := newService(t)
	in := validInput("user-a")
	in.Events = []timeline.Event{{ID: "e1", Title: "Applied", Date: "2025-01-10"}}
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.AppendEvent(context.Background(), "user-a", app.ID, timeline.Event{
		ID: "e1", Title: "Applied again", Date: "2025-01-11",
	})
	var verr *application.ValidationError
	require.ErrorAs(t, err, &verr)
}

// ── Timeline ───────────────────────────────────────────────────────────────

func TestTimeline_ChronologicalProjection(t *testing.T) {
	svc := newService(t)
	in := validInput("user-a")
	in.Events = []timeline.Event{
		{ID: "e1", Title: "Round 1", Date: "2025-01-25"},
		{ID: "e2", Title: "Applied", Date: "2025-01-10"},
		{ID: "e3", Title: "Phone screen", Date: "2025-01-18"},
	}
	app, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	events, err := svc.Timeline(context.Background(), "user-a", app.ID)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, []string{"e2", "e3", "e1"}, []string{events[0].ID, events[1].ID, events[2].ID})

	// Stored order must be untouched by the projection.
	stored, err := svc.Get(context.Background(), "user-a", app.ID)
	require.NoError(t, err)
	assert.Equal(t, "e1", stored.Events[0].ID)
}

// ── Cross-user isolation ───────────────────────────────────────────────────

func TestCrossUserIsolation(t *testing.T) {
	svc := newService(t)
	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "user-b", app.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	err = svc.Delete(context.Background(), "user-b", app.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, err = svc.AppendEvent(context.Background(), "user-b", app.ID, timeline.Event{
		Title: "Sneaky", Date: "2025-01-01",
	})
	assert.ErrorIs(t, err, application.ErrNotFound)

	apps, err := svc.List(context.Background(), "user-b", "")
	require.NoError(t, err)
	assert.Empty(t, apps)
}

// ── List ───────────────────────────────────────────────────────────────────

func TestList_StatusFilter(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput("user-a"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("user-a"))
	require.NoError(t, err)

	_, err = svc.UpdateMilestoneDates(ctx, "user-a", a.ID, map[string]string{"declinedDate": "2025-02-01"})
	require.NoError(t, err)

	declined, err := svc.List(ctx, "user-a", status.Declined)
	require.NoError(t, err)
	require.Len(t, declined, 1)
	assert.Equal(t, a.ID, declined[0].ID)

	_, err = svc.List(ctx, "user-a", "bogus_status")
	var verr *application.ValidationError
	require.ErrorAs(t, err, &verr)
}

// ── Follow-up ──────────────────────────────────────────────────────────────

func TestSetFollowUp(t *testing.T) {
	svc := newService(t)
	app, err := svc.Create(context.Background(), validInput("user-a"))
	require.NoError(t, err)

	at := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	updated, err := svc.SetFollowUp(context.Background(), "user-a", app.ID, at)
	require.NoError(t, err)

	require.NotNil(t, updated.FollowUpAt)
	assert.Equal(t, at, *updated.FollowUpAt)
}
