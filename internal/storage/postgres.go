package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"apptrack/tracker-service/internal/application"
	"apptrack/tracker-service/internal/status"
	"apptrack/tracker-service/internal/timeline"
)

// Postgres is the production Repository backed by a pgxpool.
//
// Expected schema:
//
//	CREATE TABLE applications (
//	    id                uuid PRIMARY KEY,
//	    user_id           text NOT NULL,
//	    company_name      text NOT NULL,
//	    role_name         text NOT NULL,
//	    application_type  text NOT NULL,
//	    role_type         text NOT NULL DEFAULT '',
//	    location_type     text NOT NULL DEFAULT '',
//	    job_board_id      text NOT NULL DEFAULT '',
//	    workflow_id       text NOT NULL DEFAULT '',
//	    applied_date      text NOT NULL DEFAULT '',
//	    phone_screen_date text NOT NULL DEFAULT '',
//	    round1_date       text NOT NULL DEFAULT '',
//	    round2_date       text NOT NULL DEFAULT '',
//	    accepted_date     text NOT NULL DEFAULT '',
//	    declined_date     text NOT NULL DEFAULT '',
//	    events            jsonb NOT NULL DEFAULT '[]',
//	    current_status    jsonb NOT NULL DEFAULT '{}',
//	    follow_up_at      timestamptz,
//	    created_at        timestamptz NOT NULL,
//	    updated_at        timestamptz NOT NULL
//	);
//	CREATE INDEX applications_user_idx ON applications (user_id, updated_at DESC);
//
// Milestone dates are stored as opaque text: the field-encryption collaborator
// may hand us ciphertext, and the store must not care.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// updateRetries bounds the optimistic-concurrency retry loop in Update.
const updateRetries = 3

const appColumns = `id, user_id, company_name, role_name, application_type,
	role_type, location_type, job_board_id, workflow_id,
	applied_date, phone_screen_date, round1_date, round2_date,
	accepted_date, declined_date,
	events, current_status, follow_up_at, created_at, updated_at`

func (p *Postgres) Insert(ctx context.Context, app *application.Application) error {
	events, err := json.Marshal(eventsOrEmpty(app.Events))
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	current, err := json.Marshal(app.CurrentStatus)
	if err != nil {
		return fmt.Errorf("marshal current_status: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO applications (`+appColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		         $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		app.ID, app.UserID, app.CompanyName, app.RoleName, string(app.ApplicationType),
		string(app.RoleType), string(app.LocationType), app.JobBoardID, app.WorkflowID,
		app.AppliedDate, app.PhoneScreenDate, app.Round1Date, app.Round2Date,
		app.AcceptedDate, app.DeclinedDate,
		events, current, app.FollowUpAt, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, userID, id string) (*application.Application, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func (p *Postgres) List(ctx context.Context, userID, statusFilter string) ([]application.Application, error) {
	const base = `SELECT ` + appColumns + ` FROM applications WHERE user_id = $1`

	var (
		rows pgx.Rows
		err  error
	)
	if statusFilter != "" {
		rows, err = p.pool.Query(ctx, base+` AND current_status->>'id' = $2 ORDER BY updated_at DESC`, userID, statusFilter)
	} else {
		rows, err = p.pool.Query(ctx, base+` ORDER BY updated_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list applications query: %w", err)
	}
	defer rows.Close()

	apps := make([]application.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("list applications scan: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// Update re-reads the row, applies mutate, and writes back guarded by the
// updated_at it read: a concurrent writer makes the guard miss and the whole
// read-merge-write cycle retries on fresh state. The merge is never based on
// state older than the write.
func (p *Postgres) Update(ctx context.Context, userID, id string, mutate func(*application.Application) error) (*application.Application, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		app, err := p.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		seen := app.UpdatedAt

		if err := mutate(app); err != nil {
			return nil, err
		}

		events, err := json.Marshal(eventsOrEmpty(app.Events))
		if err != nil {
			return nil, fmt.Errorf("marshal events: %w", err)
		}
		current, err := json.Marshal(app.CurrentStatus)
		if err != nil {
			return nil, fmt.Errorf("marshal current_status: %w", err)
		}

		tag, err := p.pool.Exec(ctx,
			`UPDATE applications
			 SET applied_date = $1, phone_screen_date = $2, round1_date = $3,
			     round2_date = $4, accepted_date = $5, declined_date = $6,
			     events = $7, current_status = $8, follow_up_at = $9, updated_at = $10
			 WHERE id = $11 AND user_id = $12 AND updated_at = $13`,
			app.AppliedDate, app.PhoneScreenDate, app.Round1Date,
			app.Round2Date, app.AcceptedDate, app.DeclinedDate,
			events, current, app.FollowUpAt, app.UpdatedAt,
			id, userID, seen,
		)
		if err != nil {
			return nil, fmt.Errorf("update application: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return app, nil
		}
		// Guard missed: someone wrote between our read and write. Retry.
	}
	return nil, fmt.Errorf("update application %s: too many concurrent writes", id)
}

// AppendEvent pushes the event onto the jsonb array in a single statement,
// so concurrent appends interleave instead of overwriting each other. The
// @> guard rejects a duplicate id that raced past the pre-check.
func (p *Postgres) AppendEvent(ctx context.Context, userID, id string, e timeline.Event) (*application.Application, error) {
	current, err := p.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := timeline.Append(current.Events, e); err != nil {
		return nil, &application.ValidationError{Msg: err.Error()}
	}

	entry, err := json.Marshal([]timeline.Event{e})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	dup, _ := json.Marshal([]map[string]string{{"id": e.ID}})

	row := p.pool.QueryRow(ctx,
		`UPDATE applications
		 SET events = events || $1::jsonb, updated_at = NOW()
		 WHERE id = $2 AND user_id = $3 AND NOT events @> $4::jsonb
		 RETURNING `+appColumns,
		entry, id, userID, dup,
	)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The row existed a moment ago, so the only way the guard misses
			// is a concurrent append of the same id.
			return nil, &application.ValidationError{Msg: fmt.Sprintf("duplicate event id %q", e.ID)}
		}
		return nil, fmt.Errorf("append event: %w", err)
	}
	return app, nil
}

func (p *Postgres) Delete(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM applications WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListFollowUpsDue(ctx context.Context, now time.Time) ([]application.Application, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE follow_up_at IS NOT NULL AND follow_up_at <= $1
		 ORDER BY follow_up_at ASC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list due follow-ups: %w", err)
	}
	defer rows.Close()

	apps := make([]application.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("list due follow-ups scan: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// scanApplication reads one row in appColumns order.
func scanApplication(row pgx.Row) (*application.Application, error) {
	var (
		app          application.Application
		appType      string
		roleType     string
		locationType string
		eventsRaw    []byte
		currentRaw   []byte
	)
	err := row.Scan(
		&app.ID, &app.UserID, &app.CompanyName, &app.RoleName, &appType,
		&roleType, &locationType, &app.JobBoardID, &app.WorkflowID,
		&app.AppliedDate, &app.PhoneScreenDate, &app.Round1Date, &app.Round2Date,
		&app.AcceptedDate, &app.DeclinedDate,
		&eventsRaw, &currentRaw, &app.FollowUpAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.ApplicationType = application.ApplicationType(appType)
	app.RoleType = application.RoleType(roleType)
	app.LocationType = application.LocationType(locationType)
	if err := json.Unmarshal(eventsRaw, &app.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	var current status.Current
	if err := json.Unmarshal(currentRaw, &current); err != nil {
		return nil, fmt.Errorf("unmarshal current_status: %w", err)
	}
	app.CurrentStatus = current
	return &app, nil
}

// eventsOrEmpty keeps nil event slices marshaling as [] rather than null.
func eventsOrEmpty(events []timeline.Event) []timeline.Event {
	if events == nil {
		return []timeline.Event{}
	}
	return events
}

var _ application.Repository = (*Postgres)(nil)
