package application

import (
	"context"
	"time"

	"apptrack/tracker-service/internal/timeline"
)

// Repository is the storage contract for applications. Implementations live
// in the storage package (in-memory and postgres), selected by configuration.
//
// Every read and write is scoped by userID: an id owned by another user
// behaves exactly like a missing record (ErrNotFound).
type Repository interface {
	// Insert stores a new application. The aggregate's ID must already be set.
	Insert(ctx context.Context, app *Application) error

	// Get returns the application, or ErrNotFound.
	Get(ctx context.Context, userID, id string) (*Application, error)

	// List returns the user's applications, most recently updated first.
	// statusFilter narrows by currentStatus id when non-empty.
	List(ctx context.Context, userID, statusFilter string) ([]Application, error)

	// Update applies mutate to the current persisted state and writes the
	// result back atomically: the merge is never based on state older than
	// the write (optimistic concurrency underneath). An error from mutate
	// aborts the update with nothing persisted.
	Update(ctx context.Context, userID, id string, mutate func(*Application) error) (*Application, error)

	// AppendEvent appends e to the stored events atomically — concurrent
	// appends from multiple clients must not lose entries. Fails with a
	// ValidationError when e.ID collides with a stored event.
	AppendEvent(ctx context.Context, userID, id string, e timeline.Event) (*Application, error)

	// Delete removes the application, or returns ErrNotFound.
	Delete(ctx context.Context, userID, id string) error

	// ListFollowUpsDue returns every application whose follow-up reminder is
	// at or before now, across all users. Used by the reminder sweeper.
	ListFollowUpsDue(ctx context.Context, now time.Time) ([]Application, error)
}
