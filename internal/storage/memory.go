// Package storage provides the Repository implementations: an in-memory
// store for tests and single-process deployments, and a PostgreSQL store
// for production. The backend is selected by configuration.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"apptrack/tracker-service/internal/application"
	"apptrack/tracker-service/internal/timeline"
)

// Memory is a mutex-guarded in-memory Repository. Aggregates are deep-copied
// on the way in and out, so callers never share state with the store.
type Memory struct {
	mu   sync.RWMutex
	apps map[string]*application.Application // keyed by application id
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{apps: make(map[string]*application.Application)}
}

func (m *Memory) Insert(_ context.Context, app *application.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apps[app.ID]; exists {
		return fmt.Errorf("application %s already exists", app.ID)
	}
	m.apps[app.ID] = app.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, userID, id string) (*application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locked(userID, id)
}

// locked looks up an application without copying. Caller holds the lock.
// Ownership mismatch is reported identically to absence.
func (m *Memory) locked(userID, id string) (*application.Application, error) {
	app, ok := m.apps[id]
	if !ok || app.UserID != userID {
		return nil, application.ErrNotFound
	}
	return app.Clone(), nil
}

func (m *Memory) List(_ context.Context, userID, statusFilter string) ([]application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]application.Application, 0)
	for _, app := range m.apps {
		if app.UserID != userID {
			continue
		}
		if statusFilter != "" && app.CurrentStatus.ID != statusFilter {
			continue
		}
		out = append(out, *app.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Update applies mutate under the write lock: the read, the merge, and the
// write are a single critical section, so concurrent updates cannot be based
// on stale state. An error from mutate leaves the stored record untouched.
func (m *Memory) Update(_ context.Context, userID, id string, mutate func(*application.Application) error) (*application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.locked(userID, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(current); err != nil {
		return nil, err
	}
	m.apps[id] = current.Clone()
	return current, nil
}

// AppendEvent appends under the write lock. timeline.Append does the
// duplicate-id check and never disturbs existing entries.
func (m *Memory) AppendEvent(_ context.Context, userID, id string, e timeline.Event) (*application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.locked(userID, id)
	if err != nil {
		return nil, err
	}
	events, err := timeline.Append(current.Events, e)
	if err != nil {
		return nil, &application.ValidationError{Msg: err.Error()}
	}
	current.Events = events
	current.UpdatedAt = time.Now().UTC()
	m.apps[id] = current.Clone()
	return current, nil
}

func (m *Memory) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.apps[id]
	if !ok || app.UserID != userID {
		return application.ErrNotFound
	}
	delete(m.apps, id)
	return nil
}

func (m *Memory) ListFollowUpsDue(_ context.Context, now time.Time) ([]application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]application.Application, 0)
	for _, app := range m.apps {
		if app.FollowUpAt != nil && !app.FollowUpAt.After(now) {
			out = append(out, *app.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FollowUpAt.Before(*out[j].FollowUpAt)
	})
	return out, nil
}

var _ application.Repository = (*Memory)(nil)
