// Package reminder wires up the cron job that periodically finds
// applications whose follow-up reminder is due and notifies subscribers.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"apptrack/tracker-service/internal/application"
	"apptrack/tracker-service/internal/metrics"
)

// followUpDueChannel is the Redis pub/sub channel for due reminders.
const followUpDueChannel = "EVENT_FOLLOW_UP_DUE"

// Sweeper wraps robfig/cron and manages the follow-up sweep loop.
type Sweeper struct {
	cron *cron.Cron
	repo application.Repository
	rdb  *redis.Client
	spec string // cron spec, e.g. "@every 1h"
}

// New creates a Sweeper that fires every intervalHours hours.
func New(repo application.Repository, rdb *redis.Client, intervalHours int) *Sweeper {
	return &Sweeper{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		repo: repo,
		rdb:  rdb,
		spec: fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so reminders set while the service was down are delivered
// without waiting for the first tick.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.Info("follow-up sweeper started", "spec", s.spec)

	go s.Sweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	slog.Info("follow-up sweeper stopped")
}

// Sweep runs one sweep cycle: it publishes a notification for every due
// follow-up, then clears the reminder so each one fires once.
func (s *Sweeper) Sweep(ctx context.Context) {
	due, err := s.repo.ListFollowUpsDue(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("follow-up sweep failed", "err", err)
		return
	}
	if len(due) == 0 {
		return
	}

	slog.Info("follow-up sweep", "due", len(due))
	for i := range due {
		app := &due[i]
		if err := s.notify(ctx, app); err != nil {
			slog.Warn("follow-up notify failed", "applicationId", app.ID, "err", err)
			continue
		}
		if err := s.clear(ctx, app); err != nil {
			slog.Warn("follow-up clear failed", "applicationId", app.ID, "err", err)
		}
		metrics.FollowUpsPublishedTotal.Inc()
	}
}

func (s *Sweeper) notify(ctx context.Context, app *application.Application) error {
	if s.rdb == nil {
		return nil
	}
	event, _ := json.Marshal(map[string]string{
		"type":          followUpDueChannel,
		"applicationId": app.ID,
		"userId":        app.UserID,
		"companyName":   app.CompanyName,
		"roleName":      app.RoleName,
	})
	return s.rdb.Publish(ctx, followUpDueChannel, event).Err()
}

func (s *Sweeper) clear(ctx context.Context, app *application.Application) error {
	_, err := s.repo.Update(ctx, app.UserID, app.ID, func(a *application.Application) error {
		a.FollowUpAt = nil
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}
