// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shibads/internal/logger"
	"shibads/internal/store"

	"github.com/robfig/cron/v3"
)

// Janitor deletes action tokens that were never redeemed. Quota resets stay
// lazy and are not touched here.
type Janitor struct {
	cron      *cron.Cron
	tokens    store.ActionTokens
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewJanitor schedules the purge. schedule uses cron syntax or descriptors
// such as "@every 1h".
func NewJanitor(tokens store.ActionTokens, schedule string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		tokens:    tokens,
		retention: retention,
		now:       time.Now,
		log:       logger.With("component", "janitor"),
	}
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return j, nil
}

// PurgeOnce removes tokens created before now minus the retention window.
func (j *Janitor) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.tokens.PurgeActionTokens(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge action tokens: %w", err)
	}
	return n, nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := j.PurgeOnce(ctx)
	if err != nil {
		j.log.Error("janitor run failed", "error", err)
		return
	}
	if n > 0 {
		j.log.Info("purged stale action tokens", "count", n)
	}
}

func (j *Janitor) Start() {
	j.cron.Start()
	j.log.Info("janitor started", "retention", j.retention.String())
}

// Stop waits for a running purge to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.log.Info("janitor stopped")
}
