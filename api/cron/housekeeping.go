package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"modpanel/api/function"
	"modpanel/api/store"
)

// Housekeeper periodically drops uploads and execution history older than
// the retention window.
type Housekeeper struct {
	cron      *cron.Cron
	db        *store.DB
	exec      *function.Executor
	retention time.Duration
	now       func() time.Time
}

func New(db *store.DB, exec *function.Executor, retention time.Duration) *Housekeeper {
	return &Housekeeper{
		cron:      cron.New(),
		db:        db,
		exec:      exec,
		retention: retention,
		now:       time.Now,
	}
}

func (h *Housekeeper) Start(schedule string) error {
	if _, err := h.cron.AddFunc(schedule, func() {
		if _, _, err := h.Sweep(context.Background()); err != nil {
			log.Warn().Err(err).Msg("cron: sweep")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	h.cron.Start()
	log.Info().Str("schedule", schedule).Dur("retention", h.retention).Msg("cron: housekeeping started")
	return nil
}

func (h *Housekeeper) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("cron: housekeeping stopped")
}

// Sweep runs one pass and reports how many files and executions it removed.
func (h *Housekeeper) Sweep(ctx context.Context) (files, executions int, err error) {
	cutoff := h.now().Add(-h.retention)
	files, err = h.exec.Prune(ctx, cutoff)
	if err != nil {
		return files, 0, fmt.Errorf("prune uploads: %w", err)
	}
	executions = h.db.PruneExecutions(cutoff)
	if files > 0 || executions > 0 {
		log.Info().Int("files", files).Int("executions", executions).Msg("cron: pruned")
	}
	return files, executions, nil
}
