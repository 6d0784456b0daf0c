package mockapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
)

// Scheduler runs periodic housekeeping against the mock store.
type Scheduler struct {
	cron  *cron.Cron
	store store.Store
	log   *slog.Logger
}

// NewScheduler creates a Scheduler that prunes expired token revocations
// every pruneInterval.
func NewScheduler(s store.Store, pruneInterval time.Duration, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Discard()
	}
	sch := &Scheduler{
		cron:  cron.New(),
		store: s,
		log:   logger.Component(log, "scheduler"),
	}

	if _, err := sch.cron.AddFunc("@every "+pruneInterval.String(), sch.runPrune); err != nil {
		return nil, err
	}
	return sch, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler. The returned context is done once running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runPrune() {
	n, err := s.store.PruneRevoked(context.Background())
	if err != nil {
		s.log.Error("pruning revoked tokens", "err", err)
		return
	}
	if n > 0 {
		s.log.Debug("pruned revoked tokens", "count", n)
	}
}
