package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EventRetention is how long activity events are kept.
const EventRetention = 90 * 24 * time.Hour

// TokenPruner removes revocations for tokens that have already expired.
type TokenPruner interface {
	PruneRevokedTokens(ctx context.Context) (int64, error)
}

// EventPruner removes old activity events.
type EventPruner interface {
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// Scheduler runs housekeeping jobs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	tokens TokenPruner
	events EventPruner
	now    func() time.Time
}

// NewScheduler creates a scheduler running maintenance on schedule.
// schedule accepts standard five-field expressions and descriptors like "@hourly".
func NewScheduler(schedule string, tokens TokenPruner, events EventPruner) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		tokens: tokens,
		events: events,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunMaintenance); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting maintenance scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped maintenance scheduler.")
}

// RunMaintenance prunes expired revocations and old events.
func (s *Scheduler) RunMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if n, err := s.tokens.PruneRevokedTokens(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune revoked tokens")
	} else if n > 0 {
		log.Info().Int64("pruned", n).Msg("Scheduler: pruned revoked tokens")
	}

	if n, err := s.events.PruneEvents(ctx, s.now().Add(-EventRetention)); err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune events")
	} else if n > 0 {
		log.Info().Int64("pruned", n).Msg("Scheduler: pruned old events")
	}
}
