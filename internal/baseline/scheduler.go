package baseline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"options-screener/pkg/utils"
)

// Scheduler triggers the daily baseline capture at a fixed IST wall-clock
// time. It sleeps otherwise; the capture itself is idempotent, so an extra
// trigger only rewrites the same mapping.
type Scheduler struct {
	capturer  *Capturer
	watchlist []string
	spec      string
	cron      *cron.Cron
	logger    zerolog.Logger
}

// NewScheduler creates a capture scheduler. The spec is a standard 5-field
// cron expression evaluated in IST.
func NewScheduler(capturer *Capturer, watchlist []string, spec string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		capturer:  capturer,
		watchlist: watchlist,
		spec:      spec,
		cron:      cron.New(cron.WithLocation(utils.IndiaLocation)),
		logger:    logger.With().Str("component", "baseline_scheduler").Logger(),
	}
}

// Start registers the capture job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.capturer.Capture(context.Background(), s.watchlist); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled baseline capture failed")
		}
	})
	if err != nil {
		return fmt.Errorf("registering baseline capture job: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Int("watchlist", len(s.watchlist)).Msg("Baseline scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for a running capture to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Baseline scheduler stopped")
}
