package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
)

// Sweeper submits every client's latest month on a cron schedule,
// typically the first morning of each month.
type Sweeper struct {
	orchestrator *Orchestrator
	cron         *cron.Cron
	expr         string
	logger       arbor.ILogger
}

func NewSweeper(config *common.ScheduleConfig, orchestrator *Orchestrator, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		orchestrator: orchestrator,
		cron:         cron.New(),
		expr:         config.Cron,
		logger:       logger,
	}
}

// Start registers the sweep and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.expr, s.sweep)
	if err != nil {
		return fmt.Errorf("invalid schedule expression %q: %w", s.expr, err)
	}
	s.cron.Start()
	s.logger.Info().Str("cron", s.expr).Msg("Monthly report sweep scheduled")
	return nil
}

// Stop stops the scheduler. Jobs already submitted keep running.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	s.logger.Info().Msg("Starting scheduled report sweep")
	submitted, err := s.orchestrator.SubmitAll(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}
	s.logger.Info().Int("jobs", len(submitted)).Msg("Scheduled sweep submitted jobs")
}
