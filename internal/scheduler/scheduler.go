// Package scheduler starts scan sessions for contractors whose next
// check is due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

// DefaultSpec checks for due contractors once a minute.
const DefaultSpec = "@every 1m"

// DueLister lists contractors that are due for a check.
// *database.ContractorRepository satisfies it.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Contractor, error)
}

// Starter starts sessions. *session.Orchestrator satisfies it.
type Starter interface {
	Start(ctx context.Context, contractorID int64, trigger string) (*models.ScanSession, error)
	Available() int
}

// Scheduler polls for due contractors on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	due     DueLister
	starter Starter
	log     logger.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New validates spec and creates a stopped Scheduler.
func New(spec string, due DueLister, starter Starter, log logger.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = logger.Component(log, "scheduler")

	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:    spec,
		due:     due,
		starter: starter,
		log:     log,
		now:     time.Now,
	}, nil
}

// Start begins polling. Ticks run with a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.Tick(s.ctx) }); err != nil {
		return fmt.Errorf("schedule due check: %w", err)
	}
	s.cron.Start()

	s.log.Info("Scheduler started", logger.String("spec", s.spec))
	return nil
}

// Stop halts polling and waits for a running tick or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scheduler: %w", ctx.Err())
	}
}

// Tick starts a session for each due contractor while run slots are
// free and returns how many were started.
func (s *Scheduler) Tick(ctx context.Context) int {
	slots := s.starter.Available()
	if slots <= 0 {
		s.log.Debug("No free run slots")
		return 0
	}

	due, err := s.due.ListDue(ctx, s.now().UTC(), slots)
	if err != nil {
		s.log.Error("Failed to list due contractors", logger.Error(err))
		return 0
	}

	started := 0
	for _, c := range due {
		if ctx.Err() != nil {
			break
		}

		sess, startErr := s.starter.Start(ctx, c.ID, session.TriggerSchedule)
		switch {
		case startErr == nil:
			started++
			s.log.Debug("Scheduled scan started",
				logger.Int64("contractor_id", c.ID),
				logger.Int64("session_id", sess.ID),
			)
		case errors.Is(startErr, session.ErrAtCapacity), errors.Is(startErr, session.ErrShuttingDown):
			return started
		case errors.Is(startErr, session.ErrSessionRunning), errors.Is(startErr, session.ErrContractorInactive):
			s.log.Debug("Skipping contractor",
				logger.Int64("contractor_id", c.ID),
				logger.Error(startErr),
			)
		default:
			s.log.Error("Failed to start scheduled scan",
				logger.Int64("contractor_id", c.ID),
				logger.Error(startErr),
			)
		}
	}

	if started > 0 {
		s.log.Info("Started scheduled scans", logger.Int("count", started))
	}
	return started
}

// cronLogger routes cron's own messages to the service logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, logger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, logger.Error(err), logger.Any("details", keysAndValues))
}
