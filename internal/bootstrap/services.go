package bootstrap

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/crawler"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/events"
	"github.com/jonesrussell/north-cloud/huginn/internal/fetcher"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/metrics"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
	"github.com/jonesrussell/north-cloud/huginn/internal/server"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

// Services holds the components shared by the serve and scan commands.
type Services struct {
	Config *config.Config
	Log    logger.Logger
	DB     *sqlx.DB

	Contractors    *database.ContractorRepository
	ForbiddenWords *database.ForbiddenWordRepository
	MCCCodes       *database.MCCCodeRepository
	Sessions       *database.SessionRepository
	Pages          *database.PageRepository
	Dashboard      *database.DashboardRepository

	Publisher    events.Publisher
	Index        search.Index
	Metrics      *metrics.Metrics
	Orchestrator *session.Orchestrator

	// Health lists the dependencies probed by the readiness endpoint.
	Health map[string]server.Pinger

	closers []func() error
}

// NewServices connects to the database and optional backends and builds
// the scan pipeline.
func NewServices(ctx context.Context, cfg *config.Config, log logger.Logger) (*Services, error) {
	db, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:         cfg,
		Log:            log,
		DB:             db,
		Contractors:    database.NewContractorRepository(db),
		ForbiddenWords: database.NewForbiddenWordRepository(db),
		MCCCodes:       database.NewMCCCodeRepository(db),
		Sessions:       database.NewSessionRepository(db),
		Pages:          database.NewPageRepository(db),
		Dashboard:      database.NewDashboardRepository(db),
		Metrics:        metrics.New(nil),
		Health:         map[string]server.Pinger{"database": db},
		closers:        []func() error{db.Close},
	}

	publisher, redisPing, closeRedis := SetupEventPublisher(ctx, cfg, log)
	s.Publisher = publisher
	s.closers = append(s.closers, closeRedis)
	if redisPing != nil {
		s.Health["redis"] = redisPing
	}
	s.Index = SetupSearchIndex(ctx, cfg, log)

	sc := cfg.Scanner
	f := fetcher.New(fetcher.Config{
		UserAgent:         sc.UserAgent,
		Timeout:           sc.RequestTimeout,
		RetryDelay:        sc.RetryDelay,
		MaxBodyBytes:      sc.MaxBodyBytes,
		RequestsPerSecond: sc.RequestsPerSecond,
		RespectRobots:     sc.RobotsEnabled(),
	}, log)

	s.Orchestrator = session.New(
		session.Config{
			MaxConcurrentRuns: sc.MaxConcurrentRuns,
			DefaultMaxPages:   sc.DefaultMaxPages,
			DefaultMaxDepth:   sc.DefaultMaxDepth,
			ContextRadius:     sc.ContextRadius,
			RunTimeout:        sc.RunTimeout,
		},
		s.Sessions,
		s.Contractors,
		database.RuleSource{Words: s.ForbiddenWords, Codes: s.MCCCodes},
		crawler.New(f, sc.WorkersPerRun, log),
		log,
		session.WithPublisher(s.Publisher),
		session.WithIndex(s.Index),
		session.WithMetrics(s.Metrics),
	)

	return s, nil
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
