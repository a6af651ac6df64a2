// Package session orchestrates scan sessions: it starts, tracks, cancels
// and finalizes crawl runs and records their pages as they arrive.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/classifier"
	"github.com/jonesrussell/north-cloud/huginn/internal/crawler"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/matcher"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

// Triggers label how a session was started.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// Errors returned by the orchestrator.
var (
	ErrSessionRunning     = errors.New("a scan session is already running for this contractor")
	ErrContractorInactive = errors.New("contractor is not active")
	ErrAtCapacity         = errors.New("maximum number of concurrent scan sessions reached")
	ErrShuttingDown       = errors.New("scanner is shutting down")
)

// Cancellation causes. Their text becomes the session's error_message.
var (
	errCancelled  = errors.New("cancelled")
	errRunTimeout = errors.New("run timed out")
	errShutdown   = errors.New("interrupted by shutdown")
)

const (
	orphanReason  = "interrupted by restart"
	finishTimeout = 30 * time.Second
)

// Sessions persists sessions. *database.SessionRepository satisfies it.
type Sessions interface {
	Start(ctx context.Context, contractorID int64, now time.Time) (*models.ScanSession, error)
	GetByID(ctx context.Context, id int64) (*models.ScanSession, error)
	RecordPage(ctx context.Context, sessionID int64, rec database.PageRecord) error
	Finish(ctx context.Context, p database.FinishParams) (*models.ScanSession, error)
	Delete(ctx context.Context, id int64) error
	FailOrphaned(ctx context.Context, reason string, now time.Time) (int64, error)
}

// Contractors looks up contractors. *database.ContractorRepository
// satisfies it.
type Contractors interface {
	GetByID(ctx context.Context, id int64) (*models.Contractor, error)
}

// Crawler runs one crawl. *crawler.Crawler satisfies it.
type Crawler interface {
	Run(
		ctx context.Context,
		target crawler.Target,
		m *matcher.Matcher,
		cls *classifier.Classifier,
		sink crawler.Sink,
	) (*crawler.Summary, error)
}

// Config bounds the runs an orchestrator starts.
type Config struct {
	MaxConcurrentRuns int
	DefaultMaxPages   int
	DefaultMaxDepth   int
	ContextRadius     int
	RunTimeout        time.Duration
}

// DeleteResult reports what Delete did to a session.
type DeleteResult struct {
	// Cancelled is true when the session was running and has been asked
	// to stop. Session then holds its latest state.
	Cancelled bool
	Session   *models.ScanSession
}
