package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/events"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/matcher"
	"github.com/jonesrussell/north-cloud/huginn/internal/metrics"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
)

const (
	defaultMaxConcurrentRuns = 10
	defaultMaxPages          = 100
	defaultMaxDepth          = 3
)

type activeRun struct {
	contractorID int64
	sessionID    int64
	cancel       context.CancelCauseFunc
	// pending holds a cancellation requested before the run was launched.
	pending error
	done    chan struct{}
}

// Orchestrator owns every run in the process. At most one run per
// contractor is active at a time and at most MaxConcurrentRuns overall.
type Orchestrator struct {
	cfg         Config
	sessions    Sessions
	contractors Contractors
	rules       rules.Source
	crawler     Crawler
	publisher   events.Publisher
	index       search.Index
	metrics     *metrics.Metrics
	patterns    *matcher.PatternCache
	log         logger.Logger
	now         func() time.Time

	mu           sync.Mutex
	byContractor map[int64]*activeRun
	bySession    map[int64]*activeRun
	closed       bool
	wg           sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithIndex sets the search index pages are written to.
func WithIndex(idx search.Index) Option {
	return func(o *Orchestrator) { o.index = idx }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(
	cfg Config,
	sessions Sessions,
	contractors Contractors,
	src rules.Source,
	c Crawler,
	log logger.Logger,
	opts ...Option,
) *Orchestrator {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
	if cfg.DefaultMaxPages <= 0 {
		cfg.DefaultMaxPages = defaultMaxPages
	}
	if cfg.DefaultMaxDepth <= 0 {
		cfg.DefaultMaxDepth = defaultMaxDepth
	}
	if cfg.ContextRadius <= 0 {
		cfg.ContextRadius = matcher.DefaultContextRadius
	}
	if log == nil {
		log = logger.NewNop()
	}

	o := &Orchestrator{
		cfg:          cfg,
		sessions:     sessions,
		contractors:  contractors,
		rules:        src,
		crawler:      c,
		publisher:    events.NopPublisher{},
		index:        search.NopIndex{},
		patterns:     matcher.NewPatternCache(),
		log:          logger.Component(log, "session"),
		now:          time.Now,
		byContractor: make(map[int64]*activeRun),
		bySession:    make(map[int64]*activeRun),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Recover marks sessions left running by a previous process as failed.
// It must run before the first Start.
func (o *Orchestrator) Recover(ctx context.Context) error {
	n, err := o.sessions.FailOrphaned(ctx, orphanReason, o.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		o.log.Warn("Marked orphaned sessions as failed", logger.Int64("count", n))
	}
	return nil
}

// Available reports how many more runs can start right now.
func (o *Orchestrator) Available() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0
	}
	return o.cfg.MaxConcurrentRuns - len(o.byContractor)
}

// Start opens a session for the contractor and launches its run in the
// background. The returned session is in the running state.
func (o *Orchestrator) Start(ctx context.Context, contractorID int64, trigger string) (*models.ScanSession, error) {
	contractor, err := o.contractors.GetByID(ctx, contractorID)
	if err != nil {
		return nil, fmt.Errorf("load contractor %d: %w", contractorID, err)
	}
	if !contractor.IsActive {
		return nil, ErrContractorInactive
	}

	run, err := o.reserve(contractorID)
	if err != nil {
		return nil, err
	}

	snapshot, err := rules.TakeSnapshot(ctx, o.rules)
	if err != nil {
		o.abandon(run)
		return nil, err
	}

	sess, err := o.sessions.Start(ctx, contractorID, o.now().UTC())
	if err != nil {
		o.abandon(run)
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrSessionRunning
		}
		return nil, err
	}

	runCtx, cancel := context.WithCancelCause(context.Background())

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel(errShutdown)
		o.finish(runCtx, sess, contractor, nil, errShutdown)
		o.abandon(run)
		return nil, ErrShuttingDown
	}
	run.sessionID = sess.ID
	run.cancel = cancel
	o.bySession[sess.ID] = run
	if run.pending != nil {
		cancel(run.pending)
	}
	o.wg.Add(1)
	o.mu.Unlock()

	o.metrics.SessionStarted(trigger)
	o.log.Info("Scan session started",
		logger.Int64("session_id", sess.ID),
		logger.Int64("contractor_id", contractorID),
		logger.String("domain", contractor.Domain),
		logger.String("trigger", trigger),
		logger.Int("rules", len(snapshot.Words)),
		logger.Int("profiles", len(snapshot.Profiles)),
	)

	go o.execute(runCtx, run, sess, contractor, snapshot)
	return sess, nil
}

// Wait blocks until the run of sessionID has been finalized or ctx is
// done. It returns immediately when the session is not running here.
func (o *Orchestrator) Wait(ctx context.Context, sessionID int64) error {
	o.mu.Lock()
	run, ok := o.bySession[sessionID]
	o.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delete cancels a running session or removes a finished one together
// with its pages and violations. A running session is finalized as
// failed with the message "cancelled"; Delete waits for that until ctx
// is done.
func (o *Orchestrator) Delete(ctx context.Context, sessionID int64) (*DeleteResult, error) {
	sess, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.IsTerminal() {
		if err = o.sessions.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		o.log.Info("Scan session deleted", logger.Int64("session_id", sessionID))
		return &DeleteResult{}, nil
	}

	o.log.Info("Cancelling scan session", logger.Int64("session_id", sessionID))
	if _, err = o.stopRun(ctx, sess.ContractorID, sessionID, errCancelled); err != nil {
		return &DeleteResult{Cancelled: true, Session: sess}, nil
	}

	latest, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if latest.Status == models.SessionRunning {
		// Running in the database with no live run: finalize directly.
		contractor, getErr := o.contractors.GetByID(ctx, sess.ContractorID)
		if getErr != nil {
			return nil, fmt.Errorf("load contractor %d: %w", sess.ContractorID, getErr)
		}
		o.finish(ctx, latest, contractor, nil, errCancelled)
		if latest, err = o.sessions.GetByID(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return &DeleteResult{Cancelled: true, Session: latest}, nil
}

// CancelContractor stops the contractor's live run, if any, and waits
// until it is finalized as cancelled or ctx is done.
func (o *Orchestrator) CancelContractor(ctx context.Context, contractorID int64) error {
	found, err := o.stopRun(ctx, contractorID, 0, errCancelled)
	if err != nil {
		return fmt.Errorf("cancel run of contractor %d: %w", contractorID, err)
	}
	if found {
		o.log.Info("Cancelled scan of contractor", logger.Int64("contractor_id", contractorID))
	}
	return nil
}

// stopRun cancels the contractor's live run and waits for it to end. A run
// still between reservation and launch is cancelled as soon as it
// launches. A non-zero sessionID limits the match to that session.
func (o *Orchestrator) stopRun(ctx context.Context, contractorID, sessionID int64, cause error) (bool, error) {
	o.mu.Lock()
	run, ok := o.byContractor[contractorID]
	if ok && sessionID != 0 && run.sessionID != 0 && run.sessionID != sessionID {
		ok = false
	}
	if ok {
		if run.cancel != nil {
			run.cancel(cause)
		} else if run.pending == nil {
			run.pending = cause
		}
	}
	o.mu.Unlock()

	if !ok {
		return false, nil
	}
	select {
	case <-run.done:
		return true, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// Shutdown stops accepting runs, cancels the active ones and waits for
// them to be finalized or for ctx to be done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	for _, run := range o.byContractor {
		if run.cancel != nil {
			run.cancel(errShutdown)
		}
	}
	active := len(o.byContractor)
	o.mu.Unlock()

	if active > 0 {
		o.log.Info("Cancelling active scan sessions", logger.Int("count", active))
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scan sessions: %w", ctx.Err())
	}
}

func (o *Orchestrator) reserve(contractorID int64) (*activeRun, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrShuttingDown
	}
	if _, ok := o.byContractor[contractorID]; ok {
		return nil, ErrSessionRunning
	}
	if len(o.byContractor) >= o.cfg.MaxConcurrentRuns {
		return nil, ErrAtCapacity
	}

	run := &activeRun{contractorID: contractorID, done: make(chan struct{})}
	o.byContractor[contractorID] = run
	return run, nil
}

// abandon drops a run that never launched.
func (o *Orchestrator) abandon(run *activeRun) {
	o.release(run)
	close(run.done)
}

func (o *Orchestrator) release(run *activeRun) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.byContractor[run.contractorID] == run {
		delete(o.byContractor, run.contractorID)
	}
	if run.sessionID != 0 && o.bySession[run.sessionID] == run {
		delete(o.bySession, run.sessionID)
	}
}
