package session_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/classifier"
	"github.com/jonesrussell/north-cloud/huginn/internal/crawler"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/events"
	"github.com/jonesrussell/north-cloud/huginn/internal/matcher"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
)

// memStore is an in-memory session store with the same state rules as
// the SQL repository.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.ScanSession
	pages    []database.PageRecord
	finishes []database.FinishParams
	deleted  []int64
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[int64]*models.ScanSession)}
}

func (s *memStore) Start(_ context.Context, contractorID int64, now time.Time) (*models.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.ContractorID == contractorID && sess.Status == models.SessionRunning {
			return nil, fmt.Errorf("start session: %w", database.ErrDuplicate)
		}
	}
	s.nextID++
	sess := &models.ScanSession{ID: s.nextID, ContractorID: contractorID, Status: models.SessionRunning, StartedAt: now}
	s.sessions[sess.ID] = sess
	out := *sess
	return &out, nil
}

func (s *memStore) put(sess models.ScanSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID > s.nextID {
		s.nextID = sess.ID
	}
	s.sessions[sess.ID] = &sess
}

func (s *memStore) GetByID(_ context.Context, id int64) (*models.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (s *memStore) RecordPage(_ context.Context, sessionID int64, rec database.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.Status != models.SessionRunning {
		return database.ErrNotFound
	}
	sess.PagesScanned++
	if len(rec.Violations) > 0 {
		sess.PagesWithViolations++
	}
	sess.TotalViolations += len(rec.Violations)

	rec.Page.ID = int64(len(s.pages) + 1)
	rec.Page.ScanSessionID = &sessionID
	s.pages = append(s.pages, rec)
	return nil
}

func (s *memStore) Finish(_ context.Context, p database.FinishParams) (*models.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[p.SessionID]
	if !ok || sess.Status != models.SessionRunning {
		return nil, database.ErrNotFound
	}
	sess.Status = p.Status
	completedAt := p.CompletedAt
	sess.CompletedAt = &completedAt
	sess.ErrorMessage = p.ErrorMessage
	s.finishes = append(s.finishes, p)
	out := *sess
	return &out, nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Status == models.SessionRunning {
		return database.ErrNotFound
	}
	delete(s.sessions, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *memStore) FailOrphaned(_ context.Context, reason string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sess := range s.sessions {
		if sess.Status == models.SessionRunning {
			sess.Status = models.SessionFailed
			sess.CompletedAt = &now
			msg := reason
			sess.ErrorMessage = &msg
			n++
		}
	}
	return n, nil
}

func (s *memStore) finishParams() []database.FinishParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.FinishParams(nil), s.finishes...)
}

func (s *memStore) recordedPages() []database.PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.PageRecord(nil), s.pages...)
}

// gatedStore holds Start after the session row exists until proceed is
// closed, leaving the session visible before its run is launched.
type gatedStore struct {
	*memStore
	created chan struct{}
	proceed chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{memStore: newMemStore(), created: make(chan struct{}), proceed: make(chan struct{})}
}

func (s *gatedStore) Start(ctx context.Context, contractorID int64, now time.Time) (*models.ScanSession, error) {
	sess, err := s.memStore.Start(ctx, contractorID, now)
	close(s.created)
	<-s.proceed
	return sess, err
}

type memContractors map[int64]*models.Contractor

func (m memContractors) GetByID(_ context.Context, id int64) (*models.Contractor, error) {
	c, ok := m[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *c
	return &out, nil
}

type staticRules struct {
	words    []models.ForbiddenWord
	profiles []models.MCCCode
}

func (r staticRules) ActiveForbiddenWords(context.Context) ([]models.ForbiddenWord, error) {
	return r.words, nil
}

func (r staticRules) ActiveMCCCodes(context.Context) ([]models.MCCCode, error) {
	return r.profiles, nil
}

type runFunc func(
	ctx context.Context,
	target crawler.Target,
	m *matcher.Matcher,
	cls *classifier.Classifier,
	sink crawler.Sink,
) (*crawler.Summary, error)

type fakeCrawler struct{ run runFunc }

func (f fakeCrawler) Run(
	ctx context.Context,
	target crawler.Target,
	m *matcher.Matcher,
	cls *classifier.Classifier,
	sink crawler.Sink,
) (*crawler.Summary, error) {
	return f.run(ctx, target, m, cls, sink)
}

// blockingCrawler runs until its context is done.
func blockingCrawler(started chan<- struct{}) fakeCrawler {
	return fakeCrawler{run: func(ctx context.Context, _ crawler.Target, _ *matcher.Matcher, _ *classifier.Classifier, _ crawler.Sink) (*crawler.Summary, error) {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return &crawler.Summary{Cancelled: true}, nil
	}}
}

type recordingPublisher struct {
	mu         sync.Mutex
	violations []*events.ViolationEvent
	results    []*events.ScanResultEvent
	err        error
}

func (p *recordingPublisher) PublishViolations(_ context.Context, e *events.ViolationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.violations = append(p.violations, e)
	return p.err
}

func (p *recordingPublisher) PublishScanResult(_ context.Context, e *events.ScanResultEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, e)
	return p.err
}

type recordingIndex struct {
	search.NopIndex
	mu   sync.Mutex
	docs []*search.PageDocument
}

func (x *recordingIndex) IndexPage(_ context.Context, doc *search.PageDocument) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs = append(x.docs, doc)
	return nil
}
