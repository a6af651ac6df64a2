package session

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/crawler"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/events"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
)

// recorder is the crawler.Sink of one session. Each page is stored
// before the next notification or index write for it is attempted.
type recorder struct {
	o          *Orchestrator
	session    *models.ScanSession
	contractor *models.Contractor
	log        logger.Logger
}

var _ crawler.Sink = (*recorder)(nil)

func (r *recorder) PageScanned(ctx context.Context, page *crawler.PageResult) error {
	scannedAt := r.o.now().UTC()
	rec := r.record(page, scannedAt)

	if err := r.o.sessions.RecordPage(ctx, r.session.ID, rec); err != nil {
		return err
	}

	severities := make([]string, len(rec.Violations))
	for i, v := range rec.Violations {
		severities[i] = v.Severity
	}
	r.o.metrics.PageRecorded(rec.Page.Status, page.Fetch.ResponseTime, severities)

	if len(rec.Violations) > 0 {
		r.notify(ctx, rec, scannedAt)
	}
	r.indexPage(ctx, page, rec, scannedAt)
	return nil
}

func (r *recorder) record(page *crawler.PageResult, scannedAt time.Time) database.PageRecord {
	wp := &models.WebPage{
		ContractorID:    r.contractor.ID,
		URL:             page.URL,
		Title:           page.Title,
		MetaDescription: page.MetaDescription,
		Status:          models.PageStatusSuccess,
		HTTPStatus:      page.Fetch.HTTPStatus,
		LastScanned:     &scannedAt,
	}
	if !page.Fetch.OK() {
		wp.Status = models.PageStatusError
	}
	if page.Fetch.ResponseTime > 0 {
		rt := page.Fetch.ResponseTime
		wp.ResponseTime = &rt
	}

	violations := make([]models.Violation, 0, len(page.Matches))
	for _, m := range page.Matches {
		ruleID := m.RuleID
		violations = append(violations, models.Violation{
			ForbiddenWordID: &ruleID,
			WordFound:       m.WordFound,
			Context:         m.Context,
			Position:        m.Position,
			Severity:        m.Severity,
		})
	}
	return database.PageRecord{Page: wp, Violations: violations}
}

func (r *recorder) notify(ctx context.Context, rec database.PageRecord, scannedAt time.Time) {
	items := make([]events.ViolationItem, len(rec.Violations))
	for i, v := range rec.Violations {
		items[i] = events.ViolationItem{WordFound: v.WordFound, Severity: v.Severity, Position: v.Position}
	}

	event := &events.ViolationEvent{
		ContractorID:   r.contractor.ID,
		ContractorName: r.contractor.Name,
		SessionID:      r.session.ID,
		PageID:         rec.Page.ID,
		URL:            rec.Page.URL,
		Violations:     items,
		Timestamp:      scannedAt,
	}
	if err := r.o.publisher.PublishViolations(ctx, event); err != nil {
		r.log.Warn("Failed to publish violation notification",
			logger.String("url", rec.Page.URL),
			logger.Error(err),
		)
	}
}

func (r *recorder) indexPage(ctx context.Context, page *crawler.PageResult, rec database.PageRecord, scannedAt time.Time) {
	doc := &search.PageDocument{
		PageID:          rec.Page.ID,
		ContractorID:    r.contractor.ID,
		SessionID:       r.session.ID,
		URL:             rec.Page.URL,
		Content:         page.Text,
		Keywords:        page.Keywords,
		ViolationsCount: len(rec.Violations),
		ScannedAt:       scannedAt,
	}
	if page.Title != nil {
		doc.Title = *page.Title
	}
	if page.MetaDescription != nil {
		doc.MetaDescription = *page.MetaDescription
	}
	if page.Fetch.HTTPStatus != nil {
		doc.HTTPStatus = *page.Fetch.HTTPStatus
	}
	for _, v := range rec.Violations {
		doc.ViolationWords = append(doc.ViolationWords, v.WordFound)
	}

	if err := r.o.index.IndexPage(ctx, doc); err != nil {
		r.log.Warn("Failed to index page",
			logger.String("url", rec.Page.URL),
			logger.Error(err),
		)
	}
}
