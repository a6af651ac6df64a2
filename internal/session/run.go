package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/classifier"
	"github.com/jonesrussell/north-cloud/huginn/internal/crawler"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/events"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/matcher"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
)

func (o *Orchestrator) execute(
	ctx context.Context,
	run *activeRun,
	sess *models.ScanSession,
	contractor *models.Contractor,
	snapshot *rules.Snapshot,
) {
	defer o.wg.Done()
	defer close(run.done)
	defer o.release(run)
	defer run.cancel(nil)

	log := o.log.With(
		logger.Int64("session_id", sess.ID),
		logger.Int64("contractor_id", contractor.ID),
	)

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.cfg.RunTimeout, errRunTimeout)
		defer cancel()
	}

	m, skipped := matcher.New(snapshot.Words, o.cfg.ContextRadius, o.patterns)
	for _, s := range skipped {
		log.Warn("Skipping rule that does not compile",
			logger.Int64("rule_id", s.RuleID),
			logger.Error(s.Err),
		)
	}
	cls := classifier.New(snapshot.Profiles)
	log.Info("Scan started",
		logger.String("domain", contractor.Domain),
		logger.Int("active_rules", m.Len()),
		logger.Int("skipped_rules", len(skipped)),
	)

	sink := &recorder{o: o, session: sess, contractor: contractor, log: log}
	summary, runErr := o.crawler.Run(ctx, o.target(contractor), m, cls, sink)

	var failure error
	switch {
	case runErr != nil:
		failure = runErr
	case ctx.Err() != nil:
		failure = context.Cause(ctx)
	}

	o.finish(ctx, sess, contractor, summary, failure)
}

func (o *Orchestrator) target(c *models.Contractor) crawler.Target {
	t := crawler.Target{
		ContractorID: c.ID,
		Domain:       c.Domain,
		RootURL:      c.RootURL(),
		MaxPages:     o.cfg.DefaultMaxPages,
		MaxDepth:     o.cfg.DefaultMaxDepth,
		Tags:         c.Tags,
	}
	if c.MaxPages != nil && *c.MaxPages > 0 {
		t.MaxPages = *c.MaxPages
	}
	if c.MaxDepth != nil && *c.MaxDepth >= 0 {
		t.MaxDepth = *c.MaxDepth
	}
	return t
}

// finish moves the session to its terminal state. A nil failure means
// the run completed; the contractor's classification is replaced only
// then.
func (o *Orchestrator) finish(
	ctx context.Context,
	sess *models.ScanSession,
	contractor *models.Contractor,
	summary *crawler.Summary,
	failure error,
) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	completedAt := o.now().UTC()
	params := database.FinishParams{
		SessionID:    sess.ID,
		ContractorID: contractor.ID,
		Status:       models.SessionCompleted,
		CompletedAt:  completedAt,
		NextCheck:    completedAt.Add(models.ScheduleInterval(contractor.CheckSchedule)),
	}
	if failure != nil {
		msg := failureMessage(failure, o.cfg.RunTimeout)
		params.Status = models.SessionFailed
		params.ErrorMessage = &msg
	} else {
		params.SetClassification = true
		if summary != nil && summary.Classification != nil {
			code := summary.Classification.Code
			params.MCCCode = &code
			params.MCCProbability = summary.Classification.Probability
		}
	}

	log := o.log.With(logger.Int64("session_id", sess.ID), logger.Int64("contractor_id", contractor.ID))

	finished, err := o.sessions.Finish(ctx, params)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("Scan session was already finalized")
			return
		}
		log.Error("Failed to finalize scan session", logger.Error(err))
		return
	}

	o.metrics.SessionFinished(finished.Status, finished.Duration(completedAt))
	log.Info("Scan session finished",
		logger.String("status", finished.Status),
		logger.Int("pages_scanned", finished.PagesScanned),
		logger.Int("pages_with_violations", finished.PagesWithViolations),
		logger.Int("total_violations", finished.TotalViolations),
	)

	event := &events.ScanResultEvent{
		SessionID:           finished.ID,
		ContractorID:        finished.ContractorID,
		Status:              finished.Status,
		PagesScanned:        finished.PagesScanned,
		PagesWithViolations: finished.PagesWithViolations,
		TotalViolations:     finished.TotalViolations,
		ErrorMessage:        finished.ErrorMessage,
		MCCCode:             params.MCCCode,
		MCCProbability:      params.MCCProbability,
	}
	if err = o.publisher.PublishScanResult(ctx, event); err != nil {
		log.Warn("Failed to publish scan result", logger.Error(err))
	}
}

func failureMessage(err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, errCancelled):
		return errCancelled.Error()
	case errors.Is(err, errRunTimeout):
		return fmt.Sprintf("%s after %s", errRunTimeout, timeout)
	default:
		return err.Error()
	}
}
