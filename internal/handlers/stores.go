package handlers

import (
	"context"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

// ContractorStore is satisfied by *database.ContractorRepository.
type ContractorStore interface {
	Create(ctx context.Context, c *models.Contractor) error
	GetByID(ctx context.Context, id int64) (*models.Contractor, error)
	List(ctx context.Context, filter database.ContractorFilter, params pagination.Params) (pagination.Page[models.Contractor], error)
	Update(ctx context.Context, c *models.Contractor) error
	Delete(ctx context.Context, id int64) error
}

// PageStore is satisfied by *database.PageRepository.
type PageStore interface {
	ListByContractor(
		ctx context.Context, contractorID int64, filter database.PageFilter, params pagination.Params,
	) (pagination.Page[models.WebPage], error)
	GetWithViolations(ctx context.Context, contractorID, pageID int64) (*models.PageWithViolations, error)
	ListBySession(ctx context.Context, sessionID int64, params pagination.Params) (pagination.Page[models.PageWithViolations], error)
	ScanResults(
		ctx context.Context, filter database.ScanResultFilter, params pagination.Params,
	) (pagination.Page[models.ScanResult], error)
	ExportRows(ctx context.Context, filter database.ScanResultFilter) ([]database.ExportRow, error)
}

// ForbiddenWordStore is satisfied by *database.ForbiddenWordRepository.
type ForbiddenWordStore interface {
	Create(ctx context.Context, w *models.ForbiddenWord) error
	GetByID(ctx context.Context, id int64) (*models.ForbiddenWord, error)
	List(
		ctx context.Context, filter database.ForbiddenWordFilter, params pagination.Params,
	) (pagination.Page[models.ForbiddenWord], error)
	Update(ctx context.Context, w *models.ForbiddenWord) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
}

// MCCCodeStore is satisfied by *database.MCCCodeRepository.
type MCCCodeStore interface {
	Create(ctx context.Context, m *models.MCCCode) error
	GetByID(ctx context.Context, id int64) (*models.MCCCode, error)
	List(ctx context.Context, filter database.MCCCodeFilter, params pagination.Params) (pagination.Page[models.MCCCode], error)
	Update(ctx context.Context, m *models.MCCCode) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
}

// SessionStore is satisfied by *database.SessionRepository.
type SessionStore interface {
	GetView(ctx context.Context, id int64) (*models.ScanSessionView, error)
	List(ctx context.Context, filter database.SessionFilter, params pagination.Params) (pagination.Page[models.ScanSessionView], error)
}

// Scanner starts, cancels and removes scan sessions. *session.Orchestrator
// satisfies it.
type Scanner interface {
	Start(ctx context.Context, contractorID int64, trigger string) (*models.ScanSession, error)
	Delete(ctx context.Context, sessionID int64) (*session.DeleteResult, error)
	CancelContractor(ctx context.Context, contractorID int64) error
}

// StatsProvider is satisfied by *database.DashboardRepository.
type StatsProvider interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}
