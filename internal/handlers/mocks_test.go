package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

type MockContractorStore struct {
	mock.Mock
}

func (m *MockContractorStore) Create(ctx context.Context, c *models.Contractor) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockContractorStore) GetByID(ctx context.Context, id int64) (*models.Contractor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contractor), args.Error(1)
}

func (m *MockContractorStore) List(
	ctx context.Context, filter database.ContractorFilter, params pagination.Params,
) (pagination.Page[models.Contractor], error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).(pagination.Page[models.Contractor]), args.Error(1)
}

func (m *MockContractorStore) Update(ctx context.Context, c *models.Contractor) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockContractorStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockPageStore struct {
	mock.Mock
}

func (m *MockPageStore) ListByContractor(
	ctx context.Context, contractorID int64, filter database.PageFilter, params pagination.Params,
) (pagination.Page[models.WebPage], error) {
	args := m.Called(ctx, contractorID, filter, params)
	return args.Get(0).(pagination.Page[models.WebPage]), args.Error(1)
}

func (m *MockPageStore) GetWithViolations(ctx context.Context, contractorID, pageID int64) (*models.PageWithViolations, error) {
	args := m.Called(ctx, contractorID, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageWithViolations), args.Error(1)
}

func (m *MockPageStore) ListBySession(
	ctx context.Context, sessionID int64, params pagination.Params,
) (pagination.Page[models.PageWithViolations], error) {
	args := m.Called(ctx, sessionID, params)
	return args.Get(0).(pagination.Page[models.PageWithViolations]), args.Error(1)
}

func (m *MockPageStore) ScanResults(
	ctx context.Context, filter database.ScanResultFilter, params pagination.Params,
) (pagination.Page[models.ScanResult], error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).(pagination.Page[models.ScanResult]), args.Error(1)
}

func (m *MockPageStore) ExportRows(ctx context.Context, filter database.ScanResultFilter) ([]database.ExportRow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.ExportRow), args.Error(1)
}

type MockForbiddenWordStore struct {
	mock.Mock
}

func (m *MockForbiddenWordStore) Create(ctx context.Context, w *models.ForbiddenWord) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockForbiddenWordStore) GetByID(ctx context.Context, id int64) (*models.ForbiddenWord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ForbiddenWord), args.Error(1)
}

func (m *MockForbiddenWordStore) List(
	ctx context.Context, filter database.ForbiddenWordFilter, params pagination.Params,
) (pagination.Page[models.ForbiddenWord], error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).(pagination.Page[models.ForbiddenWord]), args.Error(1)
}

func (m *MockForbiddenWordStore) Update(ctx context.Context, w *models.ForbiddenWord) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockForbiddenWordStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockForbiddenWordStore) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockMCCCodeStore struct {
	mock.Mock
}

func (m *MockMCCCodeStore) Create(ctx context.Context, c *models.MCCCode) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockMCCCodeStore) GetByID(ctx context.Context, id int64) (*models.MCCCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MCCCode), args.Error(1)
}

func (m *MockMCCCodeStore) List(
	ctx context.Context, filter database.MCCCodeFilter, params pagination.Params,
) (pagination.Page[models.MCCCode], error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).(pagination.Page[models.MCCCode]), args.Error(1)
}

func (m *MockMCCCodeStore) Update(ctx context.Context, c *models.MCCCode) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockMCCCodeStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMCCCodeStore) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) GetView(ctx context.Context, id int64) (*models.ScanSessionView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanSessionView), args.Error(1)
}

func (m *MockSessionStore) List(
	ctx context.Context, filter database.SessionFilter, params pagination.Params,
) (pagination.Page[models.ScanSessionView], error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).(pagination.Page[models.ScanSessionView]), args.Error(1)
}

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) Start(ctx context.Context, contractorID int64, trigger string) (*models.ScanSession, error) {
	args := m.Called(ctx, contractorID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanSession), args.Error(1)
}

func (m *MockScanner) Delete(ctx context.Context, sessionID int64) (*session.DeleteResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.DeleteResult), args.Error(1)
}

func (m *MockScanner) CancelContractor(ctx context.Context, contractorID int64) error {
	return m.Called(ctx, contractorID).Error(0)
}

type MockStats struct {
	mock.Mock
}

func (m *MockStats) Stats(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexPage(ctx context.Context, doc *search.PageDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockIndex) Search(ctx context.Context, q search.Query) (pagination.Page[search.Hit], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(pagination.Page[search.Hit]), args.Error(1)
}
