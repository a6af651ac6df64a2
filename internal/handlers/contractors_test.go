package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

func contractor(id int64) *models.Contractor {
	return &models.Contractor{
		ID:            id,
		Name:          "Acme",
		Domain:        "acme.test",
		IsActive:      true,
		CheckSchedule: models.ScheduleDaily,
		Tags:          models.StringList{},
	}
}

func TestContractors_Create(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func(*MockContractorStore)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "valid contractor",
			body: map[string]any{"name": "Acme", "domain": "https://WWW.Acme.test/about", "check_schedule": "weekly"},
			mockSetup: func(m *MockContractorStore) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Contractor) bool {
					return c.Domain == "www.acme.test" && c.IsActive && c.CheckSchedule == models.ScheduleWeekly &&
						c.NextCheck != nil && time.Until(*c.NextCheck) > 6*24*time.Hour
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Contractor).ID = 11
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing domain",
			body:           map[string]any{"name": "Acme"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation failed",
		},
		{
			name:           "unknown schedule",
			body:           map[string]any{"name": "Acme", "domain": "acme.test", "check_schedule": "yearly"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation failed",
		},
		{
			name: "duplicate domain",
			body: map[string]any{"name": "Acme", "domain": "acme.test"},
			mockSetup: func(m *MockContractorStore) {
				m.On("Create", mock.Anything, mock.Anything).
					Return(fmt.Errorf("create contractor: %w", database.ErrDuplicate))
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Contractor already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			if tt.mockSetup != nil {
				tt.mockSetup(e.contractors)
			}

			w := e.do(t, http.MethodPost, "/api/v1/contractors", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decode[map[string]any](t, w)["error"])
			}
		})
	}
}

func TestContractors_CreateInactive(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.contractors.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Contractor) bool {
		return !c.IsActive
	})).Return(nil)

	w := e.do(t, http.MethodPost, "/api/v1/contractors", map[string]any{
		"name": "Acme", "domain": "acme.test", "is_active": false,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestContractors_List(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	active := true
	params := pagination.Params{Page: 2, PageSize: 5}
	e.contractors.On("List", mock.Anything, database.ContractorFilter{Search: "acme", IsActive: &active}, params).
		Return(pagination.New([]models.Contractor{*contractor(1)}, params, 6), nil)

	w := e.do(t, http.MethodGet, "/api/v1/contractors?page=2&page_size=5&search=acme&is_active=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	page := decode[pagination.Page[models.Contractor]](t, w)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)
}

func TestContractors_ListInvalidParams(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"page=0", "page_size=101", "page=x", "is_active=maybe"} {
		e := newEnv(t)
		w := e.do(t, http.MethodGet, "/api/v1/contractors?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestContractors_Get(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.contractors.On("GetByID", mock.Anything, int64(1)).Return(contractor(1), nil)
	e.contractors.On("GetByID", mock.Anything, int64(2)).
		Return(nil, fmt.Errorf("get contractor 2: %w", database.ErrNotFound))

	w := e.do(t, http.MethodGet, "/api/v1/contractors/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme.test", decode[models.Contractor](t, w).Domain)

	w = e.do(t, http.MethodGet, "/api/v1/contractors/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Contractor not found", decode[map[string]any](t, w)["error"])

	w = e.do(t, http.MethodGet, "/api/v1/contractors/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractors_UpdateRejectsDomainChange(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.contractors.On("GetByID", mock.Anything, int64(1)).Return(contractor(1), nil)

	w := e.do(t, http.MethodPut, "/api/v1/contractors/1", map[string]any{"domain": "other.test"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Domain cannot be changed", decode[map[string]any](t, w)["error"])
}

func TestContractors_UpdateRecomputesNextCheck(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := contractor(1)
	existing.LastCheck = &last

	e.contractors.On("GetByID", mock.Anything, int64(1)).Return(existing, nil)
	e.contractors.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Contractor) bool {
		return c.CheckSchedule == models.ScheduleHourly &&
			c.NextCheck != nil && c.NextCheck.Equal(last.Add(time.Hour)) &&
			c.Name == "Acme Ltd" && c.Domain == "acme.test"
	})).Return(nil)

	w := e.do(t, http.MethodPut, "/api/v1/contractors/1", map[string]any{
		"name": "Acme Ltd", "domain": "ACME.test", "check_schedule": "hourly",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestContractors_DeleteRequiresAdmin(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w := e.do(t, http.MethodDelete, "/api/v1/contractors/1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	e.scanner.On("CancelContractor", mock.Anything, int64(1)).Return(nil)
	e.contractors.On("Delete", mock.Anything, int64(1)).Return(nil)
	w = e.doAdmin(t, http.MethodDelete, "/api/v1/contractors/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContractors_DeleteStopsLiveScanFirst(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	var order []string
	e.scanner.On("CancelContractor", mock.Anything, int64(4)).Return(nil).
		Run(func(mock.Arguments) { order = append(order, "cancel") })
	e.contractors.On("Delete", mock.Anything, int64(4)).Return(nil).
		Run(func(mock.Arguments) { order = append(order, "delete") })

	w := e.doAdmin(t, http.MethodDelete, "/api/v1/contractors/4", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"cancel", "delete"}, order)
}

func TestContractors_DeleteKeepsContractorWhenCancelFails(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.scanner.On("CancelContractor", mock.Anything, int64(4)).Return(context.DeadlineExceeded)

	w := e.doAdmin(t, http.MethodDelete, "/api/v1/contractors/4", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	e.contractors.AssertNotCalled(t, "Delete", mock.Anything, int64(4))
}

func TestContractors_Scan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"started", nil, http.StatusAccepted},
		{"already running", session.ErrSessionRunning, http.StatusConflict},
		{"inactive", session.ErrContractorInactive, http.StatusBadRequest},
		{"at capacity", session.ErrAtCapacity, http.StatusTooManyRequests},
		{"shutting down", session.ErrShuttingDown, http.StatusServiceUnavailable},
		{"unknown contractor", fmt.Errorf("load contractor 3: %w", database.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)

			if tt.err != nil {
				e.scanner.On("Start", mock.Anything, int64(3), session.TriggerManual).Return(nil, tt.err)
			} else {
				e.scanner.On("Start", mock.Anything, int64(3), session.TriggerManual).
					Return(&models.ScanSession{ID: 40, ContractorID: 3, Status: models.SessionRunning}, nil)
			}

			w := e.do(t, http.MethodPost, "/api/v1/contractors/3/scan", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err == nil {
				assert.InDelta(t, 40, decode[map[string]any](t, w)["session_id"], 0)
			}
		})
	}
}

func TestContractors_Pages(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	params := pagination.Default()
	e.contractors.On("GetByID", mock.Anything, int64(1)).Return(contractor(1), nil)
	e.pages.On("ListByContractor", mock.Anything, int64(1),
		database.PageFilter{Status: "error", ViolationsOnly: true}, params,
	).Return(pagination.New([]models.WebPage{{ID: 5, URL: "https://acme.test/"}}, params, 1), nil)

	w := e.do(t, http.MethodGet, "/api/v1/contractors/1/pages?status=error&violations_only=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[pagination.Page[models.WebPage]](t, w).Pagination.TotalItems)
}

func TestContractors_PageDetail(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	word := "casino"
	e.contractors.On("GetByID", mock.Anything, int64(1)).Return(contractor(1), nil)
	e.pages.On("GetWithViolations", mock.Anything, int64(1), int64(5)).Return(&models.PageWithViolations{
		WebPage: models.WebPage{ID: 5, ContractorID: 1},
		Violations: []models.ViolationDetail{
			{Violation: models.Violation{ID: 1, WordFound: "Casino", Severity: "high"}, RuleWord: &word},
		},
	}, nil)
	e.pages.On("GetWithViolations", mock.Anything, int64(1), int64(6)).
		Return(nil, fmt.Errorf("get page 6: %w", database.ErrNotFound))

	w := e.do(t, http.MethodGet, "/api/v1/contractors/1/pages/5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	got := decode[models.PageWithViolations](t, w)
	assert.Equal(t, "casino", *got.Violations[0].RuleWord)

	w = e.do(t, http.MethodGet, "/api/v1/contractors/1/pages/6", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Page not found", decode[map[string]any](t, w)["error"])
}
