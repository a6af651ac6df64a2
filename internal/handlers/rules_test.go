package handlers_test

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/importer"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

func TestForbiddenWords_Create(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func(*MockForbiddenWordStore)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "defaults severity and activity",
			body: map[string]any{"word": " casino ", "category": "gambling"},
			mockSetup: func(m *MockForbiddenWordStore) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(w *models.ForbiddenWord) bool {
					return w.Word == "casino" && w.Severity == models.SeverityMedium && w.IsActive
				})).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid regex",
			body:           map[string]any{"word": "(casino", "category": "gambling", "use_regex": true},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation failed",
		},
		{
			name:           "unknown severity",
			body:           map[string]any{"word": "casino", "category": "gambling", "severity": "extreme"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation failed",
		},
		{
			name: "duplicate word",
			body: map[string]any{"word": "casino", "category": "gambling"},
			mockSetup: func(m *MockForbiddenWordStore) {
				m.On("Create", mock.Anything, mock.Anything).Return(database.ErrDuplicate)
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Word already exists",
		},
		{
			name: "store failure",
			body: map[string]any{"word": "casino", "category": "gambling"},
			mockSetup: func(m *MockForbiddenWordStore) {
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			if tt.mockSetup != nil {
				tt.mockSetup(e.words)
			}

			w := e.do(t, http.MethodPost, "/api/v1/forbidden-words", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decode[map[string]any](t, w)["error"])
			}
		})
	}
}

func TestForbiddenWords_UpdateKeepsOmittedFields(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	desc := "online casinos"
	e.words.On("GetByID", mock.Anything, int64(4)).Return(&models.ForbiddenWord{
		ID: 4, Word: "casino", Category: "gambling", Description: &desc,
		Severity: models.SeverityLow, IsActive: true,
	}, nil)
	e.words.On("Update", mock.Anything, mock.MatchedBy(func(w *models.ForbiddenWord) bool {
		return w.Severity == models.SeverityCritical && w.Word == "casino" &&
			w.Description != nil && *w.Description == desc && w.IsActive
	})).Return(nil)

	w := e.do(t, http.MethodPut, "/api/v1/forbidden-words/4", map[string]any{"severity": "critical"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestForbiddenWords_ListAndCategories(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	params := pagination.Default()
	e.words.On("List", mock.Anything,
		database.ForbiddenWordFilter{Category: "gambling", ActiveOnly: true, Search: "cas"}, params,
	).Return(pagination.New([]models.ForbiddenWord{{ID: 1, Word: "casino"}}, params, 1), nil)
	e.words.On("Categories", mock.Anything).Return(nil, nil)

	w := e.do(t, http.MethodGet, "/api/v1/forbidden-words?category=gambling&active_only=true&search=cas", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[pagination.Page[models.ForbiddenWord]](t, w).Items, 1)

	w = e.do(t, http.MethodGet, "/api/v1/forbidden-words/categories/list", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":[]}`, w.Body.String())
}

func TestForbiddenWords_Delete(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.words.On("Delete", mock.Anything, int64(9)).Return(fmt.Errorf("delete word 9: %w", database.ErrNotFound))

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodDelete, "/api/v1/forbidden-words/9", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.doAdmin(t, http.MethodDelete, "/api/v1/forbidden-words/9", nil).Code)
}

func importRequest(t *testing.T, rows [][]string) *http.Request {
	t.Helper()

	f := excelize.NewFile()
	for i, h := range importer.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, f.SetCellValue("Sheet1", cell, h))
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	var xlsx bytes.Buffer
	require.NoError(t, f.Write(&xlsx))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "words.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forbidden-words/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, false))
	return req
}

func TestForbiddenWords_Import(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.words.On("Create", mock.Anything, mock.MatchedBy(func(w *models.ForbiddenWord) bool {
		return w.Word == "casino"
	})).Return(nil)
	e.words.On("Create", mock.Anything, mock.MatchedBy(func(w *models.ForbiddenWord) bool {
		return w.Word == "poker"
	})).Return(database.ErrDuplicate)

	req := importRequest(t, [][]string{
		{"casino", "gambling", "high"},
		{"", "gambling"},
		{"poker", "gambling"},
	})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"created":1,"errors":[
		{"row":3,"error":"word: is required"},
		{"row":4,"error":"word already exists"}
	]}`, w.Body.String())
}

func TestForbiddenWords_ImportRejectsNonWorkbook(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "words.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("word,category\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forbidden-words/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, false))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMCCCodes_CreateAppliesDefaults(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.codes.On("Create", mock.Anything, mock.MatchedBy(func(m *models.MCCCode) bool {
		return m.Code == "5812" &&
			m.KeywordWeight == models.DefaultKeywordWeight &&
			m.TagWeight == 0 &&
			m.MinProbability == models.DefaultMinProbability &&
			m.IsActive
	})).Return(nil)

	w := e.do(t, http.MethodPost, "/api/v1/mcc-codes", map[string]any{
		"code": "5812", "description": "Restaurants", "category": "food",
		"keywords": []string{"menu", "menu", "restaurant"}, "tag_weight": 0,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.StringList{"menu", "restaurant"}, decode[models.MCCCode](t, w).Keywords)
}

func TestMCCCodes_RejectsBadThreshold(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/mcc-codes", map[string]any{
		"code": "5812", "description": "Restaurants", "category": "food", "min_probability": 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w)["details"], "min_probability")
}

func TestMCCCodes_ListAndCategories(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	params := pagination.Params{Page: 1, PageSize: 50}
	e.codes.On("List", mock.Anything, database.MCCCodeFilter{Category: "food"}, params).
		Return(pagination.New[models.MCCCode](nil, params, 0), nil)
	e.codes.On("Categories", mock.Anything).Return([]string{"food", "retail"}, nil)

	w := e.do(t, http.MethodGet, "/api/v1/mcc-codes?category=food&page_size=50", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	w = e.do(t, http.MethodGet, "/api/v1/mcc-codes/categories/list", nil)
	assert.JSONEq(t, `{"categories":["food","retail"]}`, w.Body.String())
}
