package handlers

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/importer"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
)

const (
	forbiddenWordResource = "Word"
	maxImportBytes        = 10 << 20
)

type forbiddenWordRequest struct {
	Word          *string `json:"word"`
	Category      *string `json:"category"`
	Description   *string `json:"description"`
	Severity      *string `json:"severity"`
	IsActive      *bool   `json:"is_active"`
	CaseSensitive *bool   `json:"case_sensitive"`
	UseRegex      *bool   `json:"use_regex"`
}

func (r *forbiddenWordRequest) apply(w *models.ForbiddenWord) {
	if r.Word != nil {
		w.Word = *r.Word
	}
	if r.Category != nil {
		w.Category = *r.Category
	}
	if r.Description != nil {
		w.Description = r.Description
	}
	if r.Severity != nil {
		w.Severity = *r.Severity
	}
	if r.IsActive != nil {
		w.IsActive = *r.IsActive
	}
	if r.CaseSensitive != nil {
		w.CaseSensitive = *r.CaseSensitive
	}
	if r.UseRegex != nil {
		w.UseRegex = *r.UseRegex
	}
}

// ForbiddenWordHandler serves /forbidden-words.
type ForbiddenWordHandler struct {
	words  ForbiddenWordStore
	logger logger.Logger
}

// NewForbiddenWordHandler creates a forbidden word handler.
func NewForbiddenWordHandler(words ForbiddenWordStore, log logger.Logger) *ForbiddenWordHandler {
	return &ForbiddenWordHandler{words: words, logger: log}
}

// List handles GET /forbidden-words.
func (h *ForbiddenWordHandler) List(c *gin.Context) {
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	activeOnly, err := queryBool(c, "active_only")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	filter := database.ForbiddenWordFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		ActiveOnly: activeOnly != nil && *activeOnly,
		Search:     strings.TrimSpace(c.Query("search")),
	}
	page, err := h.words.List(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create handles POST /forbidden-words.
func (h *ForbiddenWordHandler) Create(c *gin.Context) {
	var req forbiddenWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	w := &models.ForbiddenWord{IsActive: true}
	req.apply(w)
	if err := rules.ValidateForbiddenWord(w); err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	if err := h.words.Create(c.Request.Context(), w); err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}

	logger.FromContext(c.Request.Context(), h.logger).Info("Forbidden word created",
		logger.Int64("word_id", w.ID),
		logger.String("category", w.Category),
	)
	c.JSON(http.StatusCreated, w)
}

// Get handles GET /forbidden-words/:id.
func (h *ForbiddenWordHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	w, err := h.words.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Update handles PUT /forbidden-words/:id. Only fields present in the body
// change.
func (h *ForbiddenWordHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req forbiddenWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	w, err := h.words.GetByID(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}

	req.apply(w)
	if err = rules.ValidateForbiddenWord(w); err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	if err = h.words.Update(ctx, w); err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Delete handles DELETE /forbidden-words/:id. Recorded violations keep
// their text and severity.
func (h *ForbiddenWordHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.words.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Forbidden word deleted successfully"})
}

// Categories handles GET /forbidden-words/categories/list.
func (h *ForbiddenWordHandler) Categories(c *gin.Context) {
	categories, err := h.words.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, forbiddenWordResource)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Import handles POST /forbidden-words/import with a multipart "file"
// holding an XLSX workbook. Valid rows are created one by one; rows that
// fail validation or collide with an existing word are reported.
func (h *ForbiddenWordHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Missing file", err)
		return
	}
	if header.Size > maxImportBytes {
		badRequest(c, "File too large", nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "Unreadable file", err)
		return
	}
	defer func() { _ = file.Close() }()

	rows, rowErrors, err := importer.ParseExcelFile(file)
	if err != nil {
		badRequest(c, "Invalid spreadsheet", err)
		return
	}

	ctx := c.Request.Context()
	created := 0
	for _, row := range rows {
		w := row.Word
		if createErr := h.words.Create(ctx, &w); createErr != nil {
			if !errors.Is(createErr, database.ErrDuplicate) {
				respondError(c, h.logger, createErr, forbiddenWordResource)
				return
			}
			rowErrors = append(rowErrors, importer.ImportError{Row: row.Row, Error: "word already exists"})
			continue
		}
		created++
	}
	if rowErrors == nil {
		rowErrors = []importer.ImportError{}
	}
	slices.SortFunc(rowErrors, func(a, b importer.ImportError) int { return cmp.Compare(a.Row, b.Row) })

	logger.FromContext(ctx, h.logger).Info("Forbidden words imported",
		logger.String("file", header.Filename),
		logger.Int("created", created),
		logger.Int("errors", len(rowErrors)),
	)
	c.JSON(http.StatusOK, gin.H{"created": created, "errors": rowErrors})
}
