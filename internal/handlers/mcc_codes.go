package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
)

const mccCodeResource = "MCC code"

type mccCodeRequest struct {
	Code           *string   `json:"code"`
	Description    *string   `json:"description"`
	Category       *string   `json:"category"`
	Keywords       *[]string `json:"keywords"`
	Tags           *[]string `json:"tags"`
	KeywordWeight  *float64  `json:"keyword_weight"`
	TagWeight      *float64  `json:"tag_weight"`
	MinProbability *float64  `json:"min_probability"`
	IsActive       *bool     `json:"is_active"`
}

func (r *mccCodeRequest) apply(m *models.MCCCode) {
	if r.Code != nil {
		m.Code = *r.Code
	}
	if r.Description != nil {
		m.Description = *r.Description
	}
	if r.Category != nil {
		m.Category = *r.Category
	}
	if r.Keywords != nil {
		m.Keywords = *r.Keywords
	}
	if r.Tags != nil {
		m.Tags = *r.Tags
	}
	if r.KeywordWeight != nil {
		m.KeywordWeight = *r.KeywordWeight
	}
	if r.TagWeight != nil {
		m.TagWeight = *r.TagWeight
	}
	if r.MinProbability != nil {
		m.MinProbability = *r.MinProbability
	}
	if r.IsActive != nil {
		m.IsActive = *r.IsActive
	}
}

// MCCCodeHandler serves /mcc-codes.
type MCCCodeHandler struct {
	codes  MCCCodeStore
	logger logger.Logger
}

// NewMCCCodeHandler creates an MCC code handler.
func NewMCCCodeHandler(codes MCCCodeStore, log logger.Logger) *MCCCodeHandler {
	return &MCCCodeHandler{codes: codes, logger: log}
}

// List handles GET /mcc-codes.
func (h *MCCCodeHandler) List(c *gin.Context) {
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	activeOnly, err := queryBool(c, "active_only")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	filter := database.MCCCodeFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		ActiveOnly: activeOnly != nil && *activeOnly,
	}
	page, err := h.codes.List(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create handles POST /mcc-codes. Omitted weights and threshold take the
// profile defaults.
func (h *MCCCodeHandler) Create(c *gin.Context) {
	var req mccCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	m := &models.MCCCode{IsActive: true}
	rules.ApplyMCCDefaults(m, false, false, false)
	req.apply(m)
	if err := rules.ValidateMCCCode(m); err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	if err := h.codes.Create(c.Request.Context(), m); err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}

	logger.FromContext(c.Request.Context(), h.logger).Info("MCC code created",
		logger.Int64("mcc_id", m.ID),
		logger.String("code", m.Code),
	)
	c.JSON(http.StatusCreated, m)
}

// Get handles GET /mcc-codes/:id.
func (h *MCCCodeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	m, err := h.codes.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Update handles PUT /mcc-codes/:id.
func (h *MCCCodeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req mccCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	m, err := h.codes.GetByID(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}

	req.apply(m)
	if err = rules.ValidateMCCCode(m); err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	if err = h.codes.Update(ctx, m); err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /mcc-codes/:id.
func (h *MCCCodeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.codes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "MCC code deleted successfully"})
}

// Categories handles GET /mcc-codes/categories/list.
func (h *MCCCodeHandler) Categories(c *gin.Context) {
	categories, err := h.codes.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, mccCodeResource)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
