package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
)

// SearchHandler serves /pages/search.
type SearchHandler struct {
	index  search.Index
	logger logger.Logger
}

// NewSearchHandler creates a page search handler.
func NewSearchHandler(index search.Index, log logger.Logger) *SearchHandler {
	return &SearchHandler{index: index, logger: log}
}

// Search handles GET /pages/search?q=...&contractor_id=...&violations_only=...
func (h *SearchHandler) Search(c *gin.Context) {
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, "Page")
		return
	}
	contractorID, err := queryInt64(c, "contractor_id")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}
	violationsOnly, err := queryBool(c, "violations_only")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	q := search.Query{
		Text:           strings.TrimSpace(c.Query("q")),
		ContractorID:   contractorID,
		ViolationsOnly: violationsOnly != nil && *violationsOnly,
		Params:         params,
	}
	page, err := h.index.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err, "Page")
		return
	}
	c.JSON(http.StatusOK, page)
}
