package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const sessionResource = "Scan session"

var sessionStatuses = []string{models.SessionRunning, models.SessionCompleted, models.SessionFailed}

// sessionDetail is a session with one page of the pages it recorded.
type sessionDetail struct {
	*models.ScanSessionView
	Pages pagination.Page[models.PageWithViolations] `json:"pages"`
}

// ScanSessionHandler serves /scan-sessions.
type ScanSessionHandler struct {
	sessions SessionStore
	pages    PageStore
	scanner  Scanner
	logger   logger.Logger
}

// NewScanSessionHandler creates a scan session handler.
func NewScanSessionHandler(sessions SessionStore, pages PageStore, scanner Scanner, log logger.Logger) *ScanSessionHandler {
	return &ScanSessionHandler{sessions: sessions, pages: pages, scanner: scanner, logger: log}
}

// List handles GET /scan-sessions.
func (h *ScanSessionHandler) List(c *gin.Context) {
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, sessionResource)
		return
	}
	contractorID, err := queryInt64(c, "contractor_id")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}
	status := c.Query("status")
	if status != "" && !slices.Contains(sessionStatuses, status) {
		badRequest(c, "Invalid query parameter", nil)
		return
	}

	filter := database.SessionFilter{ContractorID: contractorID, Status: status}
	page, err := h.sessions.List(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, h.logger, err, sessionResource)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /scan-sessions/:id. The session's pages are paginated
// with pages_page and pages_page_size.
func (h *ScanSessionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	params, err := pageParams(c, "pages_")
	if err != nil {
		respondError(c, h.logger, err, sessionResource)
		return
	}

	ctx := c.Request.Context()
	view, err := h.sessions.GetView(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, sessionResource)
		return
	}
	pages, err := h.pages.ListBySession(ctx, id, params)
	if err != nil {
		respondError(c, h.logger, err, sessionResource)
		return
	}
	c.JSON(http.StatusOK, sessionDetail{ScanSessionView: view, Pages: pages})
}

// Start handles POST /scan-sessions/:id/start, where :id is the
// contractor.
func (h *ScanSessionHandler) Start(c *gin.Context) {
	contractorID, ok := pathID(c, "id")
	if !ok {
		return
	}
	startSession(c, h.scanner, h.logger, contractorID)
}

// Delete handles DELETE /scan-sessions/:id. A running session is cancelled
// and returned with 202; a finished one is removed with 204.
func (h *ScanSessionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.scanner.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, sessionResource)
		return
	}
	if result.Cancelled {
		c.JSON(http.StatusAccepted, result.Session)
		return
	}
	c.Status(http.StatusNoContent)
}
