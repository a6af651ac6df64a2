package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/importer"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

const (
	scanResultResource = "Scan result"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ScanResultHandler serves /scan-results.
type ScanResultHandler struct {
	pages  PageStore
	logger logger.Logger
	now    func() time.Time
}

// NewScanResultHandler creates a scan result handler.
func NewScanResultHandler(pages PageStore, log logger.Logger) *ScanResultHandler {
	return &ScanResultHandler{pages: pages, logger: log, now: time.Now}
}

func scanResultFilter(c *gin.Context) (database.ScanResultFilter, error) {
	contractorID, err := queryInt64(c, "contractor_id")
	if err != nil {
		return database.ScanResultFilter{}, err
	}
	severity := strings.ToLower(strings.TrimSpace(c.Query("severity")))
	if severity != "" && !slices.Contains(models.Severities, severity) {
		return database.ScanResultFilter{}, fmt.Errorf("severity must be one of %s", strings.Join(models.Severities, ", "))
	}
	return database.ScanResultFilter{ContractorID: contractorID, Severity: severity}, nil
}

// List handles GET /scan-results.
func (h *ScanResultHandler) List(c *gin.Context) {
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, scanResultResource)
		return
	}
	filter, err := scanResultFilter(c)
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	page, err := h.pages.ScanResults(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, h.logger, err, scanResultResource)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Export handles GET /scan-results/export with the same filters as List.
// The workbook holds one row per violation.
func (h *ScanResultHandler) Export(c *gin.Context) {
	filter, err := scanResultFilter(c)
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	rows, err := h.pages.ExportRows(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, scanResultResource)
		return
	}

	var buf bytes.Buffer
	if err = importer.WriteScanResults(&buf, rows); err != nil {
		respondError(c, h.logger, err, scanResultResource)
		return
	}

	filename := fmt.Sprintf("scan-results-%s.xlsx", h.now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
