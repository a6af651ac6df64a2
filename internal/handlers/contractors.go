package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

const contractorResource = "Contractor"

type createContractorRequest struct {
	Name          string   `json:"name"`
	Domain        string   `json:"domain"`
	Description   *string  `json:"description"`
	IsActive      *bool    `json:"is_active"`
	CheckSchedule string   `json:"check_schedule"`
	MaxPages      *int     `json:"max_pages"`
	MaxDepth      *int     `json:"max_depth"`
	Tags          []string `json:"tags"`
}

// updateContractorRequest carries only the fields present in the body.
type updateContractorRequest struct {
	Name          *string   `json:"name"`
	Domain        *string   `json:"domain"`
	Description   *string   `json:"description"`
	IsActive      *bool     `json:"is_active"`
	CheckSchedule *string   `json:"check_schedule"`
	MaxPages      *int      `json:"max_pages"`
	MaxDepth      *int      `json:"max_depth"`
	Tags          *[]string `json:"tags"`
}

// ContractorHandler serves /contractors.
type ContractorHandler struct {
	contractors ContractorStore
	pages       PageStore
	scanner     Scanner
	logger      logger.Logger
	now         func() time.Time
}

// NewContractorHandler creates a contractor handler.
func NewContractorHandler(contractors ContractorStore, pages PageStore, scanner Scanner, log logger.Logger) *ContractorHandler {
	return &ContractorHandler{
		contractors: contractors,
		pages:       pages,
		scanner:     scanner,
		logger:      log,
		now:         time.Now,
	}
}

// List handles GET /contractors.
func (h *ContractorHandler) List(c *gin.Context) {
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	isActive, err := queryBool(c, "is_active")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	filter := database.ContractorFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		IsActive: isActive,
	}
	page, err := h.contractors.List(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create handles POST /contractors.
func (h *ContractorHandler) Create(c *gin.Context) {
	var req createContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	contractor := &models.Contractor{
		Name:          req.Name,
		Domain:        req.Domain,
		Description:   req.Description,
		IsActive:      true,
		CheckSchedule: req.CheckSchedule,
		MaxPages:      req.MaxPages,
		MaxDepth:      req.MaxDepth,
		Tags:          req.Tags,
	}
	if req.IsActive != nil {
		contractor.IsActive = *req.IsActive
	}
	if err := rules.ValidateContractor(contractor); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	next := h.now().UTC().Add(models.ScheduleInterval(contractor.CheckSchedule))
	contractor.NextCheck = &next

	if err := h.contractors.Create(c.Request.Context(), contractor); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}

	logger.FromContext(c.Request.Context(), h.logger).Info("Contractor created",
		logger.Int64("contractor_id", contractor.ID),
		logger.String("domain", contractor.Domain),
	)
	c.JSON(http.StatusCreated, contractor)
}

// Get handles GET /contractors/:id.
func (h *ContractorHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	contractor, err := h.contractors.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	c.JSON(http.StatusOK, contractor)
}

// Update handles PUT /contractors/:id. The domain cannot be changed.
func (h *ContractorHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	contractor, err := h.contractors.GetByID(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}

	if req.Domain != nil && models.NormalizeDomain(*req.Domain) != contractor.Domain {
		badRequest(c, "Domain cannot be changed", nil)
		return
	}

	scheduleChanged := applyContractorUpdate(contractor, &req)
	if err = rules.ValidateContractor(contractor); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	if scheduleChanged {
		base := h.now().UTC()
		if contractor.LastCheck != nil {
			base = *contractor.LastCheck
		}
		next := base.Add(models.ScheduleInterval(contractor.CheckSchedule))
		contractor.NextCheck = &next
	}

	if err = h.contractors.Update(ctx, contractor); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	c.JSON(http.StatusOK, contractor)
}

func applyContractorUpdate(c *models.Contractor, req *updateContractorRequest) bool {
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.MaxPages != nil {
		c.MaxPages = req.MaxPages
	}
	if req.MaxDepth != nil {
		c.MaxDepth = req.MaxDepth
	}
	if req.Tags != nil {
		c.Tags = *req.Tags
	}
	if req.CheckSchedule != nil && *req.CheckSchedule != c.CheckSchedule {
		c.CheckSchedule = *req.CheckSchedule
		return true
	}
	return false
}

// Delete handles DELETE /contractors/:id. A live scan of the contractor
// is stopped first.
func (h *ContractorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.scanner.CancelContractor(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	if err := h.contractors.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}

	logger.FromContext(c.Request.Context(), h.logger).Info("Contractor deleted", logger.Int64("contractor_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Contractor deleted successfully"})
}

// Scan handles POST /contractors/:id/scan.
func (h *ContractorHandler) Scan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	startSession(c, h.scanner, h.logger, id)
}

// Pages handles GET /contractors/:id/pages.
func (h *ContractorHandler) Pages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	params, err := pageParams(c, "")
	if err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}
	violationsOnly, err := queryBool(c, "violations_only")
	if err != nil {
		badRequest(c, "Invalid query parameter", err)
		return
	}

	ctx := c.Request.Context()
	if _, err = h.contractors.GetByID(ctx, id); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}

	filter := database.PageFilter{
		Status:         c.Query("status"),
		ViolationsOnly: violationsOnly != nil && *violationsOnly,
	}
	page, err := h.pages.ListByContractor(ctx, id, filter, params)
	if err != nil {
		respondError(c, h.logger, err, "Page")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Page handles GET /contractors/:id/pages/:page_id.
func (h *ContractorHandler) Page(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pageID, ok := pathID(c, "page_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.contractors.GetByID(ctx, id); err != nil {
		respondError(c, h.logger, err, contractorResource)
		return
	}

	page, err := h.pages.GetWithViolations(ctx, id, pageID)
	if err != nil {
		respondError(c, h.logger, err, "Page")
		return
	}
	c.JSON(http.StatusOK, page)
}

// startSession is shared by the two scan trigger routes.
func startSession(c *gin.Context, scanner Scanner, log logger.Logger, contractorID int64) {
	sess, err := scanner.Start(c.Request.Context(), contractorID, session.TriggerManual)
	if err != nil {
		respondError(c, log, err, contractorResource)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message":       "Scan session started",
		"session_id":    sess.ID,
		"contractor_id": contractorID,
		"session":       sess,
	})
}
