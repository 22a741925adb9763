package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/application/service"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
	"github.com/imcpnet/intranet-workflow/pkg/utils"
)

// Identity headers set by the intranet reverse proxy after SSO.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	headerUserName = "X-User-Name"
)

// Handlers contains HTTP request handlers
type Handlers struct {
	workflowService      service.WorkflowService
	viewService          service.ViewService
	reportService        service.ReportService
	participationService service.ParticipationService
	logger               Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	viewService service.ViewService,
	reportService service.ReportService,
	participationService service.ParticipationService,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService:      workflowService,
		viewService:          viewService,
		reportService:        reportService,
		participationService: participationService,
		logger:               logger,
	}
}

// Response is a generic API response wrapper
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// CreateRecordRequest is the request body for creating a record
type CreateRecordRequest struct {
	Kind    string         `json:"kind" binding:"required"`
	Payload map[string]any `json:"payload"`
}

// FireTransitionRequest is the request body for firing a transition
type FireTransitionRequest struct {
	Transition string         `json:"transition" binding:"required"`
	Payload    map[string]any `json:"payload"`
}

// RespondAttendanceRequest is the request body for answering a training
// invitation
type RespondAttendanceRequest struct {
	Status        string `json:"status" binding:"required"`
	DeclineReason string `json:"decline_reason"`
}

// ReviewApplicationRequest is the request body for progressing a vacancy
// application
type ReviewApplicationRequest struct {
	Status string `json:"status" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "intranet-workflow",
	})
}

// CreateRecord handles POST /api/records
func (h *Handlers) CreateRecord(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	kind := entity.Kind(req.Kind)
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Unknown kind: %s", req.Kind),
		})
		return
	}

	if err := validateDateFields(req.Payload); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	rec, err := h.workflowService.CreateRecord(c.Request.Context(), kind, actor, req.Payload)
	if err != nil {
		h.logger.Error("Failed to create record", "error", err, "kind", req.Kind)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to create record",
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    rec,
	})
}

// ListRecords handles GET /api/records?kind=...&limit=...&offset=...
func (h *Handlers) ListRecords(c *gin.Context) {
	kind := entity.Kind(c.Query("kind"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Unknown kind: %s", c.Query("kind")),
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.workflowService.ListByKind(c.Request.Context(), kind, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list records", "error", err, "kind", kind)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to list records",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// GetRecord handles GET /api/records/:id
func (h *Handlers) GetRecord(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}

	rec, err := h.workflowService.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get record")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rec,
	})
}

// FireTransition handles POST /api/records/:id/transitions
func (h *Handlers) FireTransition(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	id, ok := h.recordID(c)
	if !ok {
		return
	}

	var req FireTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	if err := validateDateFields(req.Payload); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	rec, err := h.workflowService.FireTransition(c.Request.Context(), id, req.Transition, actor, req.Payload)
	if err != nil {
		h.respondError(c, err, "Failed to fire transition")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rec,
	})
}

// AvailableTransitions handles GET /api/records/:id/transitions
func (h *Handlers) AvailableTransitions(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	id, ok := h.recordID(c)
	if !ok {
		return
	}

	names, err := h.workflowService.AvailableTransitions(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err, "Failed to list transitions")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    names,
	})
}

// GetHistory handles GET /api/records/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}

	entries, err := h.workflowService.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to load history")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// ExportHistory handles GET /api/records/:id/history/export
func (h *Handlers) ExportHistory(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}

	content, err := h.reportService.ExportHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to export history")
		return
	}

	filename := fmt.Sprintf("history-%d.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

// CountsByState handles GET /api/views/counts?kind=...
func (h *Handlers) CountsByState(c *gin.Context) {
	kind := entity.Kind(c.Query("kind"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Unknown kind: %s", c.Query("kind")),
		})
		return
	}

	counts, err := h.viewService.CountsByState(c.Request.Context(), kind)
	if err != nil {
		h.logger.Error("Failed to compute counts", "error", err, "kind", kind)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to compute counts",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    counts,
	})
}

// PendingFor handles GET /api/views/pending
func (h *Handlers) PendingFor(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	records, err := h.viewService.PendingFor(c.Request.Context(), actor)
	if err != nil {
		h.logger.Error("Failed to compute pending view", "error", err, "actor_id", actor.ID)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to compute pending view",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// MineAndOverdue handles GET /api/views/overdue
func (h *Handlers) MineAndOverdue(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	records, err := h.viewService.MineAndOverdue(c.Request.Context(), actor)
	if err != nil {
		h.logger.Error("Failed to compute overdue view", "error", err, "actor_id", actor.ID)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to compute overdue view",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// ListSessionAttendances handles GET /api/sessions/:id/attendances
func (h *Handlers) ListSessionAttendances(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	id, ok := h.recordID(c)
	if !ok {
		return
	}

	rows, err := h.participationService.AttendancesForSession(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err, "Failed to list attendances")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rows,
	})
}

// RespondAttendance handles PATCH /api/attendances/:id
func (h *Handlers) RespondAttendance(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	id, ok := h.recordID(c)
	if !ok {
		return
	}

	var req RespondAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}
	if !validConfirmationStatus(req.Status) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Unknown confirmation status: %s", req.Status),
		})
		return
	}

	if err := h.participationService.RespondToInvitation(c.Request.Context(), id, actor, req.Status, req.DeclineReason); err != nil {
		h.respondError(c, err, "Failed to record response")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ListVacancyApplications handles GET /api/vacancies/:id/applications
func (h *Handlers) ListVacancyApplications(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	id, ok := h.recordID(c)
	if !ok {
		return
	}

	apps, err := h.participationService.ApplicationsForVacancy(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err, "Failed to list applications")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    apps,
	})
}

// ReviewApplication handles PATCH /api/applications/:id
func (h *Handlers) ReviewApplication(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}

	id, ok := h.recordID(c)
	if !ok {
		return
	}

	var req ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}
	if !validApplicationStatus(req.Status) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("Unknown application status: %s", req.Status),
		})
		return
	}

	if err := h.participationService.ReviewApplication(c.Request.Context(), id, actor, req.Status); err != nil {
		h.respondError(c, err, "Failed to update application")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ExportStatusReport handles POST /api/reports/status
func (h *Handlers) ExportStatusReport(c *gin.Context) {
	path, err := h.reportService.ExportStatusReport(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export status report", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to export status report",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"path": path},
	})
}

// actorFrom builds the acting identity from the proxy headers. A missing or
// invalid identity ends the request with 401.
func (h *Handlers) actorFrom(c *gin.Context) (entity.Actor, bool) {
	id := c.GetHeader(headerUserID)
	role := entity.Role(c.GetHeader(headerUserRole))

	if id == "" || !role.IsValid() {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "Missing or invalid identity headers",
		})
		return entity.Actor{}, false
	}

	return entity.Actor{
		ID:   id,
		Name: c.GetHeader(headerUserName),
		Role: role,
	}, true
}

// recordID parses the :id path parameter, ending the request with 400 on
// garbage input
func (h *Handlers) recordID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid record ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps domain and port errors onto HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error, fallback string) {
	var denial *workflow.Denial
	switch {
	case errors.As(err, &denial):
		c.JSON(http.StatusForbidden, Response{
			Success: false,
			Error:   denial.Message,
			Reason:  string(denial.Reason),
		})
	case errors.Is(err, workflow.ErrDenied):
		c.JSON(http.StatusForbidden, Response{
			Success: false,
			Error:   err.Error(),
		})
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   "No such transition from the current state; refresh and retry",
		})
	case errors.Is(err, port.ErrVersionConflict):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   "Record was modified concurrently; refresh and retry",
		})
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "Record not found",
		})
	default:
		h.logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   fallback,
		})
	}
}

// validConfirmationStatus reports whether s is an acceptable invitation
// answer. The initial pending status is set by the fan-out, never by a caller.
func validConfirmationStatus(s string) bool {
	switch s {
	case entity.ConfirmationConfirmed, entity.ConfirmationDeclined, entity.ConfirmationRescheduled:
		return true
	}
	return false
}

// validApplicationStatus reports whether s is a settable screening status.
// submitted is set on creation, never by a reviewer.
func validApplicationStatus(s string) bool {
	switch s {
	case entity.ApplicationUnderReview,
		entity.ApplicationShortlisted,
		entity.ApplicationSelected,
		entity.ApplicationRejected,
		entity.ApplicationWithdrawn:
		return true
	}
	return false
}

// validateDateFields rejects payloads whose well-known date fields are not
// ISO dates. Kind-specific payload keys are left alone.
func validateDateFields(payload map[string]any) error {
	for _, key := range []string{entity.FieldDeadline, entity.FieldDueDate, entity.FieldEffectiveDate, entity.FieldBoardDate} {
		val, ok := payload[key]
		if !ok {
			continue
		}
		s, ok := val.(string)
		if !ok || s == "" {
			continue
		}
		if err := utils.ValidateDate(s); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}
