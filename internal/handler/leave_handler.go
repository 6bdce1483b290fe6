package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
	"github.com/campuspass/leave-api/pkg/response"
)

type leaveService interface {
	Submit(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Decide(ctx context.Context, leaveID string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error)
	ListMine(ctx context.Context, actor *models.JWTClaims, query dto.LeaveQuery) ([]models.LeaveRequest, error)
	Current(ctx context.Context, actor *models.JWTClaims) (*models.LeaveRequest, error)
	StageQueue(ctx context.Context, actor *models.JWTClaims, limit, offset int) ([]models.LeaveRequest, error)
	ListAll(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
}

// LeaveHandler exposes REST endpoints for the leave workflow.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(service leaveService) *LeaveHandler {
	return &LeaveHandler{service: service}
}

// Submit godoc
// @Summary Submit a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	leave, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, leave, nil)
}

// Decide godoc
// @Summary Record an approval decision
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/decision [post]
func (h *LeaveHandler) Decide(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	leave, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Get godoc
// @Summary Get leave request detail
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	leave, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// ListMine godoc
// @Summary List the caller's leave requests
// @Tags Leaves
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /leaves/mine [get]
func (h *LeaveHandler) ListMine(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.LeaveQuery{
		Status: parseStatuses(c.Query("status")),
		Limit:  parseIntQuery(c, "limit"),
		Offset: parseIntQuery(c, "offset"),
	}
	leaves, err := h.service.ListMine(c.Request.Context(), claims, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// Current godoc
// @Summary Get the caller's most recent leave request
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/current [get]
func (h *LeaveHandler) Current(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	leave, err := h.service.Current(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Queue godoc
// @Summary List pending requests awaiting the caller's review
// @Tags Leaves
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /leaves/queue [get]
func (h *LeaveHandler) Queue(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	leaves, err := h.service.StageQueue(c.Request.Context(), claims, parseIntQuery(c, "limit"), parseIntQuery(c, "offset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// List godoc
// @Summary List leave requests (admin)
// @Tags Leaves
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param stage query string false "Current stage"
// @Param student_id query string false "Student ID"
// @Param from query string false "Start date lower bound (YYYY-MM-DD)"
// @Param to query string false "End date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "leave service not configured"))
		return
	}
	filter := models.LeaveFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		Status:    parseStatuses(c.Query("status")),
		Stage:     models.Stage(strings.TrimSpace(c.Query("stage"))),
		Limit:     parseIntQuery(c, "limit"),
		Offset:    parseIntQuery(c, "offset"),
	}
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			filter.To = &to
		}
	}
	leaves, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

func parseStatuses(raw string) []models.LeaveStatus {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.LeaveStatus, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		statuses = append(statuses, models.LeaveStatus(part))
	}
	return statuses
}

func parseIntQuery(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
