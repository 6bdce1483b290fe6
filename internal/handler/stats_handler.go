package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
	"github.com/campuspass/leave-api/pkg/response"
)

type statsService interface {
	StudentStats(ctx context.Context, studentID string) (*dto.LeaveStats, error)
	WorkflowStats(ctx context.Context) (*dto.WorkflowStats, error)
}

// StatsHandler exposes leave aggregate endpoints.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service statsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Mine godoc
// @Summary Aggregate the caller's leave history
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/me [get]
func (h *StatsHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.service.StudentStats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Student godoc
// @Summary Aggregate one student's leave history
// @Tags Stats
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /stats/students/{id} [get]
func (h *StatsHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Param("id")
	if claims.Role == models.RoleStudent && claims.UserID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	stats, err := h.service.StudentStats(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Workflow godoc
// @Summary Aggregate system-wide workflow load
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/workflow [get]
func (h *StatsHandler) Workflow(c *gin.Context) {
	stats, err := h.service.WorkflowStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
