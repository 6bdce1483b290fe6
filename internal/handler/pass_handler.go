package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
	"github.com/campuspass/leave-api/pkg/response"
)

type passService interface {
	Open(passRef string) (*os.File, error)
	Verify(ctx context.Context, token string) (*dto.PassVerification, error)
}

type passLeaveReader interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error)
}

// PassHandler serves pass downloads and gate-side verification.
type PassHandler struct {
	passes passService
	leaves passLeaveReader
}

// NewPassHandler constructs the handler.
func NewPassHandler(passes passService, leaves passLeaveReader) *PassHandler {
	return &PassHandler{passes: passes, leaves: leaves}
}

// Download godoc
// @Summary Download the printable pass for an approved request
// @Tags Passes
// @Produce application/pdf
// @Param id path string true "Leave request ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /leaves/{id}/pass [get]
func (h *PassHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	leave, err := h.leaves.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if leave.Status != models.LeaveStatusApproved || leave.FinalPassRef == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no pass issued for this request"))
		return
	}

	file, err := h.passes.Open(*leave.FinalPassRef)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", *leave.FinalPassRef))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// Verify godoc
// @Summary Verify a scanned pass token
// @Tags Passes
// @Produce json
// @Param token query string true "Pass token"
// @Success 200 {object} response.Envelope
// @Router /passes/verify [get]
func (h *PassHandler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	verification, err := h.passes.Verify(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verification, nil)
}
