package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/middleware"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
	"github.com/campuspass/leave-api/pkg/response"
)

type mockLeaveService struct {
	submitFn  func(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	decideFn  func(ctx context.Context, leaveID string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	listAllFn func(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
}

func (m *mockLeaveService) Submit(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	return m.submitFn(ctx, req, actor)
}

func (m *mockLeaveService) Decide(ctx context.Context, leaveID string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	return m.decideFn(ctx, leaveID, req, actor)
}

func (m *mockLeaveService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	return nil, appErrors.ErrNotFound
}

func (m *mockLeaveService) ListMine(ctx context.Context, actor *models.JWTClaims, query dto.LeaveQuery) ([]models.LeaveRequest, error) {
	return nil, nil
}

func (m *mockLeaveService) Current(ctx context.Context, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	return nil, appErrors.ErrNotFound
}

func (m *mockLeaveService) StageQueue(ctx context.Context, actor *models.JWTClaims, limit, offset int) ([]models.LeaveRequest, error) {
	return nil, nil
}

func (m *mockLeaveService) ListAll(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	return m.listAllFn(ctx, filter)
}

func newLeaveRouter(svc *mockLeaveService, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, claims)
			c.Next()
		})
	}
	h := NewLeaveHandler(svc)
	r.POST("/leaves", h.Submit)
	r.GET("/leaves", h.List)
	r.POST("/leaves/:id/decision", h.Decide)
	return r
}

func studentTestClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
}

func TestLeaveHandlerSubmitCreated(t *testing.T) {
	svc := &mockLeaveService{
		submitFn: func(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
			assert.Equal(t, models.LeaveTypeMedical, req.LeaveType)
			assert.Equal(t, "s1", actor.UserID)
			return &models.LeaveRequest{ID: "l1", StudentID: actor.UserID, Status: models.LeaveStatusPending}, nil
		},
	}
	router := newLeaveRouter(svc, studentTestClaims())

	body := `{"leave_type":"medical","reason":"fever, advised rest","start_date":"2026-03-02","end_date":"2026-03-04"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "l1", data["id"])
}

func TestLeaveHandlerSubmitMalformedBody(t *testing.T) {
	router := newLeaveRouter(&mockLeaveService{}, studentTestClaims())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestLeaveHandlerSubmitWithoutClaims(t *testing.T) {
	router := newLeaveRouter(&mockLeaveService{}, nil)

	body := `{"leave_type":"medical","reason":"fever, advised rest","start_date":"2026-03-02","end_date":"2026-03-04"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLeaveHandlerDecideConflict(t *testing.T) {
	svc := &mockLeaveService{
		decideFn: func(ctx context.Context, leaveID string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
			assert.Equal(t, "l1", leaveID)
			return nil, appErrors.ErrStateConflict
		},
	}
	router := newLeaveRouter(svc, &models.JWTClaims{UserID: "m1", Role: models.RoleMentor})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leaves/l1/decision", strings.NewReader(`{"action":"approve"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrStateConflict.Code, envelope.Error.Code)
}

func TestLeaveHandlerListParsesFilters(t *testing.T) {
	var captured models.LeaveFilter
	svc := &mockLeaveService{
		listAllFn: func(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
			captured = filter
			return []models.LeaveRequest{}, nil
		},
	}
	router := newLeaveRouter(svc, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/leaves?status=pending,approved&stage=mentor&student_id=s1&from=2026-03-01&to=2026-03-31&limit=10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.LeaveStatus{models.LeaveStatusPending, models.LeaveStatusApproved}, captured.Status)
	assert.Equal(t, models.StageMentor, captured.Stage)
	assert.Equal(t, "s1", captured.StudentID)
	assert.Equal(t, 10, captured.Limit)
	require.NotNil(t, captured.From)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *captured.From)
	require.NotNil(t, captured.To)
}
