package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
)

type approverDirectoryStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	FindActiveByRoleAndDepartment(ctx context.Context, role models.UserRole, department string) ([]models.User, error)
	FindActiveByRoleDeptYear(ctx context.Context, role models.UserRole, department, year string) ([]models.User, error)
}

// ApproverService resolves which users review a request at a given stage.
type ApproverService struct {
	users   approverDirectoryStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewApproverService constructs the directory service.
func NewApproverService(users approverDirectoryStore, metrics *MetricsService, logger *zap.Logger) *ApproverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApproverService{users: users, metrics: metrics, logger: logger}
}

// Resolve returns the active approvers for a stage given the requesting
// student's profile. Mentor resolution is an ordered fallback chain: the
// student's assigned mentor, then mentors matching both department and year,
// then every active mentor of the department. Mentor and HOD stages are
// department scoped; principal and warden are global.
//
// An empty result is not an error. The caller decides how to proceed; the
// gap is logged and counted so operators can fix the directory.
func (s *ApproverService) Resolve(ctx context.Context, stage models.Stage, student *models.User) ([]models.User, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student profile required")
	}

	role, err := models.StageApproverRole(stage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unknown review stage")
	}

	var approvers []models.User
	switch stage {
	case models.StageMentor:
		approvers, err = s.resolveMentor(ctx, student)
	case models.StageHOD:
		approvers, err = s.resolveScoped(ctx, role, student)
	default:
		approvers, err = s.users.FindActiveByRole(ctx, role)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "approver lookup failed")
	}

	if len(approvers) == 0 {
		s.logger.Warn("no active approvers for stage",
			zap.String("stage", string(stage)),
			zap.String("student_id", student.ID),
		)
		if s.metrics != nil {
			s.metrics.RecordApproverGap(stage)
		}
	}
	return approvers, nil
}

func (s *ApproverService) resolveMentor(ctx context.Context, student *models.User) ([]models.User, error) {
	if student.MentorID != nil && *student.MentorID != "" {
		mentor, err := s.users.FindByID(ctx, *student.MentorID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if mentor != nil && mentor.Active && mentor.Role == models.RoleMentor {
			return []models.User{*mentor}, nil
		}
		s.logger.Warn("assigned mentor unavailable, falling back to department",
			zap.String("student_id", student.ID),
			zap.String("mentor_id", *student.MentorID),
		)
	}
	if student.Department != nil && *student.Department != "" && student.Year != nil && *student.Year != "" {
		mentors, err := s.users.FindActiveByRoleDeptYear(ctx, models.RoleMentor, *student.Department, *student.Year)
		if err != nil {
			return nil, err
		}
		if len(mentors) > 0 {
			return mentors, nil
		}
	}
	return s.resolveScoped(ctx, models.RoleMentor, student)
}

func (s *ApproverService) resolveScoped(ctx context.Context, role models.UserRole, student *models.User) ([]models.User, error) {
	if student.Department == nil || *student.Department == "" {
		return s.users.FindActiveByRole(ctx, role)
	}
	return s.users.FindActiveByRoleAndDepartment(ctx, role, *student.Department)
}
