package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	"github.com/campuspass/leave-api/internal/repository"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
)

type leaveWorkflowStore interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	HasPendingForStudent(ctx context.Context, studentID string) (bool, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	ListByStudent(ctx context.Context, studentID string, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	ListPendingAtStage(ctx context.Context, stage models.Stage, department string, limit, offset int) ([]models.LeaveRequest, error)
	ApplyDecision(ctx context.Context, params repository.UpdateDecisionParams) error
}

type leaveUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type approverResolver interface {
	Resolve(ctx context.Context, stage models.Stage, student *models.User) ([]models.User, error)
}

type workflowNotifier interface {
	Notify(n models.Notification)
	NotifyMany(userIDs []string, template models.Notification)
}

type passIssuer interface {
	IssuePass(leave *models.LeaveRequest, student *models.User, outcome models.LeaveStatus) (string, error)
}

type statsInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// LeaveService orchestrates the leave request lifecycle: submission, the
// stage-by-stage review chain, and the terminal approve/reject transitions.
type LeaveService struct {
	repo          leaveWorkflowStore
	users         leaveUserStore
	approvers     approverResolver
	notifier      workflowNotifier
	passes        passIssuer
	stats         statsInvalidator
	metrics       *MetricsService
	validate      *validator.Validate
	logger        *zap.Logger
	singlePending bool
}

// LeaveServiceOption configures the service.
type LeaveServiceOption func(*LeaveService)

// WithSinglePending toggles the one-open-request-per-student rule.
func WithSinglePending(enabled bool) LeaveServiceOption {
	return func(s *LeaveService) {
		s.singlePending = enabled
	}
}

// WithPassIssuer attaches the pass rendering dependency.
func WithPassIssuer(passes passIssuer) LeaveServiceOption {
	return func(s *LeaveService) {
		s.passes = passes
	}
}

// WithStatsInvalidator drops cached aggregates when a request changes state.
func WithStatsInvalidator(stats statsInvalidator) LeaveServiceOption {
	return func(s *LeaveService) {
		s.stats = stats
	}
}

// NewLeaveService constructs the service with defaults.
func NewLeaveService(repo leaveWorkflowStore, users leaveUserStore, approvers approverResolver, notifier workflowNotifier, metrics *MetricsService, logger *zap.Logger, opts ...LeaveServiceOption) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LeaveService{
		repo:          repo,
		users:         users,
		approvers:     approvers,
		notifier:      notifier,
		metrics:       metrics,
		validate:      validator.New(),
		logger:        logger,
		singlePending: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit stores a new leave request and routes it to the first stage.
func (s *LeaveService) Submit(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit leave requests")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	student, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	if s.singlePending {
		pending, err := s.repo.HasPendingForStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open requests")
		}
		if pending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending leave request already exists")
		}
	}

	sequence := models.ResolveStageSequence(student.HostelResident)
	firstStage, err := sequence.First()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve review chain")
	}

	leave := &models.LeaveRequest{
		StudentID:     student.ID,
		LeaveType:     req.LeaveType,
		Reason:        req.Reason,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        models.LeaveStatusPending,
		CurrentStage:  &firstStage,
		StageSequence: sequence,
		Approvals:     models.ApprovalTrail{},
	}
	if req.EmergencyContact != "" {
		contact := req.EmergencyContact
		leave.EmergencyContact = &contact
	}
	if len(req.SupportingDocs) > 0 {
		leave.SupportingDocs = models.StringSlice(req.SupportingDocs)
	}

	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}

	s.notifyStageApprovers(ctx, leave, student, firstStage, models.Notification{
		Kind:    models.NotificationInfo,
		Title:   "New leave request",
		Message: fmt.Sprintf("%s submitted a %s leave request awaiting your review", student.FullName, leave.LeaveType),
	})
	if s.stats != nil {
		s.stats.InvalidateStudent(ctx, student.ID)
	}

	return leave, nil
}

// Decide records an approver verdict at the request's current stage. Of two
// racing decisions on the same request exactly one lands; the loser receives
// a state conflict.
func (s *LeaveService) Decide(ctx context.Context, leaveID string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	leave, err := s.repo.GetByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.Status != models.LeaveStatusPending || leave.CurrentStage == nil {
		return nil, appErrors.ErrStateConflict
	}
	currentStage := *leave.CurrentStage

	student, err := s.users.FindByID(ctx, leave.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	if err := s.authorizeDecision(ctx, currentStage, student, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	comment := req.Comment
	if comment == "" {
		comment = defaultDecisionComment(req.Action, currentStage, leave.StageSequence)
	}
	trail := append(models.ApprovalTrail{}, leave.Approvals...)
	trail = append(trail, models.Approval{
		Stage:        currentStage,
		ApproverID:   actor.UserID,
		ApproverName: actor.FullName,
		Action:       req.Action,
		Comment:      comment,
		At:           now,
	})

	params := repository.UpdateDecisionParams{
		ID:            leave.ID,
		ExpectedStage: currentStage,
		Approvals:     trail,
		UpdatedAt:     now,
	}

	var nextStage models.Stage
	var terminal bool
	switch req.Action {
	case models.ActionReject:
		params.Status = models.LeaveStatusRejected
		terminal = true
		if s.passes != nil {
			passRef, err := s.passes.IssuePass(leave, student, models.LeaveStatusRejected)
			if err != nil {
				return nil, err
			}
			params.FinalPassRef = &passRef
		}
	case models.ActionApprove:
		nextStage, terminal, err = leave.StageSequence.Next(currentStage)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "review chain is inconsistent")
		}
		if terminal {
			params.Status = models.LeaveStatusApproved
			if s.passes != nil {
				passRef, err := s.passes.IssuePass(leave, student, models.LeaveStatusApproved)
				if err != nil {
					return nil, err
				}
				params.FinalPassRef = &passRef
			}
		} else {
			params.Status = models.LeaveStatusPending
			params.NextStage = &nextStage
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}

	if err := s.repo.ApplyDecision(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStateConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(currentStage, req.Action)
	}

	leave.Status = params.Status
	leave.CurrentStage = params.NextStage
	leave.Approvals = trail
	leave.UpdatedAt = now
	if params.FinalPassRef != nil {
		leave.FinalPassRef = params.FinalPassRef
	}

	s.notifyDecision(ctx, leave, student, currentStage, req.Action, terminal)
	if s.stats != nil {
		s.stats.InvalidateStudent(ctx, student.ID)
	}

	return leave, nil
}

// Get returns one request enforcing scope constraints: students see their
// own, mentors and HODs see their department's students, principal, warden
// and admins see all.
func (s *LeaveService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	leave, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	switch actor.Role {
	case models.RoleAdmin:
		return leave, nil
	case models.RoleStudent:
		if leave.StudentID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
		return leave, nil
	case models.RoleMentor, models.RoleHOD:
		reviewer, err := s.users.FindByID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewer profile")
		}
		student, err := s.users.FindByID(ctx, leave.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		if reviewer.Department == nil || student.Department == nil || *reviewer.Department != *student.Department {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "request is outside your review scope")
		}
		return leave, nil
	default:
		return leave, nil
	}
}

// ListMine returns the caller's requests sorted latest first.
func (s *LeaveService) ListMine(ctx context.Context, actor *models.JWTClaims, query dto.LeaveQuery) ([]models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.LeaveFilter{
		Status: query.Status,
		From:   query.From,
		To:     query.To,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	leaves, err := s.repo.ListByStudent(ctx, actor.UserID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, nil
}

// Current returns the caller's most recent request, newest first.
func (s *LeaveService) Current(ctx context.Context, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	leaves, err := s.repo.ListByStudent(ctx, actor.UserID, models.LeaveFilter{Limit: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current leave request")
	}
	if len(leaves) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no leave requests on record")
	}
	return &leaves[0], nil
}

// StageQueue returns pending requests awaiting the caller's review.
func (s *LeaveService) StageQueue(ctx context.Context, actor *models.JWTClaims, limit, offset int) ([]models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	stage, err := stageForRole(actor.Role)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller has no review stage")
	}

	department := ""
	if stage == models.StageMentor || stage == models.StageHOD {
		reviewer, err := s.users.FindByID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewer profile")
		}
		if reviewer.Department != nil {
			department = *reviewer.Department
		}
	}

	leaves, err := s.repo.ListPendingAtStage(ctx, stage, department, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stage queue")
	}
	return leaves, nil
}

// ListAll returns requests matching the filter for admin consumption.
func (s *LeaveService) ListAll(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	leaves, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, nil
}

func (s *LeaveService) authorizeDecision(ctx context.Context, stage models.Stage, student *models.User, actor *models.JWTClaims) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	requiredRole, err := models.StageApproverRole(stage)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unknown review stage")
	}
	if actor.Role != requiredRole {
		return appErrors.ErrStateConflict
	}
	approvers, err := s.approvers.Resolve(ctx, stage, student)
	if err != nil {
		return err
	}
	for _, approver := range approvers {
		if approver.ID == actor.UserID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "request is outside your review scope")
}

func (s *LeaveService) notifyStageApprovers(ctx context.Context, leave *models.LeaveRequest, student *models.User, stage models.Stage, template models.Notification) {
	if s.notifier == nil {
		return
	}
	approvers, err := s.approvers.Resolve(ctx, stage, student)
	if err != nil {
		s.logger.Warn("approver notification skipped",
			zap.String("leave_id", leave.ID),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		return
	}
	ids := make([]string, 0, len(approvers))
	for _, approver := range approvers {
		ids = append(ids, approver.ID)
	}
	template.RelatedLeaveID = &leave.ID
	s.notifier.NotifyMany(ids, template)
}

func (s *LeaveService) notifyDecision(ctx context.Context, leave *models.LeaveRequest, student *models.User, decidedStage models.Stage, action models.DecisionAction, terminal bool) {
	if s.notifier == nil {
		return
	}
	switch {
	case action == models.ActionReject:
		s.notifier.Notify(models.Notification{
			UserID:         student.ID,
			Kind:           models.NotificationError,
			Title:          "Leave request rejected",
			Message:        fmt.Sprintf("Your %s leave request was rejected at the %s stage", leave.LeaveType, decidedStage),
			RelatedLeaveID: &leave.ID,
		})
	case terminal:
		s.notifier.Notify(models.Notification{
			UserID:         student.ID,
			Kind:           models.NotificationSuccess,
			Title:          "Leave request approved",
			Message:        fmt.Sprintf("Your %s leave request is fully approved. Your pass is ready to download.", leave.LeaveType),
			RelatedLeaveID: &leave.ID,
		})
	default:
		next := leave.CurrentStage
		if next == nil {
			return
		}
		s.notifier.Notify(models.Notification{
			UserID:         student.ID,
			Kind:           models.NotificationInfo,
			Title:          "Leave request progressing",
			Message:        fmt.Sprintf("Your %s leave request moved to the %s stage", leave.LeaveType, *next),
			RelatedLeaveID: &leave.ID,
		})
		s.notifyStageApprovers(ctx, leave, student, *next, models.Notification{
			Kind:    models.NotificationInfo,
			Title:   "Leave request awaiting review",
			Message: fmt.Sprintf("%s's %s leave request reached your review stage", student.FullName, leave.LeaveType),
		})
	}
}

func defaultDecisionComment(action models.DecisionAction, stage models.Stage, sequence models.StageSequence) string {
	if action == models.ActionReject {
		return "Application rejected"
	}
	if _, terminal, err := sequence.Next(stage); err == nil && terminal {
		return "Application approved"
	}
	return fmt.Sprintf("Approved by %s", stage)
}

func stageForRole(role models.UserRole) (models.Stage, error) {
	switch role {
	case models.RoleMentor:
		return models.StageMentor, nil
	case models.RoleHOD:
		return models.StageHOD, nil
	case models.RolePrincipal:
		return models.StagePrincipal, nil
	case models.RoleWarden:
		return models.StageWarden, nil
	default:
		return "", fmt.Errorf("role %s has no review stage", role)
	}
}
