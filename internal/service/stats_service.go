package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
)

type statsStore interface {
	StatusCountsForStudent(ctx context.Context, studentID string) (map[models.LeaveStatus]int, error)
	TypeCountsForStudent(ctx context.Context, studentID string) (map[models.LeaveType]int, error)
	DaysUsedForStudent(ctx context.Context, studentID string) (int, error)
	StatusCounts(ctx context.Context) (map[models.LeaveStatus]int, error)
	PendingCountsByStage(ctx context.Context) (map[models.Stage]int, error)
}

// StatsService aggregates leave history for students and workflow load for
// admins, with a read-through cache in front of the heavier queries.
type StatsService struct {
	repo   statsStore
	cache  *CacheService
	logger *zap.Logger
}

// NewStatsService constructs the stats service.
func NewStatsService(repo statsStore, cache *CacheService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, cache: cache, logger: logger}
}

// StudentStats returns one student's aggregated leave history. Days used
// counts approved requests with an inclusive day span.
func (s *StatsService) StudentStats(ctx context.Context, studentID string) (*dto.LeaveStats, error) {
	cacheKey := fmt.Sprintf("stats:student:%s", studentID)
	if s.cache != nil {
		var cached dto.LeaveStats
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	statusCounts, err := s.repo.StatusCountsForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate leave statuses")
	}
	typeCounts, err := s.repo.TypeCountsForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate leave types")
	}
	daysUsed, err := s.repo.DaysUsedForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum leave days")
	}

	stats := &dto.LeaveStats{
		Pending:  statusCounts[models.LeaveStatusPending],
		Approved: statusCounts[models.LeaveStatusApproved],
		Rejected: statusCounts[models.LeaveStatusRejected],
		DaysUsed: daysUsed,
		ByType:   make(map[string]int, len(typeCounts)),
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	for leaveType, count := range typeCounts {
		stats.ByType[string(leaveType)] = count
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, stats, 0)
	}
	return stats, nil
}

// WorkflowStats returns system-wide totals and the pending queue depth per stage.
func (s *StatsService) WorkflowStats(ctx context.Context) (*dto.WorkflowStats, error) {
	const cacheKey = "stats:workflow"
	if s.cache != nil {
		var cached dto.WorkflowStats
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	statusCounts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate leave statuses")
	}
	stageCounts, err := s.repo.PendingCountsByStage(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate stage queues")
	}

	stats := &dto.WorkflowStats{
		Pending:  statusCounts[models.LeaveStatusPending],
		Approved: statusCounts[models.LeaveStatusApproved],
		Rejected: statusCounts[models.LeaveStatusRejected],
	}
	stats.TotalRequests = stats.Pending + stats.Approved + stats.Rejected
	for _, stage := range []models.Stage{models.StageMentor, models.StageHOD, models.StagePrincipal, models.StageWarden} {
		if count, ok := stageCounts[stage]; ok {
			stats.PendingByStage = append(stats.PendingByStage, dto.StageCount{Stage: stage, Count: count})
		}
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, stats, 0)
	}
	return stats, nil
}

// InvalidateStudent drops the cached aggregate after a workflow transition.
func (s *StatsService) InvalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("stats:student:%s", studentID)); err != nil {
		s.logger.Warn("stats invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
	_ = s.cache.Invalidate(ctx, "stats:workflow")
}
