package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/models"
)

type mockStatsStore struct {
	studentStatuses map[models.LeaveStatus]int
	studentTypes    map[models.LeaveType]int
	daysUsed        int
	statuses        map[models.LeaveStatus]int
	stages          map[models.Stage]int
}

func (m *mockStatsStore) StatusCountsForStudent(ctx context.Context, studentID string) (map[models.LeaveStatus]int, error) {
	return m.studentStatuses, nil
}

func (m *mockStatsStore) TypeCountsForStudent(ctx context.Context, studentID string) (map[models.LeaveType]int, error) {
	return m.studentTypes, nil
}

func (m *mockStatsStore) DaysUsedForStudent(ctx context.Context, studentID string) (int, error) {
	return m.daysUsed, nil
}

func (m *mockStatsStore) StatusCounts(ctx context.Context) (map[models.LeaveStatus]int, error) {
	return m.statuses, nil
}

func (m *mockStatsStore) PendingCountsByStage(ctx context.Context) (map[models.Stage]int, error) {
	return m.stages, nil
}

func TestStudentStats(t *testing.T) {
	store := &mockStatsStore{
		studentStatuses: map[models.LeaveStatus]int{
			models.LeaveStatusPending:  1,
			models.LeaveStatusApproved: 3,
			models.LeaveStatusRejected: 2,
		},
		studentTypes: map[models.LeaveType]int{
			models.LeaveTypeMedical:  4,
			models.LeaveTypePersonal: 2,
		},
		daysUsed: 9,
	}
	svc := NewStatsService(store, nil, zap.NewNop())

	stats, err := svc.StudentStats(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 3, stats.Approved)
	assert.Equal(t, 2, stats.Rejected)
	assert.Equal(t, 9, stats.DaysUsed)
	assert.Equal(t, map[string]int{"medical": 4, "personal": 2}, stats.ByType)
}

func TestWorkflowStatsStageOrder(t *testing.T) {
	store := &mockStatsStore{
		statuses: map[models.LeaveStatus]int{
			models.LeaveStatusPending:  5,
			models.LeaveStatusApproved: 10,
		},
		stages: map[models.Stage]int{
			models.StageWarden: 1,
			models.StageMentor: 3,
			models.StageHOD:    1,
		},
	}
	svc := NewStatsService(store, nil, zap.NewNop())

	stats, err := svc.WorkflowStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, stats.TotalRequests)
	require.Len(t, stats.PendingByStage, 3)
	assert.Equal(t, models.StageMentor, stats.PendingByStage[0].Stage)
	assert.Equal(t, 3, stats.PendingByStage[0].Count)
	assert.Equal(t, models.StageHOD, stats.PendingByStage[1].Stage)
	assert.Equal(t, models.StageWarden, stats.PendingByStage[2].Stage)
}
