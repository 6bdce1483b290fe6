package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/models"
)

type mockDirectory struct {
	users      map[string]*models.User
	byRole     map[models.UserRole][]models.User
	byDept     map[string][]models.User
	byDeptYear map[string][]models.User
}

func (m *mockDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDirectory) FindActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	return m.byRole[role], nil
}

func (m *mockDirectory) FindActiveByRoleAndDepartment(ctx context.Context, role models.UserRole, department string) ([]models.User, error) {
	return m.byDept[string(role)+":"+department], nil
}

func (m *mockDirectory) FindActiveByRoleDeptYear(ctx context.Context, role models.UserRole, department, year string) ([]models.User, error) {
	return m.byDeptYear[string(role)+":"+department+":"+year], nil
}

func strPtr(s string) *string { return &s }

func TestResolvePrefersAssignedMentor(t *testing.T) {
	dir := &mockDirectory{
		users: map[string]*models.User{
			"m1": {ID: "m1", Role: models.RoleMentor, Active: true},
		},
	}
	svc := NewApproverService(dir, nil, zap.NewNop())

	student := &models.User{ID: "s1", Role: models.RoleStudent, MentorID: strPtr("m1"), Department: strPtr("CS")}
	approvers, err := svc.Resolve(context.Background(), models.StageMentor, student)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, "m1", approvers[0].ID)
}

func TestResolveFallsBackToDepartmentMentors(t *testing.T) {
	dir := &mockDirectory{
		users: map[string]*models.User{
			"m1": {ID: "m1", Role: models.RoleMentor, Active: false},
		},
		byDept: map[string][]models.User{
			"MENTOR:CS": {{ID: "m2", Role: models.RoleMentor, Active: true}},
		},
	}
	svc := NewApproverService(dir, nil, zap.NewNop())

	student := &models.User{ID: "s1", Role: models.RoleStudent, MentorID: strPtr("m1"), Department: strPtr("CS")}
	approvers, err := svc.Resolve(context.Background(), models.StageMentor, student)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, "m2", approvers[0].ID)
}

func TestResolveMentorPrefersYearMatch(t *testing.T) {
	dir := &mockDirectory{
		byDeptYear: map[string][]models.User{
			"MENTOR:CS:3": {{ID: "m-year", Role: models.RoleMentor, Active: true}},
		},
		byDept: map[string][]models.User{
			"MENTOR:CS": {
				{ID: "m-year", Role: models.RoleMentor, Active: true},
				{ID: "m-other", Role: models.RoleMentor, Active: true},
			},
		},
	}
	svc := NewApproverService(dir, nil, zap.NewNop())

	student := &models.User{ID: "s1", Role: models.RoleStudent, Department: strPtr("CS"), Year: strPtr("3")}
	approvers, err := svc.Resolve(context.Background(), models.StageMentor, student)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, "m-year", approvers[0].ID)
}

func TestResolveMentorYearGapFallsBackToDepartment(t *testing.T) {
	dir := &mockDirectory{
		byDept: map[string][]models.User{
			"MENTOR:CS": {{ID: "m-dept", Role: models.RoleMentor, Active: true}},
		},
	}
	svc := NewApproverService(dir, nil, zap.NewNop())

	student := &models.User{ID: "s1", Role: models.RoleStudent, Department: strPtr("CS"), Year: strPtr("3")}
	approvers, err := svc.Resolve(context.Background(), models.StageMentor, student)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, "m-dept", approvers[0].ID)
}

func TestResolveHODScopedToDepartment(t *testing.T) {
	dir := &mockDirectory{
		byDept: map[string][]models.User{
			"HOD:CS": {{ID: "h1", Role: models.RoleHOD, Active: true}},
		},
		byRole: map[models.UserRole][]models.User{
			models.RoleHOD: {{ID: "h1"}, {ID: "h2"}},
		},
	}
	svc := NewApproverService(dir, nil, zap.NewNop())

	student := &models.User{ID: "s1", Department: strPtr("CS")}
	approvers, err := svc.Resolve(context.Background(), models.StageHOD, student)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, "h1", approvers[0].ID)
}

func TestResolvePrincipalIsGlobal(t *testing.T) {
	dir := &mockDirectory{
		byRole: map[models.UserRole][]models.User{
			models.RolePrincipal: {{ID: "p1", Role: models.RolePrincipal, Active: true}},
		},
	}
	svc := NewApproverService(dir, nil, zap.NewNop())

	student := &models.User{ID: "s1", Department: strPtr("CS")}
	approvers, err := svc.Resolve(context.Background(), models.StagePrincipal, student)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, "p1", approvers[0].ID)
}

func TestResolveEmptyResultIsNotAnError(t *testing.T) {
	svc := NewApproverService(&mockDirectory{}, NewMetricsService(), zap.NewNop())

	student := &models.User{ID: "s1"}
	approvers, err := svc.Resolve(context.Background(), models.StageWarden, student)
	require.NoError(t, err)
	assert.Empty(t, approvers)
}

func TestResolveUnknownStage(t *testing.T) {
	svc := NewApproverService(&mockDirectory{}, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), models.Stage("registrar"), &models.User{ID: "s1"})
	require.Error(t, err)
}
