package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
)

const testMentorUUID = "3f2a7c9e-8b1d-4e5f-9a6b-0c1d2e3f4a5b"

type mockUserAdminStore struct {
	items      map[string]*models.User
	emailIndex map[string]*models.User
	deleted    []string
}

func (m *mockUserAdminStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.items[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserAdminStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.emailIndex[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserAdminStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(m.items))
	for _, u := range m.items {
		result = append(result, *u)
	}
	return result, len(result), nil
}

func (m *mockUserAdminStore) Create(ctx context.Context, user *models.User) error {
	if m.items == nil {
		m.items = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = "generated"
	}
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *mockUserAdminStore) Update(ctx context.Context, user *models.User) error {
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *mockUserAdminStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func TestUserServiceCreateStudent(t *testing.T) {
	repo := &mockUserAdminStore{items: map[string]*models.User{
		testMentorUUID: {ID: testMentorUUID, Role: models.RoleMentor, Active: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:          "Asha@Example.com",
		Password:       "password",
		FullName:       "Asha Verma",
		Role:           models.RoleStudent,
		Department:     "CS",
		HostelResident: true,
		MentorID:       testMentorUUID,
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.True(t, user.Active)
	assert.True(t, user.HostelResident)
	require.NotNil(t, user.MentorID)
	assert.Equal(t, testMentorUUID, *user.MentorID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password")))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserAdminStore{emailIndex: map[string]*models.User{
		"asha@example.com": {ID: "u1"},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "asha@example.com",
		Password: "password",
		FullName: "Asha Verma",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsNonMentorReference(t *testing.T) {
	repo := &mockUserAdminStore{items: map[string]*models.User{
		testMentorUUID: {ID: testMentorUUID, Role: models.RoleHOD, Active: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "asha@example.com",
		Password: "password",
		FullName: "Asha Verma",
		Role:     models.RoleStudent,
		MentorID: testMentorUUID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdatePatchesFields(t *testing.T) {
	repo := &mockUserAdminStore{items: map[string]*models.User{
		"u1": {ID: "u1", Email: "asha@example.com", FullName: "Asha Verma", Role: models.RoleStudent, Active: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	hostel := true
	dept := "EE"
	user, err := svc.Update(context.Background(), "u1", dto.UpdateUserRequest{
		Department:     &dept,
		HostelResident: &hostel,
	})
	require.NoError(t, err)
	require.NotNil(t, user.Department)
	assert.Equal(t, "EE", *user.Department)
	assert.True(t, user.HostelResident)
	assert.Equal(t, "Asha Verma", user.FullName)
}

func TestUserServiceDeactivate(t *testing.T) {
	repo := &mockUserAdminStore{items: map[string]*models.User{
		"u1": {ID: "u1", Active: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, repo.deleted)

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
