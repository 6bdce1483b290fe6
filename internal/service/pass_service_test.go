package service

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/models"
	"github.com/campuspass/leave-api/pkg/export"
	"github.com/campuspass/leave-api/pkg/qr"
	"github.com/campuspass/leave-api/pkg/storage"
)

type mockPassStorage struct {
	saved map[string][]byte
}

func (m *mockPassStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockPassStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

type mockPassLeaves struct {
	items map[string]*models.LeaveRequest
}

func (m *mockPassLeaves) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	if leave, ok := m.items[id]; ok {
		cp := *leave
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func approvedLeave(id string) *models.LeaveRequest {
	return &models.LeaveRequest{
		ID:        id,
		StudentID: "s1",
		LeaveType: models.LeaveTypeMedical,
		Reason:    "fever, advised rest",
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Status:    models.LeaveStatusApproved,
	}
}

func newPassFixture(leaves *mockPassLeaves, store *mockPassStorage) (*PassService, *storage.PassSigner) {
	signer := storage.NewPassSigner("secret", time.Hour)
	return NewPassService(leaves, store, signer, qr.NewEncoder(128), export.NewPassRenderer("Test Institute"), zap.NewNop()), signer
}

func TestIssuePassStoresRenderedPDF(t *testing.T) {
	store := &mockPassStorage{}
	svc, _ := newPassFixture(&mockPassLeaves{}, store)

	student := &models.User{ID: "s1", FullName: "Asha Verma", Role: models.RoleStudent}
	ref, err := svc.IssuePass(approvedLeave("leave-1"), student, models.LeaveStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, "leave-1.pdf", ref)

	data, ok := store.saved["leave-1.pdf"]
	require.True(t, ok)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestVerifyApprovedPass(t *testing.T) {
	leave := approvedLeave("leave-1")
	leaves := &mockPassLeaves{items: map[string]*models.LeaveRequest{"leave-1": leave}}
	svc, signer := newPassFixture(leaves, &mockPassStorage{})

	token, _, err := signer.Generate("leave-1", "leave-1.pdf")
	require.NoError(t, err)

	verification, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, verification.Valid)
	assert.Equal(t, "leave-1", verification.LeaveID)
	assert.Equal(t, "s1", verification.StudentID)
	assert.Equal(t, "2026-03-02", verification.StartDate)
	assert.Equal(t, "2026-03-04", verification.EndDate)
}

func TestVerifyRejectsPendingRequest(t *testing.T) {
	leave := approvedLeave("leave-1")
	leave.Status = models.LeaveStatusPending
	leaves := &mockPassLeaves{items: map[string]*models.LeaveRequest{"leave-1": leave}}
	svc, signer := newPassFixture(leaves, &mockPassStorage{})

	token, _, err := signer.Generate("leave-1", "leave-1.pdf")
	require.NoError(t, err)

	verification, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, verification.Valid)
	assert.Equal(t, "request is not approved", verification.Reason)
}

func TestVerifyGarbageToken(t *testing.T) {
	svc, _ := newPassFixture(&mockPassLeaves{}, &mockPassStorage{})

	verification, err := svc.Verify(context.Background(), "not-a-token")
	require.NoError(t, err)
	assert.False(t, verification.Valid)
}

func TestVerifyUnknownLeave(t *testing.T) {
	svc, signer := newPassFixture(&mockPassLeaves{}, &mockPassStorage{})

	token, _, err := signer.Generate("leave-404", "leave-404.pdf")
	require.NoError(t, err)

	verification, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, verification.Valid)
	assert.Equal(t, "unknown pass reference", verification.Reason)
}
