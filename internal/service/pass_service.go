package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campuspass/leave-api/internal/dto"
	"github.com/campuspass/leave-api/internal/models"
	appErrors "github.com/campuspass/leave-api/pkg/errors"
	"github.com/campuspass/leave-api/pkg/export"
	"github.com/campuspass/leave-api/pkg/qr"
	"github.com/campuspass/leave-api/pkg/storage"
)

type passStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type passLeaveStore interface {
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
}

// PassService renders, stores, and verifies printable leave passes.
type PassService struct {
	leaves   passLeaveStore
	store    passStorage
	signer   *storage.PassSigner
	encoder  *qr.Encoder
	renderer *export.PassRenderer
	logger   *zap.Logger
}

// NewPassService constructs the pass service.
func NewPassService(leaves passLeaveStore, store passStorage, signer *storage.PassSigner, encoder *qr.Encoder, renderer *export.PassRenderer, logger *zap.Logger) *PassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PassService{
		leaves:   leaves,
		store:    store,
		signer:   signer,
		encoder:  encoder,
		renderer: renderer,
		logger:   logger,
	}
}

// IssuePass renders the QR-bearing PDF artifact for a terminal decision and
// returns the stored file reference. Both outcomes get an artifact; only
// approved ones verify as valid at the gate.
func (s *PassService) IssuePass(leave *models.LeaveRequest, student *models.User, outcome models.LeaveStatus) (string, error) {
	if leave == nil || student == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "leave and student required")
	}

	filename := fmt.Sprintf("%s.pdf", leave.ID)
	token, _, err := s.signer.Generate(leave.ID, filename)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to sign pass token")
	}

	now := time.Now().UTC()
	payload := dto.PassPayload{
		LeaveID:   leave.ID,
		StudentID: student.ID,
		StartDate: leave.StartDate.Format("2006-01-02"),
		EndDate:   leave.EndDate.Format("2006-01-02"),
		Status:    string(outcome),
		IssuedAt:  now,
		Token:     token,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode pass payload")
	}

	png, err := s.encoder.EncodePNG(string(payloadJSON))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to render pass qr")
	}

	doc := export.PassDocument{
		LeaveID:       leave.ID,
		StudentName:   student.FullName,
		LeaveType:     string(leave.LeaveType),
		Reason:        leave.Reason,
		StartDate:     leave.StartDate,
		EndDate:       leave.EndDate,
		Status:        string(outcome),
		ApprovedStamp: now,
		QRPNG:         png,
	}
	if student.RollNumber != nil {
		doc.RollNumber = *student.RollNumber
	}
	if student.Department != nil {
		doc.Department = *student.Department
	}
	if student.Year != nil {
		doc.Year = *student.Year
	}

	pdf, err := s.renderer.Render(doc)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to render pass pdf")
	}

	ref, err := s.store.Save(filename, pdf)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to store pass pdf")
	}
	return ref, nil
}

// Open returns a read handle for a stored pass file.
func (s *PassService) Open(passRef string) (*os.File, error) {
	file, err := s.store.Open(passRef)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pass file not found")
	}
	return file, nil
}

// Verify checks a scanned pass token against the stored request and returns
// the verification outcome. Invalid or expired tokens report valid=false
// rather than an error so gate scanners get a uniform payload.
func (s *PassService) Verify(ctx context.Context, token string) (*dto.PassVerification, error) {
	leaveID, _, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return &dto.PassVerification{Valid: false, Reason: "invalid or expired token"}, nil
	}

	leave, err := s.leaves.GetByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.PassVerification{Valid: false, Reason: "unknown pass reference"}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.Status != models.LeaveStatusApproved {
		return &dto.PassVerification{
			Valid:   false,
			LeaveID: leave.ID,
			Status:  string(leave.Status),
			Reason:  "request is not approved",
		}, nil
	}

	return &dto.PassVerification{
		Valid:     true,
		LeaveID:   leave.ID,
		StudentID: leave.StudentID,
		Status:    string(leave.Status),
		StartDate: leave.StartDate.Format("2006-01-02"),
		EndDate:   leave.EndDate.Format("2006-01-02"),
		ExpiresAt: expiresAt,
	}, nil
}
