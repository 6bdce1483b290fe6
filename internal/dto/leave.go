package dto

import (
	"time"

	"github.com/campuspass/leave-api/internal/models"
)

// CreateLeaveRequest payload for submitting a new leave application.
type CreateLeaveRequest struct {
	LeaveType        models.LeaveType `json:"leave_type" validate:"required,oneof=medical personal emergency academic other"`
	Reason           string           `json:"reason" validate:"required,min=5,max=1000"`
	StartDate        string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	EmergencyContact string           `json:"emergency_contact,omitempty" validate:"omitempty,max=64"`
	SupportingDocs   []string         `json:"supporting_docs,omitempty" validate:"omitempty,max=10,dive,max=512"`
}

// DecisionRequest captures an approver's verdict at their stage.
type DecisionRequest struct {
	Action  models.DecisionAction `json:"action" validate:"required,oneof=approve reject"`
	Comment string                `json:"comment,omitempty" validate:"omitempty,max=500"`
}

// LeaveQuery mirrors supported listing filters.
type LeaveQuery struct {
	Status []models.LeaveStatus
	Stage  models.Stage
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// StageCount pairs a stage with its pending request count.
type StageCount struct {
	Stage models.Stage `json:"stage"`
	Count int          `json:"count"`
}

// LeaveStats aggregates a student's leave history.
type LeaveStats struct {
	Total    int            `json:"total"`
	Pending  int            `json:"pending"`
	Approved int            `json:"approved"`
	Rejected int            `json:"rejected"`
	DaysUsed int            `json:"days_used"`
	ByType   map[string]int `json:"by_type"`
}

// WorkflowStats aggregates system-wide workflow load for admins.
type WorkflowStats struct {
	TotalRequests  int          `json:"total_requests"`
	Pending        int          `json:"pending"`
	Approved       int          `json:"approved"`
	Rejected       int          `json:"rejected"`
	PendingByStage []StageCount `json:"pending_by_stage"`
}

// PassPayload is the JSON embedded in a pass QR code.
type PassPayload struct {
	LeaveID   string    `json:"leave_id"`
	StudentID string    `json:"student_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
	IssuedAt  time.Time `json:"issued_at"`
	Token     string    `json:"token"`
}

// PassVerification is returned by the pass verify endpoint.
type PassVerification struct {
	Valid     bool      `json:"valid"`
	LeaveID   string    `json:"leave_id,omitempty"`
	StudentID string    `json:"student_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}
