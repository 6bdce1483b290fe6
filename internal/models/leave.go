package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stage identifies one approval step in the review chain.
type Stage string

const (
	StageMentor    Stage = "mentor"
	StageHOD       Stage = "hod"
	StagePrincipal Stage = "principal"
	StageWarden    Stage = "warden"
)

// LeaveStatus captures workflow states for leave requests.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// DecisionAction is the verdict an approver records at their stage.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// LeaveType enumerates supported leave categories.
type LeaveType string

const (
	LeaveTypeMedical   LeaveType = "medical"
	LeaveTypePersonal  LeaveType = "personal"
	LeaveTypeEmergency LeaveType = "emergency"
	LeaveTypeAcademic  LeaveType = "academic"
	LeaveTypeOther     LeaveType = "other"
)

// StageApproverRole maps a stage to the role that reviews it.
func StageApproverRole(stage Stage) (UserRole, error) {
	switch stage {
	case StageMentor:
		return RoleMentor, nil
	case StageHOD:
		return RoleHOD, nil
	case StagePrincipal:
		return RolePrincipal, nil
	case StageWarden:
		return RoleWarden, nil
	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}
}

// StageSequence is the ordered review chain fixed at submission time.
// It persists as comma-joined text so the chain a request was created
// with survives later policy changes.
type StageSequence []Stage

// ResolveStageSequence builds the chain for a student profile.
// Hostel residents get a trailing warden stage.
func ResolveStageSequence(hostelResident bool) StageSequence {
	seq := StageSequence{StageMentor, StageHOD, StagePrincipal}
	if hostelResident {
		seq = append(seq, StageWarden)
	}
	return seq
}

// First returns the entry stage of the chain.
func (s StageSequence) First() (Stage, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("empty stage sequence")
	}
	return s[0], nil
}

// Next returns the stage after current. terminal is true when current is
// the last stage of the chain.
func (s StageSequence) Next(current Stage) (next Stage, terminal bool, err error) {
	for i, stage := range s {
		if stage != current {
			continue
		}
		if i == len(s)-1 {
			return "", true, nil
		}
		return s[i+1], false, nil
	}
	return "", false, fmt.Errorf("stage %q not in sequence", current)
}

// Contains reports whether the chain includes the given stage.
func (s StageSequence) Contains(stage Stage) bool {
	for _, st := range s {
		if st == stage {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (s StageSequence) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}
	parts := make([]string, len(s))
	for i, stage := range s {
		parts[i] = string(stage)
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner.
func (s *StageSequence) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported stage sequence type %T", src)
	}
	if raw == "" {
		*s = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	seq := make(StageSequence, 0, len(parts))
	for _, part := range parts {
		seq = append(seq, Stage(strings.TrimSpace(part)))
	}
	*s = seq
	return nil
}

// Approval is one recorded verdict in a request's trail.
type Approval struct {
	Stage        Stage          `json:"stage"`
	ApproverID   string         `json:"approver_id"`
	ApproverName string         `json:"approver_name"`
	Action       DecisionAction `json:"action"`
	Comment      string         `json:"comment,omitempty"`
	At           time.Time      `json:"at"`
}

// ApprovalTrail is the append-only list of verdicts, stored as jsonb.
type ApprovalTrail []Approval

// Value implements driver.Valuer.
func (t ApprovalTrail) Value() (driver.Value, error) {
	if t == nil {
		t = ApprovalTrail{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *ApprovalTrail) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = ApprovalTrail{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported approval trail type %T", src)
	}
}

// StringSlice stores a list of strings as jsonb.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported string slice type %T", src)
	}
}

// LeaveRequest stores one student leave application and its review state.
type LeaveRequest struct {
	ID               string        `db:"id" json:"id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	LeaveType        LeaveType     `db:"leave_type" json:"leave_type"`
	Reason           string        `db:"reason" json:"reason"`
	StartDate        time.Time     `db:"start_date" json:"start_date"`
	EndDate          time.Time     `db:"end_date" json:"end_date"`
	EmergencyContact *string       `db:"emergency_contact" json:"emergency_contact,omitempty"`
	SupportingDocs   StringSlice   `db:"supporting_docs" json:"supporting_docs,omitempty"`
	Status           LeaveStatus   `db:"status" json:"status"`
	CurrentStage     *Stage        `db:"current_stage" json:"current_stage,omitempty"`
	StageSequence    StageSequence `db:"stage_sequence" json:"stage_sequence"`
	Approvals        ApprovalTrail `db:"approvals" json:"approvals"`
	FinalPassRef     *string       `db:"final_pass_ref" json:"final_pass_ref,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// Days returns the inclusive day span of the request, clamped to one day
// for display. Aggregate queries exclude inverted ranges instead.
func (l LeaveRequest) Days() int {
	days := int(l.EndDate.Sub(l.StartDate).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// LeaveFilter constrains listing queries.
type LeaveFilter struct {
	StudentID  string
	Status     []LeaveStatus
	Stage      Stage
	Department string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
