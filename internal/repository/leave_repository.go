package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspass/leave-api/internal/models"
)

const leaveColumns = `id, student_id, leave_type, reason, start_date, end_date, emergency_contact, supporting_docs,
       status, current_stage, stage_sequence, approvals, final_pass_ref, created_at, updated_at`

// LeaveRepository persists leave request workflow data.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a new leave request row.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now
	if leave.Approvals == nil {
		leave.Approvals = models.ApprovalTrail{}
	}
	const query = `INSERT INTO leave_requests
	(id, student_id, leave_type, reason, start_date, end_date, emergency_contact, supporting_docs, status, current_stage, stage_sequence, approvals, final_pass_ref, created_at, updated_at)
	VALUES (:id, :student_id, :leave_type, :reason, :start_date, :end_date, :emergency_contact, :supporting_docs, :status, :current_stage, :stage_sequence, :approvals, :final_pass_ref, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// GetByID fetches a leave request by identifier.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// HasPendingForStudent reports whether the student already has an open request.
func (r *LeaveRepository) HasPendingForStudent(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM leave_requests WHERE student_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.LeaveStatusPending); err != nil {
		return false, fmt.Errorf("check pending leave: %w", err)
	}
	return exists, nil
}

// ListByStudent returns a student's requests sorted latest first.
func (r *LeaveRepository) ListByStudent(ctx context.Context, studentID string, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	filter.StudentID = studentID
	return r.List(ctx, filter)
}

// List returns leave requests matching the filter (sorted latest first).
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + leaveColumns + ` FROM leave_requests`)

	conditions := make([]string, 0, 4)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Stage != "" {
		args = append(args, filter.Stage)
		conditions = append(conditions, fmt.Sprintf("current_stage = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return leaves, nil
}

// ListPendingAtStage returns pending requests sitting at the given stage.
// Mentor and HOD queues are scoped to the reviewer's department via the
// students table join; principal and warden queues see every department.
func (r *LeaveRepository) ListPendingAtStage(ctx context.Context, stage models.Stage, department string, limit, offset int) ([]models.LeaveRequest, error) {
	builder := strings.Builder{}
	args := []interface{}{models.LeaveStatusPending, stage}
	builder.WriteString(`SELECT lr.id, lr.student_id, lr.leave_type, lr.reason, lr.start_date, lr.end_date, lr.emergency_contact, lr.supporting_docs,
       lr.status, lr.current_stage, lr.stage_sequence, lr.approvals, lr.final_pass_ref, lr.created_at, lr.updated_at
	FROM leave_requests lr
	JOIN users u ON u.id = lr.student_id
	WHERE lr.status = $1 AND lr.current_stage = $2`)
	if department != "" {
		args = append(args, department)
		builder.WriteString(fmt.Sprintf(" AND u.department = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY lr.created_at ASC")

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list stage queue: %w", err)
	}
	return leaves, nil
}

// UpdateDecisionParams groups mutable columns for decision operations.
type UpdateDecisionParams struct {
	ID            string
	ExpectedStage models.Stage
	Status        models.LeaveStatus
	NextStage     *models.Stage
	Approvals     models.ApprovalTrail
	FinalPassRef  *string
	UpdatedAt     time.Time
}

// ApplyDecision advances or terminates a pending request. The update only
// lands when the row is still pending at the stage the caller saw, so of
// two racing decisions exactly one reaches the database.
func (r *LeaveRepository) ApplyDecision(ctx context.Context, params UpdateDecisionParams) error {
	setParts := []string{
		"status = :status",
		"current_stage = :current_stage",
		"approvals = :approvals",
		"updated_at = :updated_at",
	}
	if params.FinalPassRef != nil {
		setParts = append(setParts, "final_pass_ref = :final_pass_ref")
	}
	query := fmt.Sprintf("UPDATE leave_requests SET %s WHERE id = :id AND status = '%s' AND current_stage = :expected_stage",
		strings.Join(setParts, ", "),
		models.LeaveStatusPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":             params.ID,
		"status":         params.Status,
		"current_stage":  params.NextStage,
		"expected_stage": params.ExpectedStage,
		"approvals":      params.Approvals,
		"final_pass_ref": params.FinalPassRef,
		"updated_at":     params.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("apply leave decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check leave decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StatusCountsForStudent returns per-status totals for one student.
func (r *LeaveRepository) StatusCountsForStudent(ctx context.Context, studentID string) (map[models.LeaveStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM leave_requests WHERE student_id = $1 GROUP BY status`
	rows := []struct {
		Status models.LeaveStatus `db:"status"`
		Count  int                `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("count leave statuses: %w", err)
	}
	counts := make(map[models.LeaveStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// TypeCountsForStudent returns per-type totals for one student.
func (r *LeaveRepository) TypeCountsForStudent(ctx context.Context, studentID string) (map[models.LeaveType]int, error) {
	const query = `SELECT leave_type, COUNT(*) AS count FROM leave_requests WHERE student_id = $1 GROUP BY leave_type`
	rows := []struct {
		LeaveType models.LeaveType `db:"leave_type"`
		Count     int              `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("count leave types: %w", err)
	}
	counts := make(map[models.LeaveType]int, len(rows))
	for _, row := range rows {
		counts[row.LeaveType] = row.Count
	}
	return counts, nil
}

// DaysUsedForStudent sums inclusive day spans of approved requests. Rows
// with inverted date ranges are excluded from the total.
func (r *LeaveRepository) DaysUsedForStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(end_date::date - start_date::date + 1), 0) FROM leave_requests WHERE student_id = $1 AND status = $2 AND end_date >= start_date`
	var days int
	if err := r.db.GetContext(ctx, &days, query, studentID, models.LeaveStatusApproved); err != nil {
		return 0, fmt.Errorf("sum approved leave days: %w", err)
	}
	return days, nil
}

// StatusCounts returns system-wide per-status totals.
func (r *LeaveRepository) StatusCounts(ctx context.Context) (map[models.LeaveStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM leave_requests GROUP BY status`
	rows := []struct {
		Status models.LeaveStatus `db:"status"`
		Count  int                `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count leave statuses: %w", err)
	}
	counts := make(map[models.LeaveStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// PendingCountsByStage returns how many pending requests sit at each stage.
func (r *LeaveRepository) PendingCountsByStage(ctx context.Context) (map[models.Stage]int, error) {
	const query = `SELECT current_stage, COUNT(*) AS count FROM leave_requests WHERE status = $1 GROUP BY current_stage`
	rows := []struct {
		Stage models.Stage `db:"current_stage"`
		Count int          `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, models.LeaveStatusPending); err != nil {
		return nil, fmt.Errorf("count pending stages: %w", err)
	}
	counts := make(map[models.Stage]int, len(rows))
	for _, row := range rows {
		counts[row.Stage] = row.Count
	}
	return counts, nil
}
