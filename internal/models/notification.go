package models

import "time"

// NotificationKind classifies how a notification renders client side.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification is a persisted in-app message for a single user.
type Notification struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	Kind           NotificationKind `db:"kind" json:"kind"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	RelatedLeaveID *string          `db:"related_leave_id" json:"related_leave_id,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains listing queries.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}
