package models

import "time"

// ActivityLog records one mutating operation for the audit trail.
type ActivityLog struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Details   string    `json:"details" db:"details"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Username  string    `json:"username,omitempty" db:"-"` // joined for display, not stored
}
