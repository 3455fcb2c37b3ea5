package models

import "time"

// Notification types written by the system.
const (
	NotificationTaskAssigned = "task_assigned"
	NotificationTaskDue      = "task_due"
	NotificationFileUpdate   = "file_update"
	NotificationSystem       = "system"
)

// Notification is an in-app notification for one user.
type Notification struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Title         string    `json:"title" db:"title"`
	Message       string    `json:"message" db:"message"`
	Type          string    `json:"type" db:"type"`
	IsRead        bool      `json:"is_read" db:"is_read"`
	IsUrgent      bool      `json:"is_urgent" db:"is_urgent"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	RelatedFileID *int64    `json:"related_file_id" db:"related_file_id"`
}
