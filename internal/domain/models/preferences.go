package models

// UserPreferences holds per-user view settings.
type UserPreferences struct {
	ID             int64  `json:"id" db:"id"`
	UserID         int64  `json:"user_id" db:"user_id"`
	ViewMode       string `json:"view_mode" db:"view_mode"`             // "grid" or "list"
	VisibleColumns string `json:"visible_columns" db:"visible_columns"` // comma-separated
	SortKey        string `json:"sort_key" db:"sort_key"`
	SortDirection  string `json:"sort_direction" db:"sort_direction"` // "asc" or "desc"
	Theme          string `json:"theme" db:"theme"`                   // "light", "dark", "system"
}

// DefaultPreferences returns the defaults used when a user has no saved row.
func DefaultPreferences(userID int64) *UserPreferences {
	return &UserPreferences{
		UserID:         userID,
		ViewMode:       "grid",
		VisibleColumns: "name,size,date,uploader,status",
		SortKey:        "filename",
		SortDirection:  "asc",
		Theme:          "system",
	}
}

// UserPreferencesUpdate carries a partial preferences update.
// Nil fields are left unchanged.
type UserPreferencesUpdate struct {
	ViewMode       *string `json:"view_mode"`
	VisibleColumns *string `json:"visible_columns"`
	SortKey        *string `json:"sort_key"`
	SortDirection  *string `json:"sort_direction"`
	Theme          *string `json:"theme"`
}
