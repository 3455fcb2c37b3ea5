package models

// User represents an account in the organization.
type User struct {
	ID             int64  `json:"id" db:"id"`
	Username       string `json:"username" db:"username"`
	HashedPassword string `json:"-" db:"hashed_password"`
	IsAdmin        bool   `json:"is_admin" db:"is_admin"`
}

// Identity is the authenticated-caller fact supplied by the auth middleware.
// The core never authenticates, it only authorizes using this.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// UserUpdate carries a partial update for a user record.
// Nil fields are left unchanged.
type UserUpdate struct {
	Username *string `json:"username"`
	IsAdmin  *bool   `json:"is_admin"`
}
