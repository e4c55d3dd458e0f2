package models

import "time"

// APIToken is an opaque bearer credential for the CFDI endpoints. The value
// is generated server-side and stored as-is; possession is the whole proof.
type APIToken struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	UserID      *int64     `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SuperAdmin can manage tokens and other admins through the admin API.
// Passwords are stored as bcrypt hashes only.
type SuperAdmin struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	HashedPassword string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// User is the principal verification history is attributed to. Tokens not yet
// tied to a user are lazily associated with the default user on first use.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
