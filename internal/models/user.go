package models

import "time"

// Role determines what an account is allowed to do.
type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusBanned  Status = "banned"
)

// UserRecord is a single account in the grid. Identity is the unique,
// case-normalized handle the user logs in with; it is the map key in
// PersistedStore.Users and is never reused while the record exists in
// any status.
type UserRecord struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	Status      Status    `json:"status"`
	// PasswordHash is the encoded argon2id digest, empty for accounts that
	// authenticate by identity alone. Never the raw secret.
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// Mutable role-play profile fields.
	Clearance  int    `json:"clearance"`
	Department string `json:"department"`
	Title      string `json:"title"`
}

// Profile is the externally visible projection of a UserRecord.
type Profile struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Clearance   int       `json:"clearance"`
	Department  string    `json:"department"`
	Title       string    `json:"title"`
}

// ProfilePatch carries partial profile updates; nil fields are untouched.
type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Clearance   *int    `json:"clearance,omitempty"`
	Department  *string `json:"department,omitempty"`
	Title       *string `json:"title,omitempty"`
}

// Profile returns the public view of the record.
func (u *UserRecord) Profile() Profile {
	return Profile{
		Identity:    u.Identity,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		Clearance:   u.Clearance,
		Department:  u.Department,
		Title:       u.Title,
	}
}
