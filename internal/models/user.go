package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a local operator account
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email     string `json:"email" db:"email"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	PasswordHash string `json:"-" db:"password_hash"`

	// Role is a comma-separated role list, e.g. "owner,developer".
	Role     string `json:"role" db:"role"`
	IsActive bool   `json:"isActive" db:"is_active"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Settings Variables `json:"settings" db:"settings"`
}

// Roles splits the stored role string into individual roles
func (u *User) Roles() []string {
	if u.Role == "" {
		return nil
	}

	parts := strings.Split(u.Role, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if r := strings.TrimSpace(p); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// HasRole reports whether the user holds the given role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsOwner reports whether the user holds an owner-level role
func (u *User) IsOwner() bool {
	for _, r := range u.Roles() {
		if strings.Contains(r, "owner") {
			return true
		}
	}
	return false
}
