package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an email-identified account. Regular users log in with email only
// and are created on first login; the admin account is seeded from config
// with a password hash.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Password    string     `json:"-"`
	FullName    string     `json:"full_name,omitempty"`
	Role        Role       `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
