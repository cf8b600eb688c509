package domain

import (
	"errors"
	"time"
)

// Role is the user's role within a tenant.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
)

// User is a staff member operating a site's lockers.
type User struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	Phone        string // used for step-up OTP delivery
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if u.Role == "" {
		u.Role = RoleStaff
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
