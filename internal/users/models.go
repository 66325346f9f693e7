package users

import (
	"time"

	"github.com/google/uuid"

	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

// User is any account on the platform: staff, client or freelancer.
// Balance is a running total mutated only by payment settlement and the
// assignment fee path.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Balance      float64   `json:"balance" db:"balance"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsPrivileged reports whether the role bypasses the message approval gate.
func IsPrivileged(role string) bool {
	return role == workflows.RoleAdmin || role == workflows.RoleManager
}

// IsStaff reports whether the role belongs to platform staff.
func IsStaff(role string) bool {
	return role == workflows.RoleAdmin || role == workflows.RoleManager || role == workflows.RoleEditor
}
