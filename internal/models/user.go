package models

import (
	"time"
)

// UserRole distinguishes customers from support agents
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAgent    UserRole = "agent"
)

// UserPlan represents the subscription tier of a user
type UserPlan string

const (
	PlanFree UserPlan = "free"
	PlanPro  UserPlan = "pro"
)

// User represents an identified person: a customer opening tickets or an
// agent working them. Users are never hard-deleted in normal operation;
// tickets hold weak references that are repaired by the integrity service.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      UserRole  `json:"role" db:"role"`
	Plan      UserPlan  `json:"plan" db:"plan"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAgent reports whether the user may perform agent-only operations.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == RoleAgent
}
