package team

import (
	"errors"
	"fmt"
	"time"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"

	StatusActive    = "active"
	StatusInvited   = "invited"
	StatusSuspended = "suspended"
)

var (
	ErrNotFound       = errors.New("team member not found")
	ErrConflict       = errors.New("team member already exists")
	ErrSeatLimit      = errors.New("seat limit reached for plan")
	ErrOwnerImmutable = errors.New("the account owner cannot be changed")
)

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field string
	Issue string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Issue)
}

func invalid(field, issue string) error {
	return &ValidationError{Field: field, Issue: issue}
}

// Member is a stored team seat. The owner is never stored.
type Member struct {
	ID         string
	AccountID  string
	Name       string
	Email      string
	Role       string
	Status     string
	TokenLimit int64
	CreatedAt  time.Time
}

// View is a member with usage for the current quota period.
type View struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Usage     int64     `json:"usage"`
	Limit     int64     `json:"limit"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m Member) view(usage int64) View {
	return View{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      m.Role,
		Status:    m.Status,
		Usage:     usage,
		Limit:     m.TokenLimit,
		CreatedAt: m.CreatedAt,
	}
}

// Owner identifies the signed-in account owner.
type Owner struct {
	UserID string
	Email  string
	Name   string
}

type InviteInput struct {
	Name       string
	Email      string
	Role       string
	TokenLimit int64
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Role       *string
	Status     *string
	TokenLimit *int64
}

func occupiesSeat(status string) bool {
	return status == StatusActive || status == StatusInvited
}
