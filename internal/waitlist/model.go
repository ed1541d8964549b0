package waitlist

import (
	"errors"
	"time"

	"usely-backend/internal/shared/util"
)

const (
	DefaultSource   = "landing"
	maxSourceLength = 64
	// CooldownWindow is how long a client key must wait between signups.
	CooldownWindow = 24 * time.Hour
)

var (
	ErrInvalidEmail  = errors.New("invalid email")
	ErrAlreadyJoined = errors.New("email already on the waitlist")
	ErrTooSoon       = errors.New("signup already recorded from this client")
)

// TooSoonError carries how long the client must wait.
type TooSoonError struct {
	RetryAfter time.Duration
}

func (e *TooSoonError) Error() string {
	return ErrTooSoon.Error()
}

func (e *TooSoonError) Is(target error) bool {
	return target == ErrTooSoon
}

type Entry struct {
	ID        string
	Email     string
	Source    string
	ClientKey string
	CreatedAt time.Time
}

// ValidEmail reports whether s is acceptable for the waitlist.
func ValidEmail(s string) bool {
	return util.ValidEmail(s)
}
