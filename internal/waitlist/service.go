package waitlist

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"usely-backend/internal/shared/metrics"
	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/shared/util"
)

type Service struct {
	Repo  Repo
	Guard Guard
	Now   func() time.Time
}

func NewService(repo Repo, guard Guard) *Service {
	return &Service{Repo: repo, Guard: guard, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Join adds email to the waitlist and returns its position.
func (s *Service) Join(ctx context.Context, email, clientKey, source string) (int64, error) {
	if !ValidEmail(email) {
		return 0, ErrInvalidEmail
	}
	email = util.NormalizeEmail(email)
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSource
	}
	if utf8.RuneCountInString(source) > maxSourceLength {
		source = string([]rune(source)[:maxSourceLength])
	}

	if s.Guard != nil && clientKey != "" {
		wait, err := s.Guard.Check(ctx, clientKey)
		if err != nil {
			// A broken guard must not block signups.
			telemetry.Warn("waitlist.guard_check_failed", map[string]any{"error": err})
		} else if wait > 0 {
			return 0, &TooSoonError{RetryAfter: wait}
		}
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Email:     email,
		Source:    source,
		ClientKey: clientKey,
		CreatedAt: s.now(),
	}
	if err := s.Repo.Insert(ctx, entry); err != nil {
		return 0, err
	}

	if s.Guard != nil && clientKey != "" {
		if err := s.Guard.Mark(ctx, clientKey); err != nil {
			telemetry.Warn("waitlist.guard_mark_failed", map[string]any{"error": err})
		}
	}
	metrics.IncWaitlistSignup()
	telemetry.Info("waitlist.joined", map[string]any{
		"entry_id": entry.ID,
		"source":   source,
	})
	return s.Repo.Count(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.Repo.Count(ctx)
}
