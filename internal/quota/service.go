package quota

import (
	"context"
	"strings"
	"time"
)

type store interface {
	Get(ctx context.Context, accountID string) (Usage, error)
	EnsurePeriod(ctx context.Context, accountID string) (Usage, error)
	Consume(ctx context.Context, accountID string, n int64) (Usage, error)
	Reset(ctx context.Context, accountID string) (Usage, error)
	Release(ctx context.Context, accountID string, n int64) (Usage, error)
	SetPlan(ctx context.Context, accountID, plan string, limit int64) (Usage, error)
}

// Service manages quota windows via an underlying store.
type Service struct {
	store store
}

// NewService constructs a Service with in-memory store.
func NewService(now func() time.Time) *Service {
	return &Service{store: newMemoryStore(now)}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore *PGStore) *Service {
	return &Service{store: pgStore}
}

// Get returns the current usage for an account, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, accountID string) (Usage, error) {
	return s.store.Get(ctx, accountID)
}

// EnsurePeriod resets usage if the period has expired.
func (s *Service) EnsurePeriod(ctx context.Context, accountID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, accountID)
}

// CanConsume reports whether the account can consume n tokens.
func (s *Service) CanConsume(ctx context.Context, accountID string, n int64) (bool, Usage, error) {
	u, err := s.store.EnsurePeriod(ctx, accountID)
	if err != nil {
		return false, Usage{}, err
	}
	if n <= 0 || u.Limit == 0 {
		return true, u, nil
	}
	return n <= u.Limit-u.Used, u, nil
}

// Consume adds n tokens if within limit. Over limit it returns the unchanged
// usage together with ErrLimitReached.
func (s *Service) Consume(ctx context.Context, accountID string, n int64) (Usage, error) {
	return s.store.Consume(ctx, accountID, n)
}

// Release gives back n tokens consumed by a call that was not stored.
func (s *Service) Release(ctx context.Context, accountID string, n int64) (Usage, error) {
	return s.store.Release(ctx, accountID, n)
}

// Reset sets usage to zero and starts a new window.
func (s *Service) Reset(ctx context.Context, accountID string) (Usage, error) {
	return s.store.Reset(ctx, accountID)
}

// SetPlan changes the plan and limit, keeping Used and ResetsAt.
func (s *Service) SetPlan(ctx context.Context, accountID, plan string, limit int64) (Usage, error) {
	if limit < 0 {
		limit = 0
	}
	return s.store.SetPlan(ctx, accountID, strings.ToLower(strings.TrimSpace(plan)), limit)
}
