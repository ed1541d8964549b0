package quota

import (
	"context"
	"math"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]Usage
	now  func() time.Time
}

func newMemoryStore(now func() time.Time) *memoryStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		data: make(map[string]Usage),
		now:  now,
	}
}

func (s *memoryStore) Get(ctx context.Context, accountID string) (Usage, error) {
	return s.EnsurePeriod(ctx, accountID)
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, accountID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(accountID), nil
}

func (s *memoryStore) ensureLocked(accountID string) Usage {
	now := s.now().UTC()
	u, ok := s.data[accountID]
	if !ok {
		u = defaultUsage(now)
	}
	u, _ = roll(u, now)
	s.data[accountID] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, accountID string, n int64) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, accountID)
	}
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(accountID)
	if (u.Limit > 0 && n > u.Limit-u.Used) || n > math.MaxInt64-u.Used {
		return u, ErrLimitReached
	}
	u.Used += n
	s.data[accountID] = u
	return u, nil
}

func (s *memoryStore) Release(ctx context.Context, accountID string, n int64) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, accountID)
	}
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(accountID)
	u.Used -= n
	if u.Used < 0 {
		u.Used = 0
	}
	s.data[accountID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, accountID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(accountID)
	u.Used = 0
	u.ResetsAt = nextReset(s.now())
	s.data[accountID] = u
	return u, nil
}

func (s *memoryStore) SetPlan(ctx context.Context, accountID, plan string, limit int64) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(accountID)
	u.Plan = plan
	u.Limit = limit
	s.data[accountID] = u
	return u, nil
}
