package webhooks

import (
	"context"
	"sort"
	"sync"
)

type Repo interface {
	Insert(ctx context.Context, e Endpoint) error
	ListByAccount(ctx context.Context, accountID string) ([]Endpoint, error)
	// Get loads an endpoint without an account filter; delivery workers use it.
	Get(ctx context.Context, id string) (Endpoint, error)
	Delete(ctx context.Context, accountID, id string) error
}

type MemoryRepo struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{endpoints: map[string]Endpoint{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, e Endpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Events = append([]string(nil), e.Events...)
	r.endpoints[e.ID] = e
	return nil
}

func (r *MemoryRepo) ListByAccount(ctx context.Context, accountID string) ([]Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Endpoint
	for _, e := range r.endpoints {
		if e.AccountID == accountID {
			e.Events = append([]string(nil), e.Events...)
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return Endpoint{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.endpoints[id]
	if !ok {
		return Endpoint{}, ErrNotFound
	}
	e.Events = append([]string(nil), e.Events...)
	return e, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, accountID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.endpoints[id]
	if !ok || e.AccountID != accountID {
		return ErrNotFound
	}
	delete(r.endpoints, id)
	return nil
}
