package team

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	members map[string]Member
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{members: map[string]Member{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, m Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.AccountID == m.AccountID && existing.Email == m.Email {
			return ErrConflict
		}
	}
	r.members[m.ID] = m
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, accountID string) ([]Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Member
	for _, m := range r.members {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, accountID, id string) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok || m.AccountID != accountID {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) Update(ctx context.Context, m Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.members[m.ID]
	if !ok || existing.AccountID != m.AccountID {
		return ErrNotFound
	}
	r.members[m.ID] = m
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, accountID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok || m.AccountID != accountID {
		return ErrNotFound
	}
	delete(r.members, id)
	return nil
}
