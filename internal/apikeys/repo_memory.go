package apikeys

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	keys   map[string]Key
	byHash map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{keys: map[string]Key{}, byHash: map[string]string{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.ID] = key
	r.byHash[key.Hash] = key.ID
	return nil
}

func (r *MemoryRepo) ListByAccount(ctx context.Context, accountID string) ([]Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Key
	for _, k := range r.keys {
		if k.AccountID == accountID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) GetByHash(ctx context.Context, hash string) (Key, error) {
	if err := ctx.Err(); err != nil {
		return Key{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHash[hash]
	if !ok {
		return Key{}, ErrNotFound
	}
	return r.keys[id], nil
}

func (r *MemoryRepo) Revoke(ctx context.Context, accountID, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.AccountID != accountID {
		return ErrNotFound
	}
	if k.RevokedAt == nil {
		k.RevokedAt = &at
		r.keys[id] = k
	}
	return nil
}

func (r *MemoryRepo) Touch(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return ErrNotFound
	}
	k.LastUsedAt = &at
	r.keys[id] = k
	return nil
}
