package billing

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	subs map[string]Subscription
	txs  map[string][]Transaction
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{subs: map[string]Subscription{}, txs: map[string][]Transaction{}}
}

func (r *MemoryRepo) GetSubscription(ctx context.Context, accountID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[accountID]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (r *MemoryRepo) SaveSubscription(ctx context.Context, sub Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.AccountID] = sub
	return nil
}

func (r *MemoryRepo) InsertTransaction(ctx context.Context, tx Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.AccountID] = append(r.txs[tx.AccountID], tx)
	return nil
}

func (r *MemoryRepo) ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := append([]Transaction(nil), r.txs[accountID]...)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
