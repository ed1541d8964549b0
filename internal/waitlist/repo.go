package waitlist

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

type Repo interface {
	// Insert returns ErrAlreadyJoined when the email is already present.
	Insert(ctx context.Context, e Entry) error
	Count(ctx context.Context) (int64, error)
}

type MemoryRepo struct {
	mu      sync.RWMutex
	byEmail map[string]Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byEmail: map[string]Entry{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[e.Email]; ok {
		return ErrAlreadyJoined
	}
	r.byEmail[e.Email] = e
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byEmail)), nil
}

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, e Entry) error {
	const query = `
INSERT INTO waitlist_entries (id, email, source, client_key, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, e.ID, e.Email, e.Source, e.ClientKey, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	if n == 0 {
		return ErrAlreadyJoined
	}
	return nil
}

func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return n, nil
}
