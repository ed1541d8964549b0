package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// PGStore keeps quota windows in the quota_windows table. Every mutation
// locks the account row so concurrent API instances serialize per account.
type PGStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewPGStore constructs a Postgres-backed quota store.
func NewPGStore(db *sql.DB, now func() time.Time) *PGStore {
	if now == nil {
		now = time.Now
	}
	return &PGStore{DB: db, now: now}
}

func (s *PGStore) Get(ctx context.Context, accountID string) (Usage, error) {
	return s.EnsurePeriod(ctx, accountID)
}

func (s *PGStore) EnsurePeriod(ctx context.Context, accountID string) (Usage, error) {
	return s.withLocked(ctx, accountID, func(tx *sql.Tx, u Usage) (Usage, error) {
		return u, nil
	})
}

func (s *PGStore) Consume(ctx context.Context, accountID string, n int64) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, accountID)
	}
	var over Usage
	u, err := s.withLocked(ctx, accountID, func(tx *sql.Tx, u Usage) (Usage, error) {
		if (u.Limit > 0 && n > u.Limit-u.Used) || n > math.MaxInt64-u.Used {
			over = u
			return Usage{}, ErrLimitReached
		}
		u.Used += n
		if _, err := tx.ExecContext(ctx, `
UPDATE quota_windows SET used = $1 WHERE account_id = $2`, u.Used, accountID); err != nil {
			return Usage{}, fmt.Errorf("update quota: %w", err)
		}
		return u, nil
	})
	if errors.Is(err, ErrLimitReached) {
		return over, err
	}
	return u, err
}

func (s *PGStore) Release(ctx context.Context, accountID string, n int64) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, accountID)
	}
	return s.withLocked(ctx, accountID, func(tx *sql.Tx, u Usage) (Usage, error) {
		u.Used -= n
		if u.Used < 0 {
			u.Used = 0
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE quota_windows SET used = $1 WHERE account_id = $2`, u.Used, accountID); err != nil {
			return Usage{}, fmt.Errorf("release quota: %w", err)
		}
		return u, nil
	})
}

func (s *PGStore) Reset(ctx context.Context, accountID string) (Usage, error) {
	return s.withLocked(ctx, accountID, func(tx *sql.Tx, u Usage) (Usage, error) {
		u.Used = 0
		u.ResetsAt = nextReset(s.now())
		if _, err := tx.ExecContext(ctx, `
UPDATE quota_windows SET used = 0, resets_at = $1 WHERE account_id = $2`, u.ResetsAt, accountID); err != nil {
			return Usage{}, fmt.Errorf("reset quota: %w", err)
		}
		return u, nil
	})
}

func (s *PGStore) SetPlan(ctx context.Context, accountID, plan string, limit int64) (Usage, error) {
	return s.withLocked(ctx, accountID, func(tx *sql.Tx, u Usage) (Usage, error) {
		u.Plan = plan
		u.Limit = limit
		if _, err := tx.ExecContext(ctx, `
UPDATE quota_windows SET plan = $1, token_limit = $2 WHERE account_id = $3`, plan, limit, accountID); err != nil {
			return Usage{}, fmt.Errorf("set plan: %w", err)
		}
		return u, nil
	})
}

func (s *PGStore) withLocked(ctx context.Context, accountID string, fn func(tx *sql.Tx, u Usage) (Usage, error)) (Usage, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, fmt.Errorf("begin quota tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err := s.lockAndEnsure(ctx, tx, accountID)
	if err != nil {
		return Usage{}, err
	}
	u, err = fn(tx, u)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, fmt.Errorf("commit quota tx: %w", err)
	}
	return u, nil
}

func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, accountID string) (Usage, error) {
	now := s.now().UTC()
	def := defaultUsage(now)
	// Create the row first so the FOR UPDATE below always has a row to lock.
	if _, err := tx.ExecContext(ctx, `
INSERT INTO quota_windows (account_id, plan, token_limit, used, resets_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (account_id) DO NOTHING`,
		accountID, def.Plan, def.Limit, def.Used, def.ResetsAt); err != nil {
		return Usage{}, fmt.Errorf("insert quota: %w", err)
	}

	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, token_limit, used, resets_at FROM quota_windows WHERE account_id = $1 FOR UPDATE`, accountID)
	if err := row.Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt); err != nil {
		return Usage{}, fmt.Errorf("select quota: %w", err)
	}

	if rolled, ok := roll(u, now); ok {
		u = rolled
		if _, err := tx.ExecContext(ctx, `UPDATE quota_windows SET used = $1, resets_at = $2 WHERE account_id = $3`, u.Used, u.ResetsAt, accountID); err != nil {
			return Usage{}, fmt.Errorf("roll quota: %w", err)
		}
	}
	return u, nil
}
