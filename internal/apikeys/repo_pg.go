package apikeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, key Key) error {
	const query = `
INSERT INTO api_keys (id, account_id, name, prefix, key_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.DB.ExecContext(ctx, query, key.ID, key.AccountID, key.Name, key.Prefix, key.Hash, key.CreatedAt); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

const selectColumns = `id, account_id, name, prefix, key_hash, created_at, last_used_at, revoked_at`

func (r *PGRepo) ListByAccount(ctx context.Context, accountID string) ([]Key, error) {
	query := `SELECT ` + selectColumns + `
FROM api_keys
WHERE account_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return out, nil
}

func (r *PGRepo) GetByHash(ctx context.Context, hash string) (Key, error) {
	query := `SELECT ` + selectColumns + `
FROM api_keys
WHERE key_hash = $1
LIMIT 1`
	k, err := scanKey(r.DB.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Key{}, ErrNotFound
		}
		return Key{}, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func (r *PGRepo) Revoke(ctx context.Context, accountID, id string, at time.Time) error {
	const query = `
UPDATE api_keys
SET revoked_at = COALESCE(revoked_at, $3)
WHERE id = $1 AND account_id = $2`
	res, err := r.DB.ExecContext(ctx, query, id, accountID, at)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`
	if _, err := r.DB.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (Key, error) {
	var (
		k        Key
		lastUsed sql.NullTime
		revoked  sql.NullTime
	)
	if err := row.Scan(&k.ID, &k.AccountID, &k.Name, &k.Prefix, &k.Hash, &k.CreatedAt, &lastUsed, &revoked); err != nil {
		return Key{}, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsedAt = &t
	}
	if revoked.Valid {
		t := revoked.Time
		k.RevokedAt = &t
	}
	return k, nil
}
