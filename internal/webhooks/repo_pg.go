package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, e Endpoint) error {
	events, err := json.Marshal(nonNil(e.Events))
	if err != nil {
		return fmt.Errorf("encode webhook events: %w", err)
	}
	const query = `
INSERT INTO webhook_endpoints (id, account_id, url, secret, events, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.DB.ExecContext(ctx, query, e.ID, e.AccountID, e.URL, e.Secret, events, e.Active, e.CreatedAt); err != nil {
		return fmt.Errorf("insert webhook endpoint: %w", err)
	}
	return nil
}

const endpointColumns = `id, account_id, url, secret, events, active, created_at`

func (r *PGRepo) ListByAccount(ctx context.Context, accountID string) ([]Endpoint, error) {
	query := `SELECT ` + endpointColumns + `
FROM webhook_endpoints
WHERE account_id = $1
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list webhook endpoints: %w", err)
	}
	defer rows.Close()

	var out []Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook endpoints: %w", err)
	}
	return out, nil
}

func (r *PGRepo) Get(ctx context.Context, id string) (Endpoint, error) {
	query := `SELECT ` + endpointColumns + `
FROM webhook_endpoints
WHERE id = $1`
	e, err := scanEndpoint(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Endpoint{}, ErrNotFound
		}
		return Endpoint{}, err
	}
	return e, nil
}

func (r *PGRepo) Delete(ctx context.Context, accountID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM webhook_endpoints WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("delete webhook endpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete webhook endpoint: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row rowScanner) (Endpoint, error) {
	var (
		e      Endpoint
		events []byte
	)
	if err := row.Scan(&e.ID, &e.AccountID, &e.URL, &e.Secret, &events, &e.Active, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Endpoint{}, err
		}
		return Endpoint{}, fmt.Errorf("scan webhook endpoint: %w", err)
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &e.Events); err != nil {
			return Endpoint{}, fmt.Errorf("decode webhook events: %w", err)
		}
	}
	return e, nil
}

func nonNil(events []string) []string {
	if events == nil {
		return []string{}
	}
	return events
}
