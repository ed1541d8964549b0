package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) GetSubscription(ctx context.Context, accountID string) (Subscription, error) {
	const query = `
SELECT account_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, updated_at
FROM subscriptions
WHERE account_id = $1`
	var sub Subscription
	err := r.DB.QueryRowContext(ctx, query, accountID).Scan(
		&sub.AccountID,
		&sub.PlanID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (r *PGRepo) SaveSubscription(ctx context.Context, sub Subscription) error {
	const query = `
INSERT INTO subscriptions (account_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (account_id) DO UPDATE SET
  plan_id = EXCLUDED.plan_id,
  status = EXCLUDED.status,
  current_period_start = EXCLUDED.current_period_start,
  current_period_end = EXCLUDED.current_period_end,
  cancel_at_period_end = EXCLUDED.cancel_at_period_end,
  updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		sub.AccountID,
		sub.PlanID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *PGRepo) InsertTransaction(ctx context.Context, tx Transaction) error {
	const query = `
INSERT INTO transactions (id, account_id, kind, description, amount, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query, tx.ID, tx.AccountID, tx.Kind, tx.Description, tx.Amount, tx.Currency, tx.Status, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *PGRepo) ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	const query = `
SELECT id, account_id, kind, description, amount, currency, status, created_at
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Kind, &tx.Description, &tx.Amount, &tx.Currency, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
