package team

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, m Member) error {
	const query = `
INSERT INTO team_members (id, account_id, name, email, role, status, token_limit, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (account_id, email) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, m.ID, m.AccountID, m.Name, m.Email, m.Role, m.Status, m.TokenLimit, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

const memberColumns = `id, account_id, name, email, role, status, token_limit, created_at`

func (r *PGRepo) List(ctx context.Context, accountID string) ([]Member, error) {
	query := `SELECT ` + memberColumns + `
FROM team_members
WHERE account_id = $1
ORDER BY created_at ASC, email ASC`
	rows, err := r.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Name, &m.Email, &m.Role, &m.Status, &m.TokenLimit, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return out, nil
}

func (r *PGRepo) Get(ctx context.Context, accountID, id string) (Member, error) {
	query := `SELECT ` + memberColumns + `
FROM team_members
WHERE account_id = $1 AND id = $2`
	var m Member
	err := r.DB.QueryRowContext(ctx, query, accountID, id).Scan(&m.ID, &m.AccountID, &m.Name, &m.Email, &m.Role, &m.Status, &m.TokenLimit, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, fmt.Errorf("get team member: %w", err)
	}
	return m, nil
}

func (r *PGRepo) Update(ctx context.Context, m Member) error {
	const query = `
UPDATE team_members
SET name = $3, role = $4, status = $5, token_limit = $6
WHERE account_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, m.AccountID, m.ID, m.Name, m.Role, m.Status, m.TokenLimit)
	if err != nil {
		return fmt.Errorf("update team member: %w", err)
	}
	return requireRow(res, "update team member")
}

func (r *PGRepo) Delete(ctx context.Context, accountID, id string) error {
	const query = `DELETE FROM team_members WHERE account_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, accountID, id)
	if err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	return requireRow(res, "delete team member")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
