package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, record Record) error {
	metadata, err := encodeMetadata(record.Metadata)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO usage_records (id, account_id, api_key_id, provider, model, input_tokens, output_tokens, cost, end_user_id, metadata, occurred_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.DB.ExecContext(ctx, query,
		record.ID,
		record.AccountID,
		record.APIKeyID,
		record.Provider,
		record.Model,
		record.Tokens.Input,
		record.Tokens.Output,
		record.Cost,
		record.UserID,
		metadata,
		record.Timestamp,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Record, error) {
	where, args := WhereClause(q)
	query := `
SELECT id, account_id, api_key_id, provider, model, input_tokens, output_tokens, cost, end_user_id, metadata, occurred_at, created_at
FROM usage_records
WHERE ` + where + `
ORDER BY occurred_at DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var metadata []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.AccountID,
			&rec.APIKeyID,
			&rec.Provider,
			&rec.Model,
			&rec.Tokens.Input,
			&rec.Tokens.Output,
			&rec.Cost,
			&rec.UserID,
			&metadata,
			&rec.Timestamp,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		if len(metadata) > 0 && string(metadata) != "{}" && string(metadata) != "null" {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage records: %w", err)
	}
	return out, nil
}

// WhereClause renders the filters of q as SQL over usage_records with positional args.
func WhereClause(q Query) (string, []any) {
	conds := []string{"account_id = $1"}
	args := []any{q.AccountID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if !q.Start.IsZero() {
		add("occurred_at >= ?", q.Start)
	}
	if !q.End.IsZero() {
		add("occurred_at < ?", q.End)
	}
	if q.Provider != "" {
		add("provider = ?", q.Provider)
	}
	if q.Model != "" {
		add("model = ?", q.Model)
	}
	if q.UserID != "" {
		add("end_user_id = ?", q.UserID)
	}
	return strings.Join(conds, " AND "), args
}

func encodeMetadata(md map[string]any) ([]byte, error) {
	if len(md) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}
