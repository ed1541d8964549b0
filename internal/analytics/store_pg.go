package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"usely-backend/internal/tracking"
)

// PGStore aggregates with SQL over usage_records.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) Totals(ctx context.Context, q Query) (Totals, error) {
	where, args := tracking.WhereClause(trackingQuery(q))
	query := `
SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost), 0)
FROM usage_records
WHERE ` + where
	var t Totals
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&t.Requests, &t.InputTokens, &t.OutputTokens, &t.Cost); err != nil {
		return Totals{}, fmt.Errorf("usage totals: %w", err)
	}
	return t, nil
}

func (s *PGStore) Groups(ctx context.Context, q Query, by GroupBy) ([]Group, error) {
	keyExpr, err := groupExpr(by)
	if err != nil {
		return nil, err
	}
	where, args := tracking.WhereClause(trackingQuery(q))
	query := `
SELECT ` + keyExpr + ` AS group_key,
       COUNT(*),
       COALESCE(SUM(input_tokens), 0),
       COALESCE(SUM(output_tokens), 0),
       COALESCE(SUM(cost), 0)
FROM usage_records
WHERE ` + where + `
GROUP BY group_key`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("usage breakdown: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Key, &g.Requests, &g.InputTokens, &g.OutputTokens, &g.Cost); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakdown: %w", err)
	}
	return out, nil
}

// groupExpr renders the same keys as groupKey in the memory store.
func groupExpr(by GroupBy) (string, error) {
	switch by {
	case GroupByProvider:
		return "provider", nil
	case GroupByModel:
		return "model", nil
	case GroupByUser:
		return "COALESCE(NULLIF(end_user_id, ''), '" + AnonymousUser + "')", nil
	case GroupByDay:
		return `to_char(occurred_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')`, nil
	case GroupByHour:
		return `to_char(date_trunc('hour', occurred_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD"T"HH24":00:00Z"')`, nil
	default:
		return "", ErrInvalidGroupBy
	}
}
