package analytics

import "context"

// Store computes raw aggregates. Ordering and percentages are applied by Service.
type Store interface {
	Totals(ctx context.Context, q Query) (Totals, error)
	Groups(ctx context.Context, q Query, by GroupBy) ([]Group, error)
}
