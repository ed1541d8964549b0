package tracking

import "context"

type Repo interface {
	Insert(ctx context.Context, record Record) error
	List(ctx context.Context, q Query) ([]Record, error)
}
