package team

import "context"

type Repo interface {
	// Insert returns ErrConflict when the email is already on the team.
	Insert(ctx context.Context, m Member) error
	List(ctx context.Context, accountID string) ([]Member, error)
	Get(ctx context.Context, accountID, id string) (Member, error)
	Update(ctx context.Context, m Member) error
	Delete(ctx context.Context, accountID, id string) error
}
