package billing

import "context"

type Repo interface {
	GetSubscription(ctx context.Context, accountID string) (Subscription, error)
	SaveSubscription(ctx context.Context, sub Subscription) error
	InsertTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)
}
