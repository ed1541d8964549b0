package apikeys

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("api key not found")
	ErrInvalidKey  = errors.New("invalid api key")
	ErrInvalidName = errors.New("invalid api key name")
)

type Repo interface {
	Insert(ctx context.Context, key Key) error
	ListByAccount(ctx context.Context, accountID string) ([]Key, error)
	GetByHash(ctx context.Context, hash string) (Key, error)
	// Revoke keeps the first revocation time; an unknown or foreign key is ErrNotFound.
	Revoke(ctx context.Context, accountID, id string, at time.Time) error
	Touch(ctx context.Context, id string, at time.Time) error
}
