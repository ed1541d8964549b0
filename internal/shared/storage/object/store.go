package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"usely-backend/internal/shared/util"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// AccountKey namespaces name under a hashed account directory.
func AccountKey(accountID string, name ...string) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", errors.New("account id is required")
	}
	parts := []string{util.HashAccountKey(accountID)}
	for _, n := range name {
		clean, err := util.SanitizeFileName(n)
		if err != nil {
			return "", err
		}
		parts = append(parts, clean)
	}
	return path.Join(parts...), nil
}
