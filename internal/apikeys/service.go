package apikeys

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/shared/util"
)

const defaultName = "Default"

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create issues a new key. The plaintext is only available in the result.
func (s *Service) Create(ctx context.Context, accountID, name string) (Created, error) {
	if strings.TrimSpace(accountID) == "" {
		return Created{}, errors.New("account id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return Created{}, ErrInvalidName
	}

	secret, err := util.RandomHex(secretBytes)
	if err != nil {
		return Created{}, err
	}
	raw := KeyPrefix + secret
	key := Key{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      name,
		Prefix:    secret[:displayLength],
		Hash:      hashSecret(raw),
		CreatedAt: s.now(),
	}
	if err := s.Repo.Insert(ctx, key); err != nil {
		return Created{}, err
	}
	telemetry.Info("apikey.created", map[string]any{
		"account_id": accountID,
		"api_key_id": key.ID,
	})
	return Created{View: key.View(), Key: raw}, nil
}

func (s *Service) List(ctx context.Context, accountID string) ([]View, error) {
	keys, err := s.Repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.View())
	}
	return out, nil
}

func (s *Service) Revoke(ctx context.Context, accountID, id string) error {
	if err := s.Repo.Revoke(ctx, accountID, id, s.now()); err != nil {
		return err
	}
	telemetry.Info("apikey.revoked", map[string]any{
		"account_id": accountID,
		"api_key_id": id,
	})
	return nil
}

// Authenticate resolves a raw key. Unknown, malformed and revoked keys are ErrInvalidKey.
func (s *Service) Authenticate(ctx context.Context, raw string) (Key, error) {
	raw = strings.TrimSpace(raw)
	if !wellFormed(raw) {
		return Key{}, ErrInvalidKey
	}
	key, err := s.Repo.GetByHash(ctx, hashSecret(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Key{}, ErrInvalidKey
		}
		return Key{}, err
	}
	if key.Revoked() {
		return Key{}, ErrInvalidKey
	}
	now := s.now()
	if err := s.Repo.Touch(ctx, key.ID, now); err != nil {
		telemetry.Warn("apikey.touch_failed", map[string]any{
			"api_key_id": key.ID,
			"error":      err,
		})
	} else {
		key.LastUsedAt = &now
	}
	return key, nil
}
