package users

import (
	"context"
	"errors"
	"strings"

	"usely-backend/internal/shared/util"
)

var errNotConfigured = errors.New("users service not configured")

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the identity from a verified token or OAuth callback.
// Blank profile fields keep their stored values.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errNotConfigured
	}
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return errors.New("user id is required")
	}
	user.Email = util.NormalizeEmail(user.Email)
	user.FullName = strings.TrimSpace(user.FullName)
	user.PictureURL = strings.TrimSpace(user.PictureURL)
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}
