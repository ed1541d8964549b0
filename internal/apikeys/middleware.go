package apikeys

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
)

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (Key, error)
}

// RequireAPIKey accepts "Authorization: Bearer usely_sk_..." or "X-API-Key".
func RequireAPIKey(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if raw == "" {
			if token, ok := middleware.BearerToken(c); ok {
				raw = token
			}
		}
		if raw == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}

		key, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, ErrInvalidKey) {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to verify API key", nil)
			return
		}
		middleware.SetAccount(c, key.AccountID, key.ID)
		c.Next()
	}
}
