package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/auth"
	"usely-backend/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	accountIDKey   = "accountId"
	apiKeyIDKey    = "apiKeyId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"
)

// Auth validates bearer JWTs issued by the identity provider and stores the
// identity in context. Every user owns exactly one account keyed by the user ID.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token, ok := BearerToken(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(accountIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		if name := claims.DisplayName(); name != "" {
			c.Set(userNameKey, name)
		}
		if picture := claims.AvatarURL(); picture != "" {
			c.Set(userPictureKey, picture)
		}
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	return token, token != ""
}

// SetAccount records the account resolved by a non-JWT credential such as an API key.
func SetAccount(c *gin.Context, accountID, apiKeyID string) {
	c.Set(accountIDKey, accountID)
	if apiKeyID != "" {
		c.Set(apiKeyIDKey, apiKeyID)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// AccountIDFromContext fetches the account ID set by either auth middleware.
func AccountIDFromContext(c *gin.Context) string {
	return stringFromContext(c, accountIDKey)
}

// APIKeyIDFromContext fetches the API key ID for SDK requests.
func APIKeyIDFromContext(c *gin.Context) string {
	return stringFromContext(c, apiKeyIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	return stringFromContext(c, userPictureKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
