package waitlist

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/respond"
)

// Handler exposes the public waitlist routes.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the waitlist routes. The join middlewares wrap only
// the signup POST so the landing page count stays outside its limit.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, join ...gin.HandlerFunc) {
	rg.GET("/waitlist/count", h.count)
	rg.POST("/waitlist", append(join, h.join)...)
}

type joinRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (h *Handler) count(c *gin.Context) {
	n, err := h.Svc.Count(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to count waitlist", nil)
		return
	}
	respond.OK(c, gin.H{"count": n})
}

func (h *Handler) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	position, err := h.Svc.Join(c.Request.Context(), req.Email, c.ClientIP(), req.Source)
	if err != nil {
		var tooSoon *TooSoonError
		switch {
		case errors.Is(err, ErrInvalidEmail):
			respond.Validation(c, "email", "invalid_format", "please provide a valid email address")
		case errors.Is(err, ErrAlreadyJoined):
			respond.Error(c, http.StatusTooManyRequests, "already_joined", "this email is already on the waitlist", nil)
		case errors.As(err, &tooSoon):
			secs := int64(math.Ceil(tooSoon.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.FormatInt(secs, 10))
			respond.Error(c, http.StatusTooManyRequests, "rate_limited", "a signup was already recorded from this network, try again later", gin.H{
				"retryAfterMs": tooSoon.RetryAfter.Milliseconds(),
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to join waitlist", nil)
		}
		return
	}
	respond.Created(c, gin.H{
		"message":  "You're on the list! We'll be in touch soon.",
		"position": position,
	})
}
