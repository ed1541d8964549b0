package apikeys

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
)

// Handler manages keys for the signed-in account. Routes run behind JWT auth.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/keys", h.list)
	rg.POST("/keys", h.create)
	rg.DELETE("/keys/:id", h.revoke)
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) list(c *gin.Context) {
	keys, err := h.Svc.List(c.Request.Context(), middleware.AccountIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list API keys", nil)
		return
	}
	respond.OK(c, gin.H{"data": keys})
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
	}
	created, err := h.Svc.Create(c.Request.Context(), middleware.AccountIDFromContext(c), req.Name)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			respond.Validation(c, "name", "too_long", "name must be at most 64 characters")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create API key", nil)
		return
	}
	respond.Created(c, created)
}

func (h *Handler) revoke(c *gin.Context) {
	err := h.Svc.Revoke(c.Request.Context(), middleware.AccountIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "API key not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to revoke API key", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
