package webhooks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/webhooks", h.list)
	rg.POST("/webhooks", h.create)
	rg.DELETE("/webhooks/:id", h.remove)
	rg.POST("/webhooks/:id/test", h.test)
}

type createRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (h *Handler) list(c *gin.Context) {
	endpoints, err := h.Svc.List(c.Request.Context(), middleware.AccountIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list webhooks", nil)
		return
	}
	respond.OK(c, gin.H{"data": endpoints, "events": Events})
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	created, err := h.Svc.Create(c.Request.Context(), middleware.AccountIDFromContext(c), req.URL, req.Events)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Validation(c, verr.Field, verr.Issue, "invalid webhook endpoint")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create webhook", nil)
		return
	}
	respond.Created(c, created)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.AccountIDFromContext(c), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "webhook not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete webhook", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) test(c *gin.Context) {
	deliveryID, err := h.Svc.SendTest(c.Request.Context(), middleware.AccountIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "webhook not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to send test event", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"deliveryId": deliveryID})
}
