package quota

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
)

// Handler exposes quota endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches quota routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quota", h.getQuota)
}

// RegisterDevRoutes attaches dev-only quota routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/quota/reset", h.resetQuota)
}

// View is the JSON shape shared with the dashboard.
func View(u Usage) gin.H {
	return gin.H{
		"plan":        u.Plan,
		"limit":       u.Limit,
		"used":        u.Used,
		"remaining":   u.Remaining(),
		"percentUsed": u.PercentUsed(),
		"resetsAt":    u.ResetsAt,
	}
}

func (h *Handler) getQuota(c *gin.Context) {
	accountID := middleware.AccountIDFromContext(c)
	u, err := h.Svc.EnsurePeriod(c.Request.Context(), accountID)
	if err != nil {
		respondStoreError(c, err, "failed to fetch quota")
		return
	}
	respond.OK(c, View(u))
}

func (h *Handler) resetQuota(c *gin.Context) {
	accountID := middleware.AccountIDFromContext(c)
	u, err := h.Svc.Reset(c.Request.Context(), accountID)
	if err != nil {
		respondStoreError(c, err, "failed to reset quota")
		return
	}
	respond.OK(c, View(u))
}

func respondStoreError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
