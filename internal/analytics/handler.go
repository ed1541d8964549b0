package analytics

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
)

// MaxSpan bounds the range a single analytics request may cover.
const MaxSpan = 366 * 24 * time.Hour

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analytics", h.analytics)
}

func (h *Handler) analytics(c *gin.Context) {
	groupBy, err := ParseGroupBy(c.Query("groupBy"))
	if err != nil {
		respond.Validation(c, "groupBy", "invalid_value", "groupBy must be one of provider, model, user, day, hour")
		return
	}
	rng, err := daterange.Parse(c.Query("startDate"), c.Query("endDate"), daterange.Options{
		Now:     h.Svc.now(),
		MaxSpan: MaxSpan,
	})
	if err != nil {
		issue := "invalid_range"
		switch {
		case errors.Is(err, daterange.ErrRangeTooLong):
			issue = "range_too_long"
		case errors.Is(err, daterange.ErrInvalidDate):
			issue = "invalid_date"
		}
		respond.Validation(c, daterange.Field(err), issue, err.Error())
		return
	}

	res, err := h.Svc.Analyze(c.Request.Context(), Query{
		AccountID: middleware.AccountIDFromContext(c),
		Range:     rng,
		Provider:  c.Query("provider"),
		Model:     c.Query("model"),
		UserID:    c.Query("userId"),
		GroupBy:   groupBy,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute analytics", nil)
		return
	}
	respond.OK(c, res)
}
