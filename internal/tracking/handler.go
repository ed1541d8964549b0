package tracking

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/quota"
	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
)

const maxBodyBytes = 64 << 10

// Handler exposes the SDK tracking endpoints. Routes must run behind API key auth.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/track", h.track)
}

// RegisterListRoutes attaches the raw record listing.
func (h *Handler) RegisterListRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.list)
}

type trackRequest struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Tokens    Tokens         `json:"tokens"`
	Cost      *float64       `json:"cost"`
	UserID    string         `json:"userId"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp *time.Time     `json:"timestamp"`
}

type trackResponse struct {
	ID    string `json:"id"`
	Usage View   `json:"usage"`
}

func (h *Handler) track(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	accountID := middleware.AccountIDFromContext(c)
	rec, err := h.Svc.Track(c.Request.Context(), accountID, Input{
		Provider:  req.Provider,
		Model:     req.Model,
		Tokens:    req.Tokens,
		Cost:      req.Cost,
		UserID:    req.UserID,
		Metadata:  req.Metadata,
		Timestamp: req.Timestamp,
		APIKeyID:  middleware.APIKeyIDFromContext(c),
	})
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			respond.Validation(c, verr.Field, verr.Issue, "invalid usage record")
		case errors.Is(err, quota.ErrLimitReached):
			respond.Error(c, http.StatusPaymentRequired, "quota_exceeded", "token quota exhausted for the current period", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to track usage", nil)
		}
		return
	}

	c.Set("recordId", rec.ID)
	respond.Created(c, trackResponse{ID: rec.ID, Usage: rec.View()})
}

type listItem struct {
	ID string `json:"id"`
	View
}

func (h *Handler) list(c *gin.Context) {
	rng, err := daterange.Parse(c.Query("startDate"), c.Query("endDate"), daterange.Options{
		Now:     h.Svc.now(),
		MaxSpan: 366 * 24 * time.Hour,
	})
	if err != nil {
		respond.Validation(c, daterange.Field(err), "invalid_range", err.Error())
		return
	}
	limit, err := intQuery(c, "limit", DefaultLimit)
	if err != nil {
		respond.Validation(c, "limit", "not_integer", "limit must be an integer")
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		respond.Validation(c, "offset", "not_integer", "offset must be an integer")
		return
	}

	q := Query{
		AccountID: middleware.AccountIDFromContext(c),
		Start:     rng.Start,
		End:       rng.End,
		Provider:  c.Query("provider"),
		Model:     c.Query("model"),
		UserID:    c.Query("userId"),
		Limit:     limit,
		Offset:    offset,
	}
	records, err := h.Svc.List(c.Request.Context(), q)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list usage", nil)
		return
	}
	items := make([]listItem, 0, len(records))
	for _, rec := range records {
		items = append(items, listItem{ID: rec.ID, View: rec.View()})
	}
	respond.OK(c, gin.H{
		"data":   items,
		"limit":  clampLimit(limit),
		"offset": offset,
		"range":  rng,
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
