package dashboard

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
	"usely-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches dashboard usage routes. They run behind JWT auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.usage)
	rg.POST("/usage/export", h.export)
	rg.GET("/usage/export/:id", h.download)
}

func (h *Handler) usage(c *gin.Context) {
	days := DefaultDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond.Validation(c, "days", "not_integer", "days must be an integer")
			return
		}
		days = n
	}
	out, err := h.Svc.Usage(c.Request.Context(), middleware.AccountIDFromContext(c), days)
	if err != nil {
		if errors.Is(err, ErrInvalidDays) {
			respond.Validation(c, "days", "out_of_range", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load usage", nil)
		return
	}
	respond.OK(c, out)
}

type exportRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *Handler) export(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
	}
	rng, err := daterange.Parse(req.StartDate, req.EndDate, daterange.Options{
		Now:     h.Svc.now(),
		MaxSpan: 366 * 24 * time.Hour,
	})
	if err != nil {
		respond.Validation(c, daterange.Field(err), "invalid_range", err.Error())
		return
	}
	id, rows, err := h.Svc.Export(c.Request.Context(), middleware.AccountIDFromContext(c), rng)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export usage", nil)
		return
	}
	respond.Created(c, gin.H{"exportId": id, "rows": rows})
}

func (h *Handler) download(c *gin.Context) {
	exportID := c.Param("id")
	rc, err := h.Svc.OpenExport(c.Request.Context(), middleware.AccountIDFromContext(c), exportID)
	if err != nil {
		if errors.Is(err, ErrExportNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "export not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open export", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", csvType)
	c.Header("Content-Disposition", `attachment; filename="usely-usage-`+exportID+`.csv"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Warn("dashboard.export_stream_failed", map[string]any{
			"export_id": exportID,
			"error":     err,
		})
	}
}
