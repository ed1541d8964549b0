package billing

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

// RegisterRoutes attaches the dashboard billing routes. They run behind JWT auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/billing", h.overview)
	rg.GET("/subscription", h.getSubscription)
	rg.POST("/subscription", h.changePlan)
	rg.DELETE("/subscription", h.cancel)
}

// RegisterPublicRoutes attaches the plan catalog.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/plans", h.plans)
}

type subscriptionResponse struct {
	Subscription Subscription `json:"subscription"`
	Plan         Plan         `json:"plan"`
}

func (h *Handler) plans(c *gin.Context) {
	respond.OK(c, gin.H{"data": Plans()})
}

func (h *Handler) overview(c *gin.Context) {
	out, err := h.Svc.Overview(c.Request.Context(), middleware.AccountIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load billing", nil)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) getSubscription(c *gin.Context) {
	sub, err := h.Svc.Subscription(c.Request.Context(), middleware.AccountIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load subscription", nil)
		return
	}
	respond.OK(c, withPlan(sub))
}

type changePlanRequest struct {
	PlanID string `json:"planId"`
}

func (h *Handler) changePlan(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	sub, err := h.Svc.ChangePlan(c.Request.Context(), middleware.AccountIDFromContext(c), req.PlanID)
	if err != nil {
		if errors.Is(err, ErrUnknownPlan) {
			respond.Validation(c, "planId", "unknown_plan", "planId must be one of free, pro, team, enterprise")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to change plan", nil)
		return
	}
	respond.OK(c, withPlan(sub))
}

func (h *Handler) cancel(c *gin.Context) {
	sub, err := h.Svc.Cancel(c.Request.Context(), middleware.AccountIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNothingToCancel) {
			respond.Error(c, http.StatusConflict, "conflict", "no paid subscription to cancel", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel subscription", nil)
		return
	}
	respond.OK(c, withPlan(sub))
}

func withPlan(sub Subscription) subscriptionResponse {
	plan, ok := LookupPlan(sub.PlanID)
	if !ok {
		plan, _ = LookupPlan(PlanFree)
	}
	return subscriptionResponse{Subscription: sub, Plan: plan}
}
