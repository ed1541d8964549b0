package team

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
	rg.GET("/team", h.list)
	rg.POST("/team", h.invite)
	rg.PATCH("/team/:id", h.update)
	rg.DELETE("/team/:id", h.remove)
}

type inviteRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TokenLimit int64  `json:"tokenLimit"`
}

type updateRequest struct {
	Role       *string `json:"role"`
	Status     *string `json:"status"`
	TokenLimit *int64  `json:"tokenLimit"`
}

func ownerFromContext(c *gin.Context) Owner {
	return Owner{
		UserID: middleware.AccountIDFromContext(c),
		Email:  middleware.UserEmailFromContext(c),
		Name:   middleware.UserNameFromContext(c),
	}
}

func (h *Handler) list(c *gin.Context) {
	members, err := h.Svc.List(c.Request.Context(), ownerFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list team", nil)
		return
	}
	respond.OK(c, gin.H{"data": members})
}

func (h *Handler) invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	member, err := h.Svc.Invite(c.Request.Context(), ownerFromContext(c), InviteInput{
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		TokenLimit: req.TokenLimit,
	})
	if err != nil {
		writeError(c, err, "failed to invite member")
		return
	}
	respond.Created(c, member)
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	member, err := h.Svc.Update(c.Request.Context(), middleware.AccountIDFromContext(c), c.Param("id"), UpdateInput{
		Role:       req.Role,
		Status:     req.Status,
		TokenLimit: req.TokenLimit,
	})
	if err != nil {
		writeError(c, err, "failed to update member")
		return
	}
	respond.OK(c, member)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Remove(c.Request.Context(), middleware.AccountIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to remove member")
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error, message string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Validation(c, verr.Field, verr.Issue, "invalid team member")
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "team member not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "a member with this email already exists", nil)
	case errors.Is(err, ErrSeatLimit):
		respond.Error(c, http.StatusPaymentRequired, "seat_limit_reached", "your plan has no seats left", nil)
	case errors.Is(err, ErrOwnerImmutable):
		respond.Error(c, http.StatusForbidden, "forbidden", "the account owner cannot be modified", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
