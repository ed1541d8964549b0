package pricing

import (
	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/respond"
)

// Handler exposes the pricing table.
type Handler struct {
	Table *Table
}

func NewHandler(table *Table) *Handler {
	return &Handler{Table: table}
}

// RegisterRoutes attaches pricing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pricing", h.list)
}

type providerResponse struct {
	Provider string                  `json:"provider"`
	Models   map[string]ModelPricing `json:"models"`
	Default  *ModelPricing           `json:"default,omitempty"`
}

func (h *Handler) list(c *gin.Context) {
	snapshot := h.Table.Snapshot()
	out := make([]providerResponse, 0, len(snapshot))
	for _, provider := range h.Table.Providers() {
		models := snapshot[provider]
		item := providerResponse{Provider: provider, Models: map[string]ModelPricing{}}
		for model, p := range models {
			if model == Wildcard {
				p := p
				item.Default = &p
				continue
			}
			item.Models[model] = p
		}
		out = append(out, item)
	}
	respond.OK(c, gin.H{"unit": "USD per 1K tokens", "providers": out})
}
