package pricing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestListPricing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewTable()).RegisterRoutes(r.Group("/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/pricing", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Providers []providerResponse `json:"providers"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Providers) == 0 {
		t.Fatalf("expected providers")
	}
	for _, p := range payload.Providers {
		if _, ok := p.Models[Wildcard]; ok {
			t.Fatalf("wildcard leaked into models for %s", p.Provider)
		}
		if p.Provider == "openai" && p.Default == nil {
			t.Fatalf("expected openai default pricing")
		}
	}
}
