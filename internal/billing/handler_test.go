package billing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
)

func newBillingRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	h := NewHandler(f.svc)
	h.RegisterPublicRoutes(r.Group("/api"))
	dash := r.Group("/api/dashboard")
	dash.Use(func(c *gin.Context) {
		middleware.SetAccount(c, "acct-1", "")
		c.Next()
	})
	h.RegisterRoutes(dash)
	return r
}

func TestPlansEndpoint(t *testing.T) {
	r := newBillingRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/plans", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Data []Plan `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 4 || body.Data[0].ID != PlanFree || body.Data[3].ID != PlanEnterprise {
		t.Fatalf("unexpected catalog: %+v", body.Data)
	}
}

func TestSubscriptionEndpoints(t *testing.T) {
	r := newBillingRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/subscription", bytes.NewBufferString(`{"planId":"pro"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/dashboard/billing", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var overview struct {
		Plan struct {
			ID         string `json:"id"`
			TokenLimit int64  `json:"tokenLimit"`
		} `json:"plan"`
		NextBillingDate *string `json:"nextBillingDate"`
		Transactions    []any   `json:"transactions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if overview.Plan.ID != "pro" || overview.Plan.TokenLimit != 5_000_000 {
		t.Fatalf("unexpected plan: %+v", overview.Plan)
	}
	if overview.NextBillingDate == nil || len(overview.Transactions) != 1 {
		t.Fatalf("unexpected overview: %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/dashboard/subscription", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"cancelAtPeriodEnd":true`)) {
		t.Fatalf("expected cancellation flag: %s", resp.Body.String())
	}
}

func TestChangePlanRejectsUnknown(t *testing.T) {
	r := newBillingRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/subscription", bytes.NewBufferString(`{"planId":"gold"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
