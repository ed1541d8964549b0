package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/tracking"
)

func newAnalyticsRouter(t *testing.T, records ...tracking.Record) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := seed(t, records...)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetAccount(c, "acct-1", "")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(&r.RouterGroup)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAnalyticsEndpoint(t *testing.T) {
	r := newAnalyticsRouter(t,
		rec("r1", "openai", "gpt-4o", "u1", 100, 50, 0.02, fixedNow.Add(-time.Hour)),
		rec("r2", "openai", "gpt-4o-mini", "u2", 10, 5, 0.001, fixedNow.Add(-2*time.Hour)),
	)

	resp := get(r, "/analytics?groupBy=model&startDate=2026-03-01&endDate=2026-03-10")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Summary struct {
			TotalRequests int64 `json:"totalRequests"`
			TotalTokens   int64 `json:"totalTokens"`
		} `json:"summary"`
		GroupBy   string `json:"groupBy"`
		Breakdown []struct {
			Key string `json:"key"`
		} `json:"breakdown"`
		Range struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"range"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Summary.TotalRequests != 2 || payload.Summary.TotalTokens != 165 {
		t.Fatalf("unexpected summary: %+v", payload.Summary)
	}
	if payload.GroupBy != "model" || len(payload.Breakdown) != 2 || payload.Breakdown[0].Key != "gpt-4o" {
		t.Fatalf("unexpected breakdown: %+v", payload)
	}
	if !payload.Range.End.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected inclusive end date, got %v", payload.Range.End)
	}
}

func TestAnalyticsEmptyBreakdownIsArray(t *testing.T) {
	r := newAnalyticsRouter(t)
	resp := get(r, "/analytics")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload["breakdown"].([]any); !ok {
		t.Fatalf("expected breakdown array, got %#v", payload["breakdown"])
	}
}

func TestAnalyticsValidation(t *testing.T) {
	r := newAnalyticsRouter(t)
	cases := map[string]string{
		"bad groupBy": "/analytics?groupBy=region",
		"reversed":    "/analytics?startDate=2026-03-05&endDate=2026-03-01",
		"too long":    "/analytics?startDate=2024-01-01&endDate=2026-03-01",
		"unparseable": "/analytics?startDate=yesterday",
	}
	for name, path := range cases {
		resp := get(r, path)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(resp.Body.Bytes(), &body)
		if body.Error.Code != "validation_error" {
			t.Fatalf("%s: unexpected code %q", name, body.Error.Code)
		}
	}
}

func TestAnalyticsProviderFilterIgnoresCase(t *testing.T) {
	r := newAnalyticsRouter(t,
		rec("r1", "openai", "gpt-4o", "u1", 100, 50, 0.02, fixedNow.Add(-time.Hour)),
		rec("r2", "anthropic", "claude-3-haiku", "u1", 10, 5, 0.001, fixedNow.Add(-time.Hour)),
	)

	resp := get(r, "/analytics?provider=OpenAI")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Summary struct {
			TotalRequests int64 `json:"totalRequests"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Summary.TotalRequests != 1 {
		t.Fatalf("expected 1 request for OpenAI, got %d", payload.Summary.TotalRequests)
	}
}

func TestAnalyticsMalformedEndDateNamesEndDate(t *testing.T) {
	r := newAnalyticsRouter(t)
	resp := get(r, "/analytics?startDate=2026-03-01&endDate=soon")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Details []struct {
				Field string `json:"field"`
				Issue string `json:"issue"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Error.Details) != 1 || body.Error.Details[0].Field != "endDate" || body.Error.Details[0].Issue != "invalid_date" {
		t.Fatalf("unexpected details: %+v", body.Error.Details)
	}
}
