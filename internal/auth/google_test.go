package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))
	return r
}

func TestStartRequiresConfiguration(t *testing.T) {
	r := newRouter(NewGoogleService("", "", "", "", nil))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStartRedirectsWithState(t *testing.T) {
	svc := NewGoogleService("client", "secret", "http://localhost:8080/api/auth/google/callback", "http://localhost:3000/dashboard", nil)
	r := newRouter(svc)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if !strings.Contains(loc.Host, "google") {
		t.Fatalf("expected google host, got %s", loc.Host)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state in redirect")
	}
	if !svc.stateStore.consume(state, time.Now()) {
		t.Fatalf("expected state to be stored")
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	r := newRouter(NewGoogleService("client", "secret", "http://cb", "http://ui", nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=nope&code=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing params, got %d", resp.Code)
	}
}

func TestStateStoreExpiresAndSingleUse(t *testing.T) {
	store := newStateStore()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	store.put("a", now.Add(5*time.Minute), now)
	if !store.consume("a", now.Add(time.Minute)) {
		t.Fatalf("expected valid state")
	}
	if store.consume("a", now.Add(time.Minute)) {
		t.Fatalf("state must be single-use")
	}

	store.put("b", now.Add(5*time.Minute), now)
	if store.consume("b", now.Add(6*time.Minute)) {
		t.Fatalf("expected expired state to fail")
	}

	store.put("c", now.Add(time.Minute), now)
	store.put("d", now.Add(10*time.Minute), now.Add(2*time.Minute))
	if _, ok := store.items["c"]; ok {
		t.Fatalf("expected expired state to be pruned")
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("http://localhost:3000/auth/callback?next=%2Fdashboard", "tok")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("token") != "tok" || u.Query().Get("next") != "/dashboard" {
		t.Fatalf("unexpected redirect %s", got)
	}
	if _, err := appendToken("", "tok"); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
