package apikeys

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/server/middleware"
)

func newKeysRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetAccount(c, "acct-1", "")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r, svc
}

func TestKeysLifecycle(t *testing.T) {
	r, _ := newKeysRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/keys", bytes.NewBufferString(`{"name":"prod"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Key == "" {
		t.Fatalf("expected plaintext key in create response")
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/keys", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if bytes.Contains(resp.Body.Bytes(), []byte(created.Key)) {
		t.Fatalf("listing leaked the secret: %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/keys/"+created.ID, nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/keys/unknown", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestRequireAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), "acct-7", "sdk")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := gin.New()
	r.Use(RequireAPIKey(svc))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"account": middleware.AccountIDFromContext(c),
			"key":     middleware.APIKeyIDFromContext(c),
		})
	})

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer", "Authorization", "Bearer " + created.Key, http.StatusOK},
		{"x-api-key", "X-API-Key", created.Key, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-API-Key", KeyPrefix + "00000000000000000000000000000000", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.Code)
		}
		if tc.want == http.StatusOK {
			var body map[string]string
			_ = json.Unmarshal(resp.Body.Bytes(), &body)
			if body["account"] != "acct-7" || body["key"] != created.ID {
				t.Fatalf("%s: unexpected context %v", tc.name, body)
			}
		}
	}
}
