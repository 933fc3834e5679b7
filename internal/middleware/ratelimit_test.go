package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newLimitedRouter runs the real auth middleware in front of the limiter so
// buckets are keyed the way they are in production.
func newLimitedRouter(rps float64, burst int) *gin.Engine {
	router := gin.New()
	router.Use(APIKeyAuth([]string{"key-a", "key-b"}))
	router.Use(RateLimit(rps, burst))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func send(router http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	router := newLimitedRouter(1, 3)

	for i := 0; i < 3; i++ {
		if w := send(router, "key-a"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := send(router, "key-a")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_PerKeyIsolation(t *testing.T) {
	router := newLimitedRouter(1, 1)

	if w := send(router, "key-a"); w.Code != http.StatusOK {
		t.Fatalf("key-a first: expected 200, got %d", w.Code)
	}
	if w := send(router, "key-a"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("key-a second: expected 429, got %d", w.Code)
	}
	if w := send(router, "key-b"); w.Code != http.StatusOK {
		t.Errorf("key-b first: expected 200, got %d", w.Code)
	}
}

func TestRateLimit_FallsBackToClientIP(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, 1))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	again := httptest.NewRequest(http.MethodGet, "/health", nil)
	again.RemoteAddr = "10.0.0.1:5678"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, again)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP: expected 429, got %d", w.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("other IP: expected 200, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/bad", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected caller's request id echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id")
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel {
		t.Errorf("expected info for 200, got %s", entries[0].Level)
	}
	if entries[1].Level != zap.WarnLevel {
		t.Errorf("expected warn for 400, got %s", entries[1].Level)
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-123" {
		t.Errorf("expected request_id field req-123, got %v", got)
	}
}
