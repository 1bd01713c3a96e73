package router

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/freyja/internal/middleware"
)

func TestRouter_Get(t *testing.T) {
	r := New()

	called := false
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if !called {
		t.Error("handler was not called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string

	middleware1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "before1")
			next.ServeHTTP(w, r)
			order = append(order, "after1")
		})
	}

	middleware2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "before2")
			next.ServeHTTP(w, r)
			order = append(order, "after2")
		})
	}

	r := New(middleware1)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}, middleware2)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	expected := []string{"before1", "before2", "handler", "after2", "after1"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d elements, got %d", len(expected), len(order))
	}

	for i, v := range expected {
		if order[i] != v {
			t.Errorf("position %d: expected %s, got %s", i, v, order[i])
		}
	}
}

func TestRouter_Group(t *testing.T) {
	globalCalled := false
	groupCalled := false

	globalMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			globalCalled = true
			next.ServeHTTP(w, r)
		})
	}

	groupMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			groupCalled = true
			next.ServeHTTP(w, r)
		})
	}

	r := New(globalMiddleware)
	group := r.Group(groupMiddleware)

	group.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if !globalCalled {
		t.Error("global middleware was not called")
	}
	if !groupCalled {
		t.Error("group middleware was not called")
	}
}

func TestRouter_PathValues(t *testing.T) {
	r := New()

	var store, order string
	r.Post("/api/stores/{storeID}/orders/{orderID}/cancel", func(w http.ResponseWriter, r *http.Request) {
		store = r.PathValue("storeID")
		order = r.PathValue("orderID")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stores/s1/orders/o1/cancel", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if store != "s1" || order != "o1" {
		t.Errorf("path values = %q, %q; want s1, o1", store, order)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stores/s1/orders/o1/cancel", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(Recovery(logger))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic value leaked into the response")
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", []string{"https://shop.example"}, "https://shop.example", http.MethodPost, "https://shop.example", http.StatusOK},
		{"wildcard", []string{"*"}, "https://any.example", http.MethodGet, "https://any.example", http.StatusOK},
		{"disallowed origin", []string{"https://shop.example"}, "https://evil.example", http.MethodPost, "", http.StatusOK},
		{"preflight", []string{"*"}, "https://any.example", http.MethodOptions, "https://any.example", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/checkout", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			CORS(tt.allowed)(ok).ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestLogger_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(middleware.RequestID, Logger(logger))
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "request_id=req-42"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestRouter_Mount(t *testing.T) {
	var hits []string
	api := New(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits = append(hits, "api-chain")
			next.ServeHTTP(w, r)
		})
	})
	api.Post("/api/checkout", func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, "checkout")
		w.WriteHeader(http.StatusCreated)
	})

	ops := New()
	ops.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, "health")
	})

	root := New()
	root.Mount("/api", api)
	root.Mount("/", ops)

	w := httptest.NewRecorder()
	root.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/checkout", nil))
	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	root.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	want := []string{"api-chain", "checkout", "health"}
	if strings.Join(hits, ",") != strings.Join(want, ",") {
		t.Errorf("hits = %v, want %v", hits, want)
	}
}

func TestRouter_Routes(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}

	r := New()
	r.Post("/api/checkout", noop)
	r.Group().Get("/api/invoices/shared/{token}", noop)
	r.Handle("", "/metrics", http.HandlerFunc(noop))
	r.Mount("/static", http.NotFoundHandler())

	want := []string{
		"POST /api/checkout",
		"GET /api/invoices/shared/{token}",
		"/metrics",
		"/static/*",
	}
	got := r.Routes()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Routes() = %v, want %v", got, want)
	}
}
