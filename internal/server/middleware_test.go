package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subwayfeed/internal/cache"
	"subwayfeed/internal/handler"
	"subwayfeed/internal/realtime"
	"subwayfeed/internal/repository"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := cors(okHandler(), []string{"http://localhost:4200"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("Allow-Origin = %q, want http://localhost:4200", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want request passed through", rec.Code)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := cors(okHandler(), []string{"http://localhost:4200"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	if !allowedOrigin("https://any.example", []string{"*"}) {
		t.Error("wildcard did not allow origin")
	}
	if !allowedOrigin("http://localhost:4200", []string{"http://localhost:4200/"}) {
		t.Error("trailing slash in config should still match")
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := cors(okHandler(), []string{"http://localhost:4200"})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stations", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "GET") {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	securityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRequestLogger_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	body := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})
	rec := httptest.NewRecorder()
	requestLogger(body, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	out := buf.String()
	for _, want := range []string{"status=418", "path=/healthz", "bytes=15"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestRequestLogger_SkipsStreams(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	requestLogger(okHandler(), logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stations/127N/arrivals/stream", nil))

	if buf.Len() != 0 {
		t.Errorf("stream request was logged: %q", buf.String())
	}
}

func TestServer_Routes(t *testing.T) {
	store := cache.NewMemory(time.Minute)
	defer store.Close()
	repo := repository.New(store, "mta", repository.DefaultTTLs())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	srv := New(0, handler.New(repo, store, logger, handler.Options{}), []string{"http://localhost:4200"}, logger)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/transitrealtimedata", http.StatusNotFound},
		{http.MethodGet, "/api/v1/stations", http.StatusNotFound},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/v1/feeds", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/transitrealtimedata", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	snap := realtime.NewBuilder().Build(time.Unix(1700000000, 0))
	if err := repo.StoreSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transitrealtimedata", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("after store status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
