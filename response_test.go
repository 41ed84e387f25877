package main

import (
	"context"
	"encoding/json"
	"karaoke-api-go/middleware"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIResponse_SetCacheStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{"HIT status", "HIT", "HIT"},
		{"MISS status", "MISS", "MISS"},
		{"NEGATIVE_HIT status", "NEGATIVE_HIT", "NEGATIVE_HIT"},
		{"USER status", "USER", "USER"},
		{"empty status", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)

			Respond(w, r).SetCacheStatus(tt.status).JSON(map[string]string{"test": "data"})

			if got := w.Header().Get("X-Cache-Status"); got != tt.expected {
				t.Errorf("X-Cache-Status = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIResponse_SetSource(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	Respond(w, r).SetSource("LRCLIB").JSON(nil)

	if got := w.Header().Get("X-Lyrics-Source"); got != "LRCLIB" {
		t.Errorf("X-Lyrics-Source = %q, want LRCLIB", got)
	}
}

func TestAPIResponse_AuthMode(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"valid key", "secret", "authenticated"},
		{"wrong key", "nope", ""},
		{"no key", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.APIKeyMiddleware(middleware.APIKeyConfig{Key: "secret"})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					Respond(w, r).JSON(map[string]string{"ok": "yes"})
				}),
			)

			r := httptest.NewRequest("GET", "/test", nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if got := w.Header().Get("X-Auth-Mode"); got != tt.expected {
				t.Errorf("X-Auth-Mode = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIResponse_RateLimitTypeFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func(context.Context) context.Context
		expected string
	}{
		{
			name:     "normal tier",
			ctx:      func(ctx context.Context) context.Context { return context.WithValue(ctx, rateLimitTypeKey, "normal") },
			expected: "normal",
		},
		{
			name:     "sync tier",
			ctx:      func(ctx context.Context) context.Context { return context.WithValue(ctx, rateLimitTypeKey, "sync") },
			expected: "sync",
		},
		{
			name:     "not rate limited",
			ctx:      func(ctx context.Context) context.Context { return ctx },
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)
			r = r.WithContext(tt.ctx(r.Context()))

			Respond(w, r).JSON(nil)

			if got := w.Header().Get("X-RateLimit-Type"); got != tt.expected {
				t.Errorf("X-RateLimit-Type = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIResponse_Status(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/test", nil)

	Respond(w, r).Status(http.StatusCreated, map[string]int{"lines": 3})

	if w.Code != http.StatusCreated {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["lines"] != 3 {
		t.Errorf("lines = %d, want 3", body["lines"])
	}
}

func TestAPIResponse_Error(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	Respond(w, r).SetCacheStatus("MISS").Error(http.StatusBadGateway, "failed to fetch lyrics")

	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if got := w.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("X-Cache-Status = %q, want MISS", got)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"] != "failed to fetch lyrics" {
		t.Errorf("error = %q", body["error"])
	}
}
