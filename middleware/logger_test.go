package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetStatusColor(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   string
	}{
		{http.StatusOK, "\033[32m"},
		{http.StatusCreated, "\033[32m"},
		{http.StatusNoContent, "\033[32m"},
		{http.StatusNotModified, "\033[36m"},
		{http.StatusBadRequest, "\033[33m"},
		{http.StatusNotFound, "\033[33m"},
		{http.StatusTooManyRequests, "\033[33m"},
		{http.StatusInternalServerError, "\033[31m"},
		{http.StatusServiceUnavailable, "\033[31m"},
		{http.StatusContinue, "\033[0m"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			if got := getStatusColor(tt.statusCode); got != tt.expected {
				t.Errorf("getStatusColor(%d) = %q, expected %q", tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec.StatusCode != http.StatusOK || rec.BodySize != 0 {
		t.Fatalf("Unexpected initial state %+v", rec)
	}

	// Writing without WriteHeader keeps the implicit 200
	rec.Write([]byte("Hello"))
	rec.Write([]byte(", World"))
	if rec.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.StatusCode)
	}
	if rec.BodySize != 12 {
		t.Errorf("Expected body size 12, got %d", rec.BodySize)
	}
	if w.Body.String() != "Hello, World" {
		t.Errorf("Body not forwarded, got %q", w.Body.String())
	}
}

func TestResponseRecorder_WriteHeader(t *testing.T) {
	for _, code := range []int{http.StatusCreated, http.StatusNotFound, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		rec := NewResponseRecorder(w)
		rec.WriteHeader(code)

		if rec.StatusCode != code || w.Code != code {
			t.Errorf("Expected %d recorded and forwarded, got %d/%d", code, rec.StatusCode, w.Code)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		method     string
		statusCode int
	}{
		{"GET", http.StatusOK},
		{"POST", http.StatusCreated},
		{"DELETE", http.StatusNotFound},
		{"GET", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+http.StatusText(tt.statusCode), func(t *testing.T) {
			handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte("body"))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/test", nil))

			if rec.Code != tt.statusCode {
				t.Errorf("Expected %d, got %d", tt.statusCode, rec.Code)
			}
			if rec.Body.String() != "body" {
				t.Errorf("Expected body to pass through, got %q", rec.Body.String())
			}
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	generated := rec.Header().Get(RequestIDHeader)
	if len(generated) != 36 {
		t.Errorf("Expected a generated uuid, got %q", generated)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied" {
		t.Errorf("Expected client request id to be echoed, got %q", got)
	}
}
