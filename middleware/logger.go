package middleware

import (
	"fmt"
	"karaoke-api-go/logcolors"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// ResponseRecorder captures the status code and body size of a response
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder wraps w; the status defaults to 200 like net/http does
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (rec *ResponseRecorder) WriteHeader(statusCode int) {
	rec.StatusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.BodySize += n
	return n, err
}

func getStatusColor(status int) string {
	switch {
	case status >= 500:
		return logcolors.Red
	case status >= 400:
		return logcolors.Yellow
	case status >= 300:
		return logcolors.Cyan
	case status >= 200:
		return logcolors.Green
	default:
		return logcolors.Reset
	}
}

// LoggingMiddleware logs one line per request and tags it with a request id
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := NewResponseRecorder(w)
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		status := fmt.Sprintf("%s%d%s", getStatusColor(rec.StatusCode), rec.StatusCode, logcolors.Reset)

		log.WithFields(log.Fields{
			"request_id": requestID,
			"remote":     r.RemoteAddr,
			"user_agent": r.UserAgent(),
			"bytes":      rec.BodySize,
		}).Infof("%s %s %s %s %v", logcolors.LogHTTP, r.Method, r.URL.RequestURI(), status, duration.Round(time.Microsecond))
	})
}
