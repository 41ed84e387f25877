package middleware

import (
	"context"
	"crypto/subtle"
	"karaoke-api-go/logcolors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

type authContextKey struct{}

// APIKeyConfig controls the X-API-Key guard
type APIKeyConfig struct {
	Key      string
	Required bool
	// PublicPaths are always reachable. A trailing * matches by prefix.
	PublicPaths []string
}

// Authenticated reports whether the request carried the configured API key
func Authenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(authContextKey{}).(bool)
	return ok
}

// ValidAPIKey compares a presented key against the configured one in constant time
func ValidAPIKey(presented, configured string) bool {
	if presented == "" || configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

func (c APIKeyConfig) isPublic(path string) bool {
	for _, p := range c.PublicPaths {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
				return true
			}
		} else if p == path {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(body))
}

// APIKeyMiddleware marks requests that carry a valid X-API-Key and, when the key
// is required, rejects the rest. Requests with a valid key also skip rate limiting.
func APIKeyMiddleware(cfg APIKeyConfig) func(http.Handler) http.Handler {
	if cfg.Required && cfg.Key == "" {
		log.Warnf("%s API key required but not configured, allowing all requests", logcolors.LogAPIKey)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if ValidAPIKey(presented, cfg.Key) {
				ctx := context.WithValue(r.Context(), authContextKey{}, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if !cfg.Required || cfg.Key == "" || cfg.isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if presented == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeUnauthorized(w, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
				return
			}

			log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
			writeUnauthorized(w, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
		})
	}
}
