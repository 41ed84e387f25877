package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// tokenSafetyMargin is cut from the advertised lifetime so a token is never used right at expiry
const tokenSafetyMargin = 300 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a valid client-credentials access token, fetching a new one
// when none is cached or the cached one has expired. Concurrent refreshes are collapsed.
func (c *Client) Token(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", providers.ErrNotConfigured
	}

	c.mu.RLock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		defer c.mu.RUnlock()
		return c.token, nil
	}
	c.mu.RUnlock()

	token, err, shared := c.group.Do("token", func() (interface{}, error) {
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debugf("%s Shared in-flight token refresh", logcolors.LogBearerToken)
	}
	return token.(string), nil
}

// TokenStatus reports the cached token's expiry for monitoring
func (c *Client) TokenStatus() (expiry time.Time, remaining time.Duration, needsRefresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.tokenExpiry.IsZero() {
		return time.Time{}, 0, true
	}
	remaining = c.tokenExpiry.Sub(c.now())
	return c.tokenExpiry, remaining, remaining <= 0
}

// invalidateToken drops the cached token so the next call fetches a new one
func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	log.Infof("%s Requesting Spotify access token...", logcolors.LogBearerToken)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("error parsing token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	lifetime := time.Duration(tokenResp.ExpiresIn)*time.Second - tokenSafetyMargin
	if lifetime < 0 {
		lifetime = 0
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(lifetime)

	log.Infof("%s Spotify token refreshed, usable for %v (until %s)",
		logcolors.LogBearerToken, lifetime.Round(time.Second), c.tokenExpiry.Format(time.RFC3339))
	return c.token, nil
}
