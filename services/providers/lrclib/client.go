package lrclib

import (
	"context"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Client talks to the LRCLIB REST API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client for the given API root, e.g. "https://lrclib.net/api"
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: providers.NewHTTPClient(),
	}
}

func (c *Client) headers() map[string]string {
	if c.userAgent == "" {
		return nil
	}
	return map[string]string{"User-Agent": c.userAgent}
}

// Get looks up an exact match. album and duration are skipped when empty or zero.
// Returns providers.ErrNotFound on a 404.
func (c *Client) Get(ctx context.Context, track, artist, album string, durationSecs int) (*Record, error) {
	params := url.Values{}
	params.Set("track_name", track)
	params.Set("artist_name", artist)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationSecs > 0 {
		params.Set("duration", strconv.Itoa(durationSecs))
	}

	requestURL := c.baseURL + "/get?" + params.Encode()
	log.Debugf("%s %s GET %s", logcolors.Provider("LRCLIB"), logcolors.LogHTTP, requestURL)

	var record Record
	if err := providers.GetJSON(ctx, c.httpClient, requestURL, c.headers(), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Search runs a free-text query and returns all candidates in upstream order
func (c *Client) Search(ctx context.Context, query string) ([]Record, error) {
	params := url.Values{}
	params.Set("q", query)

	requestURL := c.baseURL + "/search?" + params.Encode()
	log.Debugf("%s %s GET %s", logcolors.Provider("LRCLIB"), logcolors.LogSearch, requestURL)

	var records []Record
	if err := providers.GetJSON(ctx, c.httpClient, requestURL, c.headers(), &records); err != nil {
		return nil, err
	}
	return records, nil
}
