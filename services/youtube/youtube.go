// Package youtube finds a karaoke or instrumental upload of a track through the
// YouTube Data API so the player has something to sing over.
package youtube

import (
	"context"
	"errors"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	maxResults      = "10"
	musicCategoryID = "10"
)

// ErrTrackRequired is returned when the search has no track name
var ErrTrackRequired = errors.New("track name is required")

// Video is the chosen karaoke video
type Video struct {
	VideoID         string `json:"videoId"`
	Title           string `json:"title"`
	ChannelTitle    string `json:"channelTitle"`
	Thumbnail       string `json:"thumbnail"`
	Duration        string `json:"duration"`
	DurationSeconds int    `json:"durationSeconds"`
	Score           int    `json:"score"`
	Query           string `json:"query"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID             string  `json:"id"`
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type snippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnails   map[string]struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

func (s snippet) thumbnail() string {
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := s.Thumbnails[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// Client searches the Data API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client; an empty apiKey leaves it unconfigured
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: providers.NewHTTPClient(),
	}
}

// NewFromConfig creates a client using the process configuration
func NewFromConfig() *Client {
	conf := config.Get()
	return NewClient(conf.Providers.YouTubeBaseURL, conf.Providers.YouTubeAPIKey)
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type candidate struct {
	videoID string
	score   int
}

// FindKaraoke walks the query strategies in order and returns the best-scoring
// video of the first query that yields any acceptable candidate.
// Returns providers.ErrNotFound when no strategy finds one.
func (c *Client) FindKaraoke(ctx context.Context, trackName, artistName string) (*Video, error) {
	if !c.Configured() {
		return nil, providers.ErrNotConfigured
	}
	if strings.TrimSpace(trackName) == "" {
		return nil, ErrTrackRequired
	}

	for _, query := range Queries(trackName, artistName) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Debugf("%s Trying search: %s", logcolors.LogYouTube, query)
		results, err := c.search(ctx, query)
		if err != nil {
			log.Warnf("%s Search %q failed: %v", logcolors.LogYouTube, query, err)
			continue
		}

		var candidates []candidate
		for _, item := range results.Items {
			if item.ID.VideoID == "" {
				continue
			}
			score, ok := Score(item.Snippet.Title, item.Snippet.ChannelTitle, trackName, artistName)
			if !ok {
				log.Debugf("%s Skipping %q (score %d)", logcolors.LogYouTube, item.Snippet.Title, score)
				continue
			}
			candidates = append(candidates, candidate{videoID: item.ID.VideoID, score: score})
		}
		if len(candidates) == 0 {
			continue
		}

		videos, err := c.details(ctx, candidates)
		if err != nil {
			log.Warnf("%s Video details failed: %v", logcolors.LogYouTube, err)
			continue
		}
		if len(videos) == 0 {
			continue
		}

		sort.SliceStable(videos, func(i, j int) bool {
			return videos[i].Score > videos[j].Score
		})
		best := videos[0]
		best.Query = query
		log.Infof("%s Best match for %q: %s (score %d)", logcolors.LogYouTube, query, best.Title, best.Score)
		return &best, nil
	}

	log.Infof("%s No karaoke or instrumental version found for %s - %s", logcolors.LogYouTube, artistName, trackName)
	return nil, providers.ErrNotFound
}

func (c *Client) search(ctx context.Context, query string) (*searchResponse, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("maxResults", maxResults)
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("videoCategoryId", musicCategoryID)
	params.Set("key", c.apiKey)

	var resp searchResponse
	if err := providers.GetJSON(ctx, c.httpClient, c.baseURL+"/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// details fetches duration and thumbnails for all candidates in one request.
// Candidates the API no longer knows about are dropped.
func (c *Client) details(ctx context.Context, candidates []candidate) ([]Video, error) {
	ids := make([]string, 0, len(candidates))
	scores := make(map[string]int, len(candidates))
	for _, cand := range candidates {
		ids = append(ids, cand.videoID)
		scores[cand.videoID] = cand.score
	}

	params := url.Values{}
	params.Set("part", "contentDetails,snippet")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", c.apiKey)

	var resp videosResponse
	if err := providers.GetJSON(ctx, c.httpClient, c.baseURL+"/videos?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		score, ok := scores[item.ID]
		if !ok {
			continue
		}
		videos = append(videos, Video{
			VideoID:         item.ID,
			Title:           item.Snippet.Title,
			ChannelTitle:    item.Snippet.ChannelTitle,
			Thumbnail:       item.Snippet.thumbnail(),
			Duration:        item.ContentDetails.Duration,
			DurationSeconds: ParseDuration(item.ContentDetails.Duration),
			Score:           score,
		})
	}
	return videos, nil
}
