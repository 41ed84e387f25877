package genius

import (
	"context"
	"errors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

var testTrack = providers.TrackIdentity{Name: "Song", Artist: "Artist"}

func TestFetch_NotConfigured(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer server.Close()

	p := NewProvider(server.URL, "")
	_, err := p.Fetch(context.Background(), testTrack, providers.FetchOptions{})

	if !errors.Is(err, providers.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
	if atomic.LoadInt32(&requests) != 0 {
		t.Errorf("Expected no requests, got %d", requests)
	}
}

func TestFetch_ReturnsLinkPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer genius-token" {
			t.Errorf("Unexpected Authorization %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("q") != "Song Artist" {
			t.Errorf("Unexpected query %q", r.URL.Query().Get("q"))
		}
		w.Write([]byte(`{"meta":{"status":200},"response":{"hits":[
			{"type":"song","result":{"id":1,"title":"Song","url":"https://genius.com/artist-song-lyrics"}},
			{"type":"song","result":{"id":2,"title":"Other","url":"https://genius.com/other"}}
		]}}`))
	}))
	defer server.Close()

	p := NewProvider(server.URL, "genius-token")
	src, err := p.Fetch(context.Background(), testTrack, providers.FetchOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if src.Origin != providers.OriginGenius {
		t.Errorf("Origin = %q", src.Origin)
	}
	if src.SyncedText != nil {
		t.Error("Genius should never return synced text")
	}
	expected := "Lyrics available at: https://genius.com/artist-song-lyrics"
	if src.PlainText == nil || *src.PlainText != expected {
		t.Errorf("PlainText = %v, expected %q", src.PlainText, expected)
	}
	if !strings.HasPrefix(*src.PlainText, LinkPrefix) {
		t.Error("Placeholder should start with LinkPrefix")
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantNotFound bool
	}{
		{"no hits", 200, `{"response":{"hits":[]}}`, true},
		{"hit without url", 200, `{"response":{"hits":[{"result":{"id":1}}]}}`, true},
		{"unauthorized", 401, `{"meta":{"status":401}}`, false},
		{"malformed", 200, `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewProvider(server.URL, "token").Fetch(context.Background(), testTrack, providers.FetchOptions{})
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := errors.Is(err, providers.ErrNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(ErrNotFound) = %v, expected %v (err: %v)", got, tt.wantNotFound, err)
			}
			if !tt.wantNotFound && !providers.IsTransportError(err) {
				t.Errorf("Expected transport error, got %v", err)
			}
		})
	}
}

func TestProviderMetadata(t *testing.T) {
	var _ providers.Provider = &GeniusProvider{}
	p := NewProvider("http://unused", "")

	if p.Name() != "genius" || p.CacheKeyPrefix() != "genius_lyrics" || p.Origin() != providers.OriginGenius {
		t.Errorf("Unexpected metadata: %s %s %s", p.Name(), p.CacheKeyPrefix(), p.Origin())
	}
}
