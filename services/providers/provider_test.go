package providers

import (
	"context"
	"sync"
	"testing"
)

// mockProvider is a simple provider for testing
type mockProvider struct {
	name           string
	cacheKeyPrefix string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Origin() Origin {
	return Origin(m.name)
}

func (m *mockProvider) CacheKeyPrefix() string {
	return m.cacheKeyPrefix
}

func (m *mockProvider) Fetch(ctx context.Context, track TrackIdentity, opts FetchOptions) (*LyricsSource, error) {
	return &LyricsSource{
		Origin:     m.Origin(),
		SyncedText: StringPtr("[00:01.00]test lyrics"),
	}, nil
}

func newMockProvider(name, prefix string) *mockProvider {
	return &mockProvider{name: name, cacheKeyPrefix: prefix}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("Register single provider", func(t *testing.T) {
		r := NewRegistry()
		p := newMockProvider("test", "test_lyrics")

		r.Register(p)

		if !r.Has("test") {
			t.Error("Provider 'test' should be registered")
		}
	})

	t.Run("Register multiple providers", func(t *testing.T) {
		r := NewRegistry()

		r.Register(newMockProvider("lrclib", "lrclib_lyrics"))
		r.Register(newMockProvider("musixmatch", "musixmatch_lyrics"))
		r.Register(newMockProvider("genius", "genius_lyrics"))

		if len(r.providers) != 3 {
			t.Errorf("Expected 3 providers, got %d", len(r.providers))
		}
	})

	t.Run("Register overwrites existing provider", func(t *testing.T) {
		r := NewRegistry()

		r.Register(newMockProvider("test", "old_prefix"))
		r.Register(newMockProvider("test", "new_prefix"))

		p, err := r.Get("test")
		if err != nil {
			t.Fatalf("Failed to get provider: %v", err)
		}

		if p.CacheKeyPrefix() != "new_prefix" {
			t.Errorf("Expected new_prefix, got %s", p.CacheKeyPrefix())
		}
	})
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockProvider("lrclib", "lrclib_lyrics"))
	r.Register(newMockProvider("lyricstify", "lyricstify_lyrics"))

	t.Run("Get existing provider", func(t *testing.T) {
		p, err := r.Get("lrclib")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if p.Name() != "lrclib" {
			t.Errorf("Expected 'lrclib', got %s", p.Name())
		}
	})

	t.Run("Get non-existent provider returns error", func(t *testing.T) {
		_, err := r.Get("nonexistent")
		if err == nil {
			t.Fatal("Expected error for non-existent provider")
		}

		expectedErr := "provider not found: nonexistent"
		if err.Error() != expectedErr {
			t.Errorf("Expected error %q, got %q", expectedErr, err.Error())
		}
	})

	t.Run("Get empty name returns error", func(t *testing.T) {
		_, err := r.Get("")
		if err == nil {
			t.Error("Expected error for empty provider name")
		}
	})
}

func TestRegistry_List(t *testing.T) {
	t.Run("List empty registry", func(t *testing.T) {
		names := NewRegistry().List()

		if len(names) != 0 {
			t.Errorf("Expected empty list, got %v", names)
		}
	})

	t.Run("List is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockProvider("musixmatch", "p"))
		r.Register(newMockProvider("genius", "p"))
		r.Register(newMockProvider("lrclib", "p"))

		names := r.List()

		expected := []string{"genius", "lrclib", "musixmatch"}
		if len(names) != len(expected) {
			t.Fatalf("Expected %d names, got %d", len(expected), len(names))
		}
		for i, name := range expected {
			if names[i] != name {
				t.Errorf("names[%d] = %q, expected %q", i, names[i], name)
			}
		}
	})
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockProvider("lrclib", "lrclib_lyrics"))

	tests := []struct {
		name     string
		provider string
		expected bool
	}{
		{"Existing provider", "lrclib", true},
		{"Non-existent provider", "genius", false},
		{"Empty name", "", false},
		{"Case sensitive", "LRCLIB", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Has(tt.provider)
			if result != tt.expected {
				t.Errorf("Has(%q) = %v, expected %v", tt.provider, result, tt.expected)
			}
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 5; i++ {
		r.Register(newMockProvider("provider"+string(rune('0'+i)), "prefix"))
	}

	var wg sync.WaitGroup

	// Concurrent reads
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.List()
				r.Has("provider0")
				r.Get("provider1")
			}
		}()
	}

	// Concurrent writes
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Register(newMockProvider("concurrent"+string(rune('a'+id)), "prefix"))
			}
		}(i)
	}

	wg.Wait()

	if len(r.List()) != 15 {
		t.Errorf("Expected 15 providers, got %d", len(r.List()))
	}
}

func TestProviderInterface(t *testing.T) {
	var _ Provider = &mockProvider{}

	p := newMockProvider("test", "test_lyrics")

	src, err := p.Fetch(context.Background(), TrackIdentity{Name: "song", Artist: "artist"}, FetchOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src.Origin != "test" {
		t.Errorf("Origin = %q, expected %q", src.Origin, "test")
	}
	if !src.HasSynced() {
		t.Error("Expected synced text")
	}
}
