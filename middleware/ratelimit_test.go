package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

var testLimits = Limits{
	Normal: Tier{Rate: rate.Limit(1), Burst: 1},
	Cached: Tier{Rate: rate.Limit(5), Burst: 5},
	Sync:   Tier{Rate: rate.Limit(20), Burst: 3},
}

func TestNewIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(testLimits)
	if rl.Limits() != testLimits {
		t.Errorf("Expected limits %+v, got %+v", testLimits, rl.Limits())
	}
	if rl.Size() != 0 {
		t.Errorf("Expected no clients, got %d", rl.Size())
	}
}

func TestGetLimiters_ReusesPerIP(t *testing.T) {
	rl := NewIPRateLimiter(testLimits)

	first := rl.GetLimiters("192.168.1.1")
	if first.Normal == nil || first.Cached == nil || first.Sync == nil {
		t.Fatal("Expected all tiers to be created")
	}
	if rl.GetLimiters("192.168.1.1") != first {
		t.Error("Expected the same limiters for the same IP")
	}
	if rl.GetLimiters("192.168.1.2") == first {
		t.Error("Expected different limiters for different IPs")
	}
	if rl.Size() != 2 {
		t.Errorf("Expected 2 clients, got %d", rl.Size())
	}
}

func TestRateLimiting_Tiers(t *testing.T) {
	rl := NewIPRateLimiter(testLimits)
	l := rl.GetLimiters("192.168.1.1")

	if !l.Normal.Allow() {
		t.Error("Expected first request to be allowed on normal tier")
	}
	if l.Normal.Allow() {
		t.Error("Expected second immediate request to be rejected on normal tier")
	}

	for i := 0; i < 5; i++ {
		if !l.Cached.Allow() {
			t.Errorf("Expected cached request %d to be allowed", i+1)
		}
	}
	if l.Cached.Allow() {
		t.Error("Expected cached tier to be exhausted")
	}

	// Sync tier is independent of the other two
	for i := 0; i < 3; i++ {
		if !l.Sync.Allow() {
			t.Errorf("Expected sync request %d to be allowed", i+1)
		}
	}
	if l.Sync.Allow() {
		t.Error("Expected sync tier to be exhausted")
	}
}

func TestRateLimiting_Refill(t *testing.T) {
	rl := NewIPRateLimiter(Limits{
		Normal: Tier{Rate: rate.Limit(100), Burst: 1},
		Cached: Tier{Rate: rate.Limit(1), Burst: 1},
		Sync:   Tier{Rate: rate.Limit(1), Burst: 1},
	})
	l := rl.GetLimiters("10.0.0.1")

	l.Normal.Allow()
	if l.Normal.Allow() {
		t.Fatal("Expected normal tier to be empty")
	}

	time.Sleep(20 * time.Millisecond)
	if !l.Normal.Allow() {
		t.Error("Expected normal tier to refill")
	}
}

func TestRemaining(t *testing.T) {
	l := rate.NewLimiter(rate.Limit(1), 3)
	if got := Remaining(l); got != 3 {
		t.Errorf("Expected 3 tokens, got %d", got)
	}
	l.Allow()
	l.Allow()
	if got := Remaining(l); got != 1 {
		t.Errorf("Expected 1 token, got %d", got)
	}
	l.Allow()
	l.Allow()
	if got := Remaining(l); got != 0 {
		t.Errorf("Expected remaining to floor at 0, got %d", got)
	}
}

func TestCleanup(t *testing.T) {
	rl := NewIPRateLimiter(testLimits)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.GetLimiters("old")
	now = now.Add(10 * time.Minute)
	rl.GetLimiters("recent")

	if removed := rl.Cleanup(5 * time.Minute); removed != 1 {
		t.Errorf("Expected 1 client removed, got %d", removed)
	}
	if rl.Size() != 1 {
		t.Errorf("Expected 1 client left, got %d", rl.Size())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trustProxy bool
		expected   string
	}{
		{"ipv4 with port", "192.168.1.1:54321", "", false, "192.168.1.1"},
		{"ipv6 with port", "[::1]:8080", "", false, "::1"},
		{"no port", "192.168.1.1", "", false, "192.168.1.1"},
		{"forwarded ignored", "10.0.0.1:1234", "203.0.113.5", false, "10.0.0.1"},
		{"forwarded trusted", "10.0.0.1:1234", "203.0.113.5, 10.0.0.1", true, "203.0.113.5"},
		{"trusted but absent", "10.0.0.1:1234", "", true, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("ClientIP() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
