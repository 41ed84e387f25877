package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

func TestNtfyNotifier_Send(t *testing.T) {
	var gotTitle, gotBody, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := &NtfyNotifier{Topic: "karaoke-alerts", Server: server.URL + "/"}
	if err := n.Send(context.Background(), "Subject", "Body text"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/karaoke-alerts" {
		t.Errorf("path = %q, want /karaoke-alerts", gotPath)
	}
	if gotTitle != "Subject" || gotBody != "Body text" {
		t.Errorf("got title %q body %q", gotTitle, gotBody)
	}
}

func TestNtfyNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	n := &NtfyNotifier{Topic: "t", Server: server.URL}
	err := n.Send(context.Background(), "s", "m")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var payload map[string]interface{}
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := &TelegramNotifier{BotToken: "123:abc", ChatID: "42", APIBaseURL: server.URL}
	if err := n.Send(context.Background(), "Source DOWN", "details"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if payload["chat_id"] != "42" || payload["text"] != "*Source DOWN*\n\ndetails" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestTelegramNotifier_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := &TelegramNotifier{BotToken: "x", ChatID: "1", APIBaseURL: server.URL}
	if err := n.Send(ctx, "s", "m"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFormatAlert(t *testing.T) {
	tests := []struct {
		name        string
		event       *Event
		wantSubject string
		wantInBody  string
	}{
		{
			name:        "source down",
			event:       NewEvent(EventSourceDown, SeverityCritical, "").WithData("name", "musixmatch").WithData("failures", 5).WithData("cooldown", "5m0s"),
			wantSubject: "🚨 Lyrics Source DOWN",
			wantInBody:  "musixmatch source has failed 5 times",
		},
		{
			name:        "recovered",
			event:       NewEvent(EventSourceRecovered, SeverityInfo, "").WithData("name", "lrclib"),
			wantSubject: "ℹ️ Lyrics Source Recovered",
			wantInBody:  "lrclib",
		},
		{
			name:        "started",
			event:       NewEvent(EventServerStarted, SeverityInfo, "").WithData("port", "8080").WithData("sources", []string{"LRCLIB", "Genius"}),
			wantSubject: "ℹ️ Server Started",
			wantInBody:  "LRCLIB -> Genius",
		},
		{
			name:        "cache cleared",
			event:       NewEvent(EventCacheCleared, SeverityInfo, "").WithData("keys", 12),
			wantSubject: "ℹ️ Cache Cleared",
			wantInBody:  "12 keys",
		},
		{
			name:        "missing data does not panic",
			event:       NewEvent(EventSourceDown, SeverityCritical, ""),
			wantSubject: "🚨 Lyrics Source DOWN",
			wantInBody:  "failed 0 times",
		},
		{
			name:        "unknown type",
			event:       NewEvent("something_else", SeverityInfo, ""),
			wantSubject: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, message := formatAlert(tt.event)
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if !strings.Contains(message, tt.wantInBody) {
				t.Errorf("message %q does not contain %q", message, tt.wantInBody)
			}
		})
	}
}

func TestAlertHandler_Cooldown(t *testing.T) {
	rec := &recordingNotifier{}
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{rec}, CooldownDuration: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	h.now = func() time.Time { return now }

	down := func(name string) *Event {
		return NewEvent(EventSourceDown, SeverityCritical, "").WithData("name", name).WithData("failures", 5)
	}

	if !h.HandleEvent(down("lrclib")) {
		t.Error("Expected first alert to be sent")
	}
	if h.HandleEvent(down("lrclib")) {
		t.Error("Expected repeat alert to be suppressed")
	}
	if !h.HandleEvent(down("genius")) {
		t.Error("Expected a different source to alert independently")
	}

	now = now.Add(time.Minute)
	if !h.HandleEvent(down("lrclib")) {
		t.Error("Expected alert after cooldown")
	}
	if rec.count() != 3 {
		t.Errorf("Expected 3 sends, got %d", rec.count())
	}

	h.ResetCooldowns()
	if !h.HandleEvent(down("lrclib")) {
		t.Error("Expected alert after reset")
	}
}

func TestAlertHandler_NoNotifiers(t *testing.T) {
	h := NewAlertHandler(AlertConfig{})
	if h.HandleEvent(NewEvent(EventSourceRecovered, SeverityInfo, "").WithData("name", "x")) {
		t.Error("Expected nothing to be sent without notifiers")
	}
}

func TestAlertHandler_FailingNotifier(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("smtp down")}
	working := &recordingNotifier{}
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{failing, working}})

	if !h.HandleEvent(NewEvent(EventCacheCleared, SeverityInfo, "").WithData("keys", 1)) {
		t.Error("Expected success when one notifier works")
	}
	if failing.count() != 1 || working.count() != 1 {
		t.Errorf("Expected both notifiers to be tried, got %d and %d", failing.count(), working.count())
	}
}

func TestEventBus_Publish(t *testing.T) {
	bus := NewEventBus()
	specific := make(chan *Event, 1)
	all := make(chan *Event, 2)

	bus.Subscribe(EventSourceDown, func(e *Event) { specific <- e })
	bus.SubscribeAll(func(e *Event) { all <- e })

	bus.Publish(NewEvent(EventSourceDown, SeverityCritical, "down"))
	bus.Publish(NewEvent(EventCacheCleared, SeverityInfo, "cleared"))

	select {
	case e := <-specific:
		if e.Type != EventSourceDown {
			t.Errorf("specific handler got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("specific handler was not called")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatal("catch-all handler missed an event")
		}
	}

	select {
	case e := <-specific:
		t.Errorf("specific handler got unexpected %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
