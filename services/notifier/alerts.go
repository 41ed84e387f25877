package notifier

import (
	"context"
	"fmt"
	"karaoke-api-go/logcolors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultAlertCooldown is the minimum gap between alerts with the same key
	DefaultAlertCooldown = 15 * time.Minute

	sendTimeout = 30 * time.Second
)

// AlertHandler turns events into notifications, at most one per event type and
// source within the cooldown
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[string]time.Time
	cooldownDuration time.Duration
	now              func() time.Time
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[string]time.Time),
		cooldownDuration: cooldown,
		now:              time.Now,
	}
}

// Start subscribes the handler to bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(func(event *Event) { h.HandleEvent(event) })
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats and sends one event, unless its cooldown is active.
// It reports whether an alert went out.
func (h *AlertHandler) HandleEvent(event *Event) bool {
	subject, message := formatAlert(event)
	if subject == "" {
		return false
	}

	key := cooldownKey(event)
	if !h.shouldAlert(key) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, key)
		return false
	}

	return h.sendAlert(subject, message)
}

// cooldownKey separates sources so one flapping source does not mute another
func cooldownKey(event *Event) string {
	if name := event.stringData("name"); name != "" {
		return string(event.Type) + ":" + name
	}
	return string(event.Type)
}

func (h *AlertHandler) shouldAlert(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	lastAlert, exists := h.cooldowns[key]
	if !exists || now.Sub(lastAlert) >= h.cooldownDuration {
		h.cooldowns[key] = now
		return true
	}
	return false
}

// formatAlert formats an event into a notification message
func formatAlert(event *Event) (subject, message string) {
	switch event.Type {
	case EventSourceDown:
		subject = "Lyrics Source DOWN"
		message = fmt.Sprintf(
			"The %s source has failed %d times in a row.\n\n"+
				"Lookups will skip it for %s and fall through to the next source.\n\n"+
				"Action: Check the upstream status and credentials.",
			event.stringData("name"), event.intData("failures"), event.stringData("cooldown"))

	case EventNoSourcesConfigured:
		subject = "No Lyrics Sources"
		message = fmt.Sprintf(
			"The server started on port %s without any lyrics source.\n\n"+
				"Only uploaded lyrics can be served.",
			event.stringData("port"))

	case EventSourceRecovered:
		subject = "Lyrics Source Recovered"
		message = fmt.Sprintf("The %s source is answering again.", event.stringData("name"))

	case EventServerStarted:
		sources, _ := event.Data["sources"].([]string)
		subject = "Server Started"
		message = fmt.Sprintf("Server started on port %s.\n\nSources in order: %s",
			event.stringData("port"), strings.Join(sources, " -> "))

	case EventCacheCleared:
		subject = "Cache Cleared"
		message = fmt.Sprintf("The lyrics cache was cleared (%d keys).", event.intData("keys"))

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}

	return subject, message
}

// sendAlert sends the alert through all configured notifiers
func (h *AlertHandler) sendAlert(subject, message string) bool {
	if len(h.notifiers) == 0 {
		log.Debugf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return false
	}

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(ctx, subject, message); err != nil {
			log.Errorf("%s Failed to send alert via %s: %v", logcolors.LogNotifier, n.Name(), err)
			continue
		}
		successCount++
	}

	if successCount > 0 {
		log.Infof("%s Alert sent via %d/%d notifiers", logcolors.LogNotifier, successCount, len(h.notifiers))
	}
	return successCount > 0
}

// ResetCooldowns forgets every cooldown
func (h *AlertHandler) ResetCooldowns() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cooldowns = make(map[string]time.Time)
}
