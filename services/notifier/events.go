package notifier

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventSourceDown EventType = "source_down"

	// Warning events
	EventNoSourcesConfigured EventType = "no_sources_configured"

	// Info events
	EventSourceRecovered EventType = "source_recovered"
	EventServerStarted   EventType = "server_started"
	EventCacheCleared    EventType = "cache_cleared"
)

// Severity represents the severity level of an event
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event represents a system event
type Event struct {
	Type      EventType
	Severity  Severity
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// stringData returns a string field or "" when it is missing
func (e *Event) stringData(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func (e *Event) intData(key string) int {
	n, _ := e.Data[key].(int)
	return n
}

// EventHandler is a function that handles events
type EventHandler func(event *Event)

// EventBus fans events out to subscribers. Handlers run on their own goroutine.
type EventBus struct {
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
	mu          sync.RWMutex
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

var (
	globalBus *EventBus
	busOnce   sync.Once
)

// GetEventBus returns the process-wide bus
func GetEventBus() *EventBus {
	busOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

// Subscribe adds a handler for a specific event type
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives all events
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish sends an event to all subscribed handlers without waiting for them
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.allHandlers {
		go handler(event)
	}
}

// Helper functions for publishing common events

// PublishSourceDown reports a lyrics source whose circuit breaker opened
func PublishSourceDown(name string, failures int, cooldown time.Duration) {
	GetEventBus().Publish(NewEvent(EventSourceDown, SeverityCritical,
		"Lyrics source circuit breaker opened").
		WithData("name", name).
		WithData("failures", failures).
		WithData("cooldown", cooldown.String()))
}

// PublishSourceRecovered reports a source whose circuit breaker closed again
func PublishSourceRecovered(name string) {
	GetEventBus().Publish(NewEvent(EventSourceRecovered, SeverityInfo,
		"Lyrics source is operational again").
		WithData("name", name))
}

// PublishServerStarted reports a successful startup and the source order
func PublishServerStarted(port string, sources []string) {
	severity := SeverityInfo
	eventType := EventServerStarted
	if len(sources) == 0 {
		severity = SeverityWarning
		eventType = EventNoSourcesConfigured
	}
	GetEventBus().Publish(NewEvent(eventType, severity, "Server started").
		WithData("port", port).
		WithData("sources", sources))
}

// PublishCacheCleared reports an operator clearing the lyrics cache
func PublishCacheCleared(keys int) {
	GetEventBus().Publish(NewEvent(EventCacheCleared, SeverityInfo,
		"Lyrics cache has been cleared").
		WithData("keys", keys))
}
