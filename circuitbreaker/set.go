package circuitbreaker

import (
	"sort"
	"sync"
	"time"
)

// Set holds one breaker per upstream, created on first use with shared settings
type Set struct {
	mu       sync.Mutex
	template Config
	breakers map[string]*CircuitBreaker
}

// NewSet creates an empty set; every breaker it creates copies template except for Name
func NewSet(template Config) *Set {
	return &Set{
		template: template,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it if needed
func (s *Set) Get(name string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[name]; ok {
		return cb
	}
	cfg := s.template
	cfg.Name = name
	cb := New(cfg)
	s.breakers[name] = cb
	return cb
}

// Snapshot is a point-in-time view of one breaker, shaped for the ops endpoint
type Snapshot struct {
	Name           string  `json:"name"`
	State          string  `json:"state"`
	Failures       int     `json:"failures"`
	Threshold      int     `json:"threshold"`
	LastFailure    string  `json:"lastFailure,omitempty"`
	RetryInSeconds float64 `json:"retryInSeconds"`
}

// Snapshots returns the state of every breaker, sorted by name
func (s *Set) Snapshots() []Snapshot {
	s.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(s.breakers))
	for _, cb := range s.breakers {
		breakers = append(breakers, cb)
	}
	s.mu.Unlock()

	out := make([]Snapshot, 0, len(breakers))
	for _, cb := range breakers {
		state, failures, lastFailure := cb.Stats()
		snap := Snapshot{
			Name:           cb.Name(),
			State:          state.String(),
			Failures:       failures,
			Threshold:      cb.Threshold(),
			RetryInSeconds: cb.TimeUntilRetry().Seconds(),
		}
		if !lastFailure.IsZero() {
			snap.LastFailure = lastFailure.Format(time.RFC3339)
		}
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset closes one breaker by name. Returns false if it was never created.
func (s *Set) Reset(name string) bool {
	s.mu.Lock()
	cb, ok := s.breakers[name]
	s.mu.Unlock()
	if ok {
		cb.Reset()
	}
	return ok
}

// ResetAll closes every breaker
func (s *Set) ResetAll() {
	s.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(s.breakers))
	for _, cb := range s.breakers {
		breakers = append(breakers, cb)
	}
	s.mu.Unlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}
