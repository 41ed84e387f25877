package playback

import (
	"context"
	"errors"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/lrc"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo describes what a session is playing
type SessionInfo struct {
	TrackID string
	Track   string
	Source  string
}

// Sample is the result of pushing one player time sample
type Sample struct {
	SessionID   string    `json:"sessionId"`
	Time        float64   `json:"time"`
	ActiveIndex int       `json:"activeIndex"`
	Active      bool      `json:"active"`
	Scroll      bool      `json:"scroll"`
	Line        *lrc.Line `json:"line,omitempty"`
}

// Snapshot is a read-only view of a session
type Snapshot struct {
	ID          string     `json:"sessionId"`
	TrackID     string     `json:"trackId"`
	Track       string     `json:"track,omitempty"`
	Source      string     `json:"source"`
	ActiveIndex int        `json:"activeIndex"`
	LastTime    float64    `json:"lastTime"`
	Scrolls     int        `json:"scrolls"`
	Lines       []lrc.Line `json:"lyrics"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastSeen    time.Time  `json:"lastSeen"`
}

type session struct {
	id        string
	info      SessionInfo
	cursor    *Cursor
	scrolls   int
	createdAt time.Time
	lastSeen  time.Time
}

// Manager owns the live sync sessions. Each session has one cursor and the
// manager is the only thing that drives it.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*session
	idleTimeout time.Duration
	offset      float64
	now         func() time.Time
}

// NewManager creates a manager. Sessions idle for longer than idleTimeout are
// dropped by Sweep; a zero timeout keeps them until they are ended.
func NewManager(idleTimeout time.Duration, offset float64) *Manager {
	return &Manager{
		sessions:    make(map[string]*session),
		idleTimeout: idleTimeout,
		offset:      offset,
		now:         time.Now,
	}
}

// Create starts a session over lines and returns its snapshot
func (m *Manager) Create(lines []lrc.Line, info SessionInfo) Snapshot {
	now := m.now()
	s := &session{
		id:        uuid.NewString(),
		info:      info,
		createdAt: now,
		lastSeen:  now,
	}
	s.cursor = NewCursorWithOffset(lines, m.offset, func(int) {
		s.scrolls++
	})

	m.mu.Lock()
	m.sessions[s.id] = s
	count := len(m.sessions)
	snapshot := s.snapshot()
	m.mu.Unlock()

	log.Infof("%s Started %s for track %s (%d lines, source %s, %d active)",
		logcolors.LogSession, s.id, info.TrackID, len(lines), info.Source, count)
	return snapshot
}

// Push feeds a time sample to the session's cursor
func (m *Manager) Push(id string, currentTime float64) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Sample{}, ErrSessionNotFound
	}
	s.lastSeen = m.now()

	index, changed := s.cursor.Update(currentTime)
	sample := Sample{
		SessionID:   id,
		Time:        currentTime,
		ActiveIndex: index,
		Scroll:      changed,
	}
	// Before the first timestamp the cursor still points at line 0, but nothing is sung yet
	lines := s.cursor.Lines()
	sample.Active = indexAt(lines, currentTime+m.offset) != NoIndex
	if sample.Active && index >= 0 && index < len(lines) {
		line := lines[index]
		sample.Line = &line
	}

	if changed {
		log.Debugf("%s %s scrolled to line %d at %.2fs", logcolors.LogSession, id, index, currentTime)
	}
	return sample, nil
}

// Get returns the session's current state
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// End removes the session
func (m *Manager) End(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	log.Infof("%s Ended %s", logcolors.LogSession, id)
	return nil
}

// ReplaceLines swaps the lyrics of every session playing trackID and restarts
// their cursors. It returns the number of sessions updated.
func (m *Manager) ReplaceLines(trackID string, lines []lrc.Line, source string) int {
	if trackID == "" {
		return 0
	}

	m.mu.Lock()
	updated := 0
	for _, s := range m.sessions {
		if s.info.TrackID != trackID {
			continue
		}
		s.cursor.Reset(lines)
		s.info.Source = source
		updated++
	}
	m.mu.Unlock()

	if updated > 0 {
		log.Infof("%s Replaced lyrics of %d sessions for track %s (%d lines, source %s)",
			logcolors.LogSession, updated, trackID, len(lines), source)
	}
	return updated
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns snapshots of all live sessions, oldest first
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	snapshots := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshots = append(snapshots, s.snapshot())
	}
	m.mu.Unlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Sweep drops sessions that have not received a sample within the idle timeout
func (m *Manager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.idleTimeout)
	removed := 0

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		log.Infof("%s Expired %d idle sessions", logcolors.LogSession, removed)
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// snapshot must be called with the manager lock held
func (s *session) snapshot() Snapshot {
	return Snapshot{
		ID:          s.id,
		TrackID:     s.info.TrackID,
		Track:       s.info.Track,
		Source:      s.info.Source,
		ActiveIndex: s.cursor.ActiveIndex(),
		LastTime:    s.cursor.LastTime(),
		Scrolls:     s.scrolls,
		Lines:       s.cursor.Lines(),
		CreatedAt:   s.createdAt,
		LastSeen:    s.lastSeen,
	}
}
