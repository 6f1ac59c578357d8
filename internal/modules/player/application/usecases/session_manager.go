package usecases

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// Handle pairs a session with the lock that serializes access to it.
// Every mutation and every consistent read goes through With/View, which
// is the single-writer discipline the session model requires: transitions
// on one session apply in dispatch order while different sessions proceed
// fully in parallel.
type Handle struct {
	mu      sync.Mutex
	session *domain.Session
	touched time.Time
}

// With runs fn with exclusive access to the session.
func (h *Handle) With(fn func(*domain.Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.touched = time.Now()
	return fn(h.session)
}

// View returns a consistent snapshot of the session.
func (h *Handle) View() domain.SessionView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.View()
}

// IdleSince returns the time of the last transition through this handle.
func (h *Handle) IdleSince() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.touched
}

// SessionManager is the process-wide registry mapping a guild to its
// playback session. Entries live until the session is stopped.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*Handle
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[snowflake.ID]*Handle),
	}
}

// GetOrCreate returns the guild's session handle, atomically creating a
// new Idle session if none exists. Reports whether a session was created.
func (m *SessionManager) GetOrCreate(
	guildID, voiceChannelID, textChannelID snowflake.ID,
) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.sessions[guildID]; ok {
		return h, false
	}

	h := &Handle{
		session: domain.NewSession(guildID, voiceChannelID, textChannelID),
		touched: time.Now(),
	}
	m.sessions[guildID] = h
	return h, true
}

// Get returns the guild's session handle, or false if none exists.
func (m *SessionManager) Get(guildID snowflake.ID) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.sessions[guildID]
	return h, ok
}

// Remove evicts the guild's session. Called only from the Stopped
// transition.
func (m *SessionManager) Remove(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, guildID)
}

// Snapshot returns a read-only projection of the guild's session.
func (m *SessionManager) Snapshot(guildID snowflake.ID) (domain.SessionView, error) {
	h, ok := m.Get(guildID)
	if !ok {
		return domain.SessionView{}, ErrSessionNotFound
	}
	return h.View(), nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ActiveCount returns the number of sessions currently playing or paused.
// Idle sessions stay registered until reaped, so Count alone cannot tell
// whether anything is audible.
func (m *SessionManager) ActiveCount() int {
	m.mu.RLock()
	handles := make([]*Handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	active := 0
	for _, h := range handles {
		switch h.View().State {
		case domain.StatePlaying, domain.StatePaused:
			active++
		}
	}
	return active
}

// GuildIDs returns the guilds with live sessions.
func (m *SessionManager) GuildIDs() []snowflake.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]snowflake.ID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}
