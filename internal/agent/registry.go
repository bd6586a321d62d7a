// registry.go — Live session set and current-session selection.
package agent

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionInfo is a point-in-time view of one session for health reporting.
type SessionInfo struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	LastActivity time.Time `json:"lastActivity"`
	LastPong     time.Time `json:"lastPong"`
}

// Registry tracks attached agent sessions. More than one session may exist
// transiently during a reconnect; selection always picks the active session
// with the most recent activity.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   logrus.FieldLogger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()
	r.logger.WithField("session", s.ID).WithField("sessions", count).Info("agent session registered")
}

// Remove forgets a session by id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Current returns the active session with the most recent activity, or nil.
func (r *Registry) Current() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Session
	for _, s := range r.sessions {
		if s.State() != StateActive {
			continue
		}
		if best == nil || s.LastActivity().After(best.LastActivity()) {
			best = s
		}
	}
	return best
}

// ActiveCount reports how many sessions are in the active state.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.State() == StateActive {
			n++
		}
	}
	return n
}

// Snapshot returns health info for every tracked session.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, SessionInfo{
			ID:           s.ID,
			State:        s.State().String(),
			LastActivity: s.LastActivity(),
			LastPong:     s.LastPong(),
		})
	}
	return out
}

// SweepStale force-evicts active sessions whose last activity is older than
// staleAfter. Covers half-open sockets the read loop never notices. Returns
// the number of sessions evicted.
func (r *Registry) SweepStale(staleAfter time.Duration) int {
	cutoff := time.Now().Add(-staleAfter)
	var stale []*Session
	r.mu.RLock()
	for _, s := range r.sessions {
		if s.State() == StateActive && s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range stale {
		s.ForceEvict("stale: no activity within threshold")
	}
	return len(stale)
}

// CloseAll evicts every session. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.ForceEvict("server shutting down")
	}
}
