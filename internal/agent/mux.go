// mux.go — Request multiplexer: client calls in, correlated replies out.
//
// Every dispatch registers a pending call keyed by a fresh correlation id,
// serializes one action frame, and hands it to the current session's writer.
// The session reader, the deadline timer, the cancellation path, and session
// eviction all funnel through a compare-and-remove on the correlation id, so
// exactly one outcome reaches the waiter.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/browserlink/browserlink/internal/config"
	"github.com/browserlink/browserlink/internal/types"
)

type outcome struct {
	data json.RawMessage
	err  error
}

type pendingCall struct {
	id        string
	action    string
	sessionID string
	createdAt time.Time
	timer     *time.Timer
	done      chan outcome // buffered 1; delivered to exactly once
}

// Mux owns the correlation table.
type Mux struct {
	cfg       config.Config
	logger    logrus.FieldLogger
	registry  *Registry
	snapshots SnapshotSink

	mu      sync.Mutex
	pending map[string]*pendingCall

	newID func() string
}

// NewMux creates a multiplexer over the given session registry. snapshots
// may be nil when no cache seeding is wanted (tests).
func NewMux(cfg config.Config, logger logrus.FieldLogger, registry *Registry, snapshots SnapshotSink) *Mux {
	return &Mux{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		snapshots: snapshots,
		pending:   make(map[string]*pendingCall),
		newID:     uuid.NewString,
	}
}

// Dispatch sends one action to the current agent session and waits for the
// correlated reply, the per-action deadline, cancellation, or session
// eviction, whichever comes first. On success the reply seeds the snapshot
// cache before the caller resumes.
func (m *Mux) Dispatch(ctx context.Context, action string, tabID int, params map[string]any, timeoutOverride time.Duration) (json.RawMessage, error) {
	sess := m.registry.Current()
	if sess == nil {
		return nil, ErrNoPeer
	}

	timeout := m.cfg.ActionTimeout(action, timeoutOverride)
	pc := &pendingCall{
		id:        m.newID(),
		action:    action,
		sessionID: sess.ID,
		createdAt: time.Now(),
		done:      make(chan outcome, 1),
	}
	// The timer is armed before the entry is published: every completion
	// path reads pc.timer after finding the entry under m.mu, so the write
	// must come first.
	m.mu.Lock()
	pc.timer = time.AfterFunc(timeout, func() {
		m.complete(pc.id, outcome{err: &TimeoutError{Action: action, Timeout: timeout}})
	})
	m.pending[pc.id] = pc
	m.mu.Unlock()

	frame, err := json.Marshal(types.ActionFrame{
		Action:    action,
		RequestID: pc.id,
		TabID:     tabID,
		Params:    params,
	})
	if err != nil {
		m.abandon(pc.id)
		return nil, err
	}

	if err := m.submit(pc, sess, frame); err != nil {
		m.abandon(pc.id)
		return nil, err
	}

	select {
	case out := <-pc.done:
		if out.err != nil {
			return nil, out.err
		}
		if m.snapshots != nil {
			m.snapshots.ApplyActionReply(tabID, action, out.data)
		}
		return out.data, nil
	case <-ctx.Done():
		m.Cancel(pc.id)
		return nil, ctx.Err()
	}
}

// submit hands the frame to the session writer. A session that raced into
// eviction between selection and write gets one re-selection.
func (m *Mux) submit(pc *pendingCall, sess *Session, frame []byte) error {
	err := sess.Send(frame)
	if err == nil || !errors.Is(err, ErrPeerGone) {
		return err
	}
	retry := m.registry.Current()
	if retry == nil || retry.ID == sess.ID {
		return err
	}
	if !m.reassign(pc.id, retry.ID) {
		// Already completed (timer or eviction won the race); the original
		// error stands.
		return err
	}
	return retry.Send(frame)
}

// Resolve delivers a reply frame to its pending call. Returns false when the
// correlation id is unknown (timed out, cancelled, or never ours); such
// frames are dropped silently per protocol.
func (m *Mux) Resolve(requestID string, data json.RawMessage, agentErr string) bool {
	out := outcome{data: data}
	if agentErr != "" {
		out = outcome{err: &AgentError{Text: agentErr}}
	}
	return m.complete(requestID, out)
}

// Cancel removes a pending call without delivering any outcome. A reply
// arriving later is dropped and never reaches the cache.
func (m *Mux) Cancel(requestID string) {
	m.abandon(requestID)
}

// FailSession vacates every pending call routed to the given session with
// ErrPeerGone. Invoked by the session as eviction begins.
func (m *Mux) FailSession(sessionID string) {
	m.mu.Lock()
	var doomed []*pendingCall
	for _, pc := range m.pending {
		if pc.sessionID == sessionID {
			doomed = append(doomed, pc)
		}
	}
	m.mu.Unlock()

	for _, pc := range doomed {
		m.complete(pc.id, outcome{err: ErrPeerGone})
	}
}

// PendingCount reports the number of in-flight calls.
func (m *Mux) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// complete removes the pending call and delivers the outcome. The remove is
// the uniqueness point: whichever of reply, timeout, or eviction gets here
// first wins, the rest find the id gone.
func (m *Mux) complete(requestID string, out outcome) bool {
	m.mu.Lock()
	pc, ok := m.pending[requestID]
	if ok {
		delete(m.pending, requestID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	if pc.timer != nil {
		pc.timer.Stop()
	}
	pc.done <- out
	return true
}

// abandon removes the pending call without delivering anything.
func (m *Mux) abandon(requestID string) {
	m.mu.Lock()
	pc, ok := m.pending[requestID]
	if ok {
		delete(m.pending, requestID)
	}
	m.mu.Unlock()
	if ok && pc.timer != nil {
		pc.timer.Stop()
	}
}

// reassign points a still-pending call at a different session. Returns false
// when the call has already completed.
func (m *Mux) reassign(requestID, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.pending[requestID]
	if !ok {
		return false
	}
	pc.sessionID = sessionID
	return true
}
