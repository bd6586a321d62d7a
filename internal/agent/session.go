// session.go — One WebSocket peer: reader/writer pumps and liveness.
//
// Exactly two long-lived goroutines serve a session: a reader that consumes
// frames in arrival order and classifies them, and a writer draining a
// bounded queue. A ticker drives in-band ping probes; three consecutive
// failed ticks evict the session. Eviction is one-way: once begun no new
// writes are accepted and every pending call routed here fails with
// ErrPeerGone.
package agent

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/browserlink/browserlink/internal/types"
	"github.com/browserlink/browserlink/internal/util"
)

// State is the lifecycle position of a session.
type State int32

const (
	StateActive State = iota
	StateEvicting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEvicting:
		return "evicting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SnapshotSink receives browser data extracted from inbound frames. The
// snapshot cache implements it.
type SnapshotSink interface {
	ApplyContentUpdate(tabID int, source, url string, payload json.RawMessage)
	AppendDebuggerEvent(tabID int, event json.RawMessage)
	ApplyActionReply(tabID int, action string, payload json.RawMessage)
}

// Resolver correlates reply frames back to pending calls. The Mux
// implements it.
type Resolver interface {
	Resolve(requestID string, data json.RawMessage, agentErr string) bool
	FailSession(sessionID string)
}

// SessionConfig is the subset of bridge configuration a session needs.
type SessionConfig struct {
	PingInterval     time.Duration
	PingTimeout      time.Duration
	FailureThreshold int
	WriteTimeout     time.Duration
}

const sendQueueDepth = 64

// Session owns one agent WebSocket connection.
type Session struct {
	ID string

	conn      *websocket.Conn
	cfg       SessionConfig
	logger    logrus.FieldLogger
	resolver  Resolver
	snapshots SnapshotSink

	sendCh  chan []byte
	evicted chan struct{} // closed when eviction begins
	done    chan struct{} // closed when the reader has drained

	state        atomic.Int32
	lastActivity atomic.Int64 // UnixNano
	lastPong     atomic.Int64 // UnixNano
	lastPingSent atomic.Int64 // UnixNano

	pingFailures int // touched only by the ping goroutine

	evictOnce sync.Once
	closeOnce sync.Once

	// onEvicted is invoked once when eviction begins (registry removal).
	onEvicted func(*Session)
}

// NewSession wraps an upgraded WebSocket connection. Call Start to launch
// the pumps.
func NewSession(conn *websocket.Conn, cfg SessionConfig, logger logrus.FieldLogger,
	resolver Resolver, snapshots SnapshotSink, onEvicted func(*Session),
) *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		conn:      conn,
		cfg:       cfg,
		resolver:  resolver,
		snapshots: snapshots,
		sendCh:    make(chan []byte, sendQueueDepth),
		evicted:   make(chan struct{}),
		done:      make(chan struct{}),
		onEvicted: onEvicted,
	}
	s.logger = logger.WithField("session", s.ID)
	s.lastActivity.Store(now.UnixNano())
	s.lastPong.Store(now.UnixNano())
	return s
}

// Start launches the reader, writer, and liveness goroutines.
func (s *Session) Start() {
	util.SafeGo(s.logger, s.readLoop)
	util.SafeGo(s.logger, s.writeLoop)
	util.SafeGo(s.logger, s.pingLoop)
}

// State reports the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// LastActivity is the time of the last inbound frame.
func (s *Session) LastActivity() time.Time { return time.Unix(0, s.lastActivity.Load()) }

// LastPong is the time of the last liveness pong.
func (s *Session) LastPong() time.Time { return time.Unix(0, s.lastPong.Load()) }

// Done is closed once the session has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send enqueues one serialized frame for the writer. Fails with ErrPeerGone
// once eviction has begun, or ErrPeerCongested when the queue stays full
// past the write timeout.
func (s *Session) Send(frame []byte) error {
	if s.State() != StateActive {
		return ErrPeerGone
	}
	timer := time.NewTimer(s.cfg.WriteTimeout)
	defer timer.Stop()
	select {
	case s.sendCh <- frame:
		return nil
	case <-s.evicted:
		return ErrPeerGone
	case <-timer.C:
		return ErrPeerCongested
	}
}

// ForceEvict moves the session to evicting regardless of socket health.
// Used by the stale-session sweep and the cleanup endpoint.
func (s *Session) ForceEvict(reason string) {
	s.beginEviction(reason)
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.beginEviction("socket read failed: " + err.Error())
			break
		}
		s.touch()

		var msg types.AgentMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.WithError(err).Warn("dropping unparseable agent frame")
			continue
		}
		s.handleFrame(&msg, data)
	}
	s.finishClose()
}

// handleFrame classifies one inbound frame. Runs on the reader goroutine,
// so frames are processed strictly in arrival order.
func (s *Session) handleFrame(msg *types.AgentMessage, raw []byte) {
	switch msg.Type {
	case types.MsgPong:
		if s.State() == StateActive {
			s.lastPong.Store(time.Now().UnixNano())
		}
	case types.MsgPing:
		s.echoPong(msg.Timestamp)
	case types.MsgConnection:
		s.logger.WithField("agentVersion", msg.Version).Info("agent attached")
	case types.MsgBrowserData:
		if s.snapshots != nil {
			s.snapshots.ApplyContentUpdate(msg.TabID, msg.Source, msg.URL, msg.Data)
		}
	case types.MsgResponse:
		if s.resolver != nil {
			s.resolver.Resolve(msg.RequestID, msg.Data, "")
		}
	case types.MsgError:
		errText := msg.Error
		if errText == "" {
			errText = "agent reported an unspecified error"
		}
		if s.resolver != nil {
			s.resolver.Resolve(msg.RequestID, nil, errText)
		}
	case types.MsgDevtools, types.MsgDebuggerEvent:
		if s.snapshots != nil {
			event := msg.Data
			if len(event) == 0 {
				event = raw
			}
			s.snapshots.AppendDebuggerEvent(msg.TabID, event)
		}
	default:
		s.logger.WithField("frameType", msg.Type).Debug("dropping unknown agent frame type")
	}
}

func (s *Session) echoPong(originalTimestamp int64) {
	frame, err := json.Marshal(types.PongFrame{
		Type:              types.MsgPong,
		Timestamp:         time.Now().UnixMilli(),
		OriginalTimestamp: originalTimestamp,
	})
	if err != nil {
		return
	}
	if err := s.Send(frame); err != nil {
		s.logger.WithError(err).Debug("could not echo pong")
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case frame := <-s.sendCh:
			deadline := time.Now().Add(s.cfg.WriteTimeout + s.cfg.PingTimeout)
			_ = s.conn.SetWriteDeadline(deadline)
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.beginEviction("socket write failed: " + err.Error())
				return
			}
		case <-s.evicted:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session evicted")
			_ = s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
			return
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.pingTick(time.Now()) {
				return
			}
		case <-s.evicted:
			return
		}
	}
}

// pingTick runs one liveness evaluation and emits the next probe. A tick
// fails when the last pong is older than 1.5× the ping interval, or when
// the previous probe went unanswered past the ping timeout. Returns true
// once the failure threshold evicts the session.
func (s *Session) pingTick(now time.Time) bool {
	lastPong := time.Unix(0, s.lastPong.Load())
	lastPing := time.Unix(0, s.lastPingSent.Load())

	window := s.cfg.PingInterval + s.cfg.PingInterval/2
	failed := now.Sub(lastPong) > window
	if !failed && lastPing.After(lastPong) && now.Sub(lastPing) > s.cfg.PingTimeout {
		failed = true
	}
	if failed {
		s.pingFailures++
	} else {
		s.pingFailures = 0
	}
	if s.pingFailures >= s.cfg.FailureThreshold {
		s.beginEviction("liveness probe failures reached threshold")
		return true
	}

	frame, err := json.Marshal(types.PingFrame{Type: types.MsgPing, Timestamp: now.UnixMilli()})
	if err != nil {
		return false
	}
	s.lastPingSent.Store(now.UnixNano())
	if err := s.Send(frame); err != nil {
		s.logger.WithError(err).Debug("could not enqueue liveness ping")
	}
	return false
}

// beginEviction moves the session to evicting exactly once: pending calls
// routed here fail, the socket closes (which unblocks the reader), and the
// registry forgets the session.
func (s *Session) beginEviction(reason string) {
	s.evictOnce.Do(func() {
		s.state.Store(int32(StateEvicting))
		s.logger.WithField("reason", reason).Info("evicting agent session")
		close(s.evicted)
		if s.resolver != nil {
			s.resolver.FailSession(s.ID)
		}
		_ = s.conn.Close()
		if s.onEvicted != nil {
			s.onEvicted(s)
		}
	})
}

func (s *Session) finishClose() {
	s.beginEviction("socket closed")
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)
		s.logger.Info("agent session closed")
	})
}
