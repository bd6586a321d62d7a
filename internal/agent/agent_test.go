// agent_test.go — shared fixtures for session and mux tests.
package agent

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/browserlink/browserlink/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() config.Config {
	return config.Config{
		Addr:                 "127.0.0.1:0",
		PingInterval:         10 * time.Second,
		PingTimeout:          5 * time.Second,
		PingFailureThreshold: 3,
		StaleSessionAfter:    30 * time.Second,
		WriteTimeout:         200 * time.Millisecond,
		DefaultActionTimeout: 80 * time.Millisecond,
		DOMSnapshotTimeout:   80 * time.Millisecond,
		AccessibilityTimeout: 80 * time.Millisecond,
		MinActionTimeout:     10 * time.Millisecond,
		MaxActionTimeout:     time.Second,
		DefaultPageSize:      50,
		MaxPageSize:          200,
	}
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		PingInterval:     10 * time.Second,
		PingTimeout:      5 * time.Second,
		FailureThreshold: 3,
		WriteTimeout:     200 * time.Millisecond,
	}
}

// newConnPair upgrades one real WebSocket and returns both ends.
func newConnPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { clientSide.Close() })

	select {
	case serverSide = <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no upgraded connection")
	}
	t.Cleanup(func() { serverSide.Close() })
	return serverSide, clientSide
}

type contentUpdate struct {
	tabID   int
	source  string
	url     string
	payload json.RawMessage
}

type actionReply struct {
	tabID   int
	action  string
	payload json.RawMessage
}

// sinkRecorder records SnapshotSink calls for assertions.
type sinkRecorder struct {
	mu       sync.Mutex
	content  []contentUpdate
	replies  []actionReply
	debugger []int
}

func (r *sinkRecorder) ApplyContentUpdate(tabID int, source, url string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = append(r.content, contentUpdate{tabID: tabID, source: source, url: url, payload: payload})
}

func (r *sinkRecorder) ApplyActionReply(tabID int, action string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, actionReply{tabID: tabID, action: action, payload: payload})
}

func (r *sinkRecorder) AppendDebuggerEvent(tabID int, event json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugger = append(r.debugger, tabID)
}

func (r *sinkRecorder) replyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies)
}

func (r *sinkRecorder) contentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.content)
}

func (r *sinkRecorder) debuggerTabs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.debugger...)
}

type resolvedCall struct {
	requestID string
	data      json.RawMessage
	agentErr  string
}

// resolverRecorder records Resolver calls for session tests.
type resolverRecorder struct {
	mu       sync.Mutex
	resolved []resolvedCall
	failed   []string
}

func (r *resolverRecorder) Resolve(requestID string, data json.RawMessage, agentErr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, resolvedCall{requestID: requestID, data: data, agentErr: agentErr})
	return true
}

func (r *resolverRecorder) FailSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, sessionID)
}

func (r *resolverRecorder) resolvedCalls() []resolvedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resolvedCall(nil), r.resolved...)
}

func (r *resolverRecorder) failedSessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
