// server_test.go — shared fixtures for the HTTP surface tests.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/browserlink/browserlink/internal/agent"
	"github.com/browserlink/browserlink/internal/cache"
	"github.com/browserlink/browserlink/internal/config"
	"github.com/browserlink/browserlink/internal/mcp"
)

func testConfig() config.Config {
	return config.Config{
		Addr:                 "127.0.0.1:8765",
		PingInterval:         10 * time.Second,
		PingTimeout:          5 * time.Second,
		PingFailureThreshold: 3,
		StaleSessionAfter:    30 * time.Second,
		SweepInterval:        30 * time.Second,
		WriteTimeout:         2 * time.Second,
		DefaultActionTimeout: 10 * time.Second,
		DOMSnapshotTimeout:   20 * time.Second,
		AccessibilityTimeout: 30 * time.Second,
		MinActionTimeout:     5 * time.Second,
		MaxActionTimeout:     120 * time.Second,
		MaxHTML:              50000,
		MaxText:              30000,
		MaxDOMNodes:          500,
		MaxDOMNodesHard:      2000,
		MaxRequestBody:       10000,
		MaxResponseBody:      10000,
		DefaultPageSize:      50,
		MaxPageSize:          200,
		CursorTTL:            5 * time.Minute,
	}
}

type dispatchCall struct {
	action  string
	tabID   int
	params  map[string]any
	timeout time.Duration
}

// stubDispatcher replaces the live multiplexer: replies come from a
// function, and every dispatch is recorded.
type stubDispatcher struct {
	mu    sync.Mutex
	reply func(action string, tabID int, params map[string]any) (json.RawMessage, error)
	calls []dispatchCall
}

func (d *stubDispatcher) Dispatch(ctx context.Context, action string, tabID int, params map[string]any, timeoutOverride time.Duration) (json.RawMessage, error) {
	d.mu.Lock()
	d.calls = append(d.calls, dispatchCall{action: action, tabID: tabID, params: params, timeout: timeoutOverride})
	d.mu.Unlock()
	if d.reply == nil {
		return json.RawMessage(`{}`), nil
	}
	return d.reply(action, tabID, params)
}

func (d *stubDispatcher) recorded() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

func newTestServer(t *testing.T, stub *stubDispatcher) (*Server, *cache.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := cache.NewStore(logger)
	srv := New(testConfig(), logger, agent.NewRegistry(logger), nil, store)
	if stub != nil {
		srv.dispatch = stub
	}
	return srv, store
}

// postMCP sends one JSON-RPC request through the full route stack.
func postMCP(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) mcp.JSONRPCResponse {
	t.Helper()
	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

// toolText extracts the text block a successful tools/call returned.
func toolText(t *testing.T, resp mcp.JSONRPCResponse) string {
	t.Helper()
	require.Nil(t, resp.Error, "expected a result, got error: %+v", resp.Error)
	var result mcp.ToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	return result.Content[0].Text
}

func callTool(t *testing.T, srv *Server, name, arguments string) mcp.JSONRPCResponse {
	t.Helper()
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, name, arguments)
	return decodeResponse(t, postMCP(t, srv, body))
}

func errorTag(t *testing.T, resp mcp.JSONRPCResponse) string {
	t.Helper()
	require.NotNil(t, resp.Error)
	tag, _ := resp.Error.Data["tag"].(string)
	return tag
}
