// tools_test.go — tool shaping: pagination, filters, and size caps.
package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browserlink/browserlink/internal/mcp"
	"github.com/browserlink/browserlink/internal/types"
)

type pageEnvelopeJSON struct {
	Data       json.RawMessage `json:"data"`
	Count      int             `json:"count"`
	Total      int             `json:"total"`
	HasMore    bool            `json:"hasMore"`
	NextCursor *string         `json:"nextCursor"`
	Filters    map[string]any  `json:"filters"`
	Message    string          `json:"message"`
}

func decodePage(t *testing.T, text string) pageEnvelopeJSON {
	t.Helper()
	var page pageEnvelopeJSON
	require.NoError(t, json.Unmarshal([]byte(text), &page))
	return page
}

func consoleReply(n int) json.RawMessage {
	msgs := make([]types.ConsoleMessage, n)
	for i := range msgs {
		msgs[i] = types.ConsoleMessage{Level: "error", Text: fmt.Sprintf("error %d", i), Timestamp: int64(1000 + i)}
	}
	out, _ := json.Marshal(msgs)
	return out
}

func TestConsolePaginationChain(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return consoleReply(120), nil
	}}
	srv, _ := newTestServer(t, stub)

	first := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages", `{"pageSize":50}`)))
	assert.Equal(t, 50, first.Count)
	assert.Equal(t, 120, first.Total)
	assert.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)

	second := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages",
		fmt.Sprintf(`{"pageSize":50,"cursor":%q}`, *first.NextCursor))))
	assert.Equal(t, 50, second.Count)
	assert.Equal(t, 120, second.Total)
	assert.True(t, second.HasMore)
	require.NotNil(t, second.NextCursor)

	third := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages",
		fmt.Sprintf(`{"pageSize":50,"cursor":%q}`, *second.NextCursor))))
	assert.Equal(t, 20, third.Count)
	assert.False(t, third.HasMore)
	assert.Nil(t, third.NextCursor)

	// The union of the three pages is the input sequence, in order.
	var union []types.ConsoleMessage
	for _, page := range []pageEnvelopeJSON{first, second, third} {
		var items []types.ConsoleMessage
		require.NoError(t, json.Unmarshal(page.Data, &items))
		union = append(union, items...)
	}
	require.Len(t, union, 120)
	for i, msg := range union {
		assert.Equal(t, fmt.Sprintf("error %d", i), msg.Text)
	}

	// Exactly one agent round-trip; pages come from the frozen cursor.
	assert.Len(t, stub.recorded(), 1)
}

func TestConsoleExpiredCursorIsAResultNotAnError(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &stubDispatcher{})

	page := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages", `{"cursor":"long-gone"}`)))
	assert.Zero(t, page.Count)
	assert.False(t, page.HasMore)
	assert.Contains(t, page.Message, "restart pagination")
}

func TestConsoleDefaultLevelsAppliedOnDispatchPath(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		msgs := []types.ConsoleMessage{
			{Level: "error", Text: "kept", Timestamp: 1},
			{Level: "info", Text: "dropped", Timestamp: 2},
			{Level: "warn", Text: "kept too", Timestamp: 3},
		}
		out, _ := json.Marshal(msgs)
		return out, nil
	}}
	srv, _ := newTestServer(t, stub)

	page := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages", `{}`)))
	var items []types.ConsoleMessage
	require.NoError(t, json.Unmarshal(page.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "kept", items[0].Text)
	assert.Equal(t, "kept too", items[1].Text)
	assert.Equal(t, []any{"error", "warn"}, page.Filters["logLevels"])
}

func TestConsoleServedFromCacheSkipsAgent(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{}
	srv, store := newTestServer(t, stub)
	store.ApplyContentUpdate(7, types.SourceContent, "", json.RawMessage(
		`{"consoleLogs":[{"level":"error","text":"cached","timestamp":1}]}`))

	page := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages", `{"tabId":7}`)))
	var items []types.ConsoleMessage
	require.NoError(t, json.Unmarshal(page.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "cached", items[0].Text)
	assert.Empty(t, stub.recorded(), "cached data must not trigger a round-trip")
}

func TestNetworkFailedFirstOrdering(t *testing.T) {
	t.Parallel()
	reqs := []types.NetworkRequest{
		{Method: "GET", URL: "https://example.test/1", Status: 200},
		{Method: "GET", URL: "https://example.test/2", Status: 404},
		{Method: "GET", URL: "https://example.test/3", Status: 200},
		{Method: "GET", URL: "https://example.test/4", Status: 500},
		{Method: "GET", URL: "https://example.test/5", Status: 301},
	}
	encoded, _ := json.Marshal(reqs)
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return encoded, nil
	}}
	srv, _ := newTestServer(t, stub)

	page := decodePage(t, toolText(t, callTool(t, srv, "get_network_requests", `{"failedOnly":false}`)))
	var items []map[string]any
	require.NoError(t, json.Unmarshal(page.Data, &items))

	var statuses []float64
	for _, item := range items {
		statuses = append(statuses, item["status"].(float64))
	}
	assert.Equal(t, []float64{404, 500, 200, 200, 301}, statuses)
}

func TestNetworkStructuralFilterKeepsArrivalOrder(t *testing.T) {
	t.Parallel()
	reqs := []types.NetworkRequest{
		{Method: "GET", URL: "https://example.test/1", Status: 200},
		{Method: "GET", URL: "https://example.test/2", Status: 404},
	}
	encoded, _ := json.Marshal(reqs)
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return encoded, nil
	}}
	srv, _ := newTestServer(t, stub)

	page := decodePage(t, toolText(t, callTool(t, srv, "get_network_requests", `{"method":"GET"}`)))
	var items []map[string]any
	require.NoError(t, json.Unmarshal(page.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, float64(200), items[0]["status"])
}

func TestNetworkBodiesOmittedWithSize(t *testing.T) {
	t.Parallel()
	reqs := []types.NetworkRequest{
		{Method: "POST", URL: "https://example.test/api", Status: 200, RequestBody: `{"key":"value"}`},
	}
	encoded, _ := json.Marshal(reqs)
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return encoded, nil
	}}
	srv, _ := newTestServer(t, stub)

	page := decodePage(t, toolText(t, callTool(t, srv, "get_network_requests", `{}`)))
	var items []map[string]any
	require.NoError(t, json.Unmarshal(page.Data, &items))
	require.Len(t, items, 1)

	body, ok := items[0]["requestBody"].(map[string]any)
	require.True(t, ok, "omitted body placeholder expected")
	assert.Equal(t, true, body["omitted"])
	assert.Equal(t, float64(len(`{"key":"value"}`)), body["originalSize"])
}

func TestNetworkScalarAndListFilterForms(t *testing.T) {
	t.Parallel()
	reqs := []types.NetworkRequest{
		{Method: "GET", URL: "https://example.test/1", Status: 200},
		{Method: "GET", URL: "https://example.test/2", Status: 404},
		{Method: "GET", URL: "https://example.test/3", Status: 500},
	}
	encoded, _ := json.Marshal(reqs)
	newSrv := func() *Server {
		srv, _ := newTestServer(t, &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
			return encoded, nil
		}})
		return srv
	}

	scalar := decodePage(t, toolText(t, callTool(t, newSrv(), "get_network_requests", `{"status":404}`)))
	assert.Equal(t, 1, scalar.Count)

	list := decodePage(t, toolText(t, callTool(t, newSrv(), "get_network_requests", `{"status":[404,500]}`)))
	assert.Equal(t, 2, list.Count)
}

func TestPageContentShaping(t *testing.T) {
	t.Parallel()
	longText := strings.Repeat("t", 100)
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		pc := types.PageContent{
			URL:      "https://example.test",
			Title:    "Example",
			Text:     longText,
			HTML:     "<p>" + longText + "</p>",
			Metadata: map[string]string{"description": "demo"},
		}
		out, _ := json.Marshal(pc)
		return out, nil
	}}
	srv, _ := newTestServer(t, stub)

	text := toolText(t, callTool(t, srv, "get_page_content", `{"maxTextLength":40}`))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))

	assert.Equal(t, "https://example.test", out["url"])
	assert.Equal(t, true, out["textTruncated"])
	assert.Equal(t, float64(100), out["textLength"])
	assert.Contains(t, out["text"].(string), "[truncated: 100 chars total]")
	assert.NotNil(t, out["metadata"], "metadata included by default")
	assert.Nil(t, out["html"], "html excluded by default")

	withHTML := toolText(t, callTool(t, srv, "get_page_content", `{"includeHtml":true,"includeMetadata":false}`))
	out = nil
	require.NoError(t, json.Unmarshal([]byte(withHTML), &out))
	assert.NotNil(t, out["html"])
	assert.Nil(t, out["metadata"])
}

func TestDOMSnapshotToolForwardsDepthAndShapes(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		root := types.DOMNode{Tag: "html", Children: []*types.DOMNode{
			{Tag: "body", Children: []*types.DOMNode{
				{Tag: "script", Text: "evil()"},
				{Tag: "div", Attrs: map[string]string{"id": "app"}},
			}},
		}}
		out, _ := json.Marshal(root)
		return out, nil
	}}
	srv, _ := newTestServer(t, stub)

	text := toolText(t, callTool(t, srv, "get_dom_snapshot", `{"maxDepth":50}`))
	var out struct {
		DOM       *types.DOMNode `json:"dom"`
		NodeCount int            `json:"nodeCount"`
		Truncated bool           `json:"truncated"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, 3, out.NodeCount, "script pruned by default")
	assert.False(t, out.Truncated)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "getDOMSnapshot", calls[0].action)
	assert.Equal(t, 15, calls[0].params["maxDepth"], "depth clamps to the ceiling")
}

func TestDOMSnapshotSelectorMiss(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		out, _ := json.Marshal(types.DOMNode{Tag: "html"})
		return out, nil
	}}
	srv, _ := newTestServer(t, stub)

	resp := callTool(t, srv, "get_dom_snapshot", `{"selector":"#missing"}`)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "selector")
}

func TestPlainDispatchToolsForwardParams(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tool       string
		args       string
		wantAction string
		wantTabID  int
		wantParam  string
		wantValue  any
	}{
		{"execute_javascript", `{"tabId":3,"code":"1+1"}`, "executeScript", 3, "code", "1+1"},
		{"get_storage_data", `{"storageType":"session"}`, "getStorageData", 0, "storageType", "session"},
		{"emulate_device", `{"device":"iPhone 14"}`, "emulateDevice", 0, "device", "iPhone 14"},
		{"set_user_agent", `{"userAgent":"TestUA/1.0"}`, "setUserAgent", 0, "userAgent", "TestUA/1.0"},
		{"capture_screenshot", `{"format":"jpeg","quality":80}`, "captureScreenshot", 0, "format", "jpeg"},
	}
	for _, tc := range tests {
		t.Run(tc.tool, func(t *testing.T) {
			t.Parallel()
			stub := &stubDispatcher{}
			srv, _ := newTestServer(t, stub)

			resp := callTool(t, srv, tc.tool, tc.args)
			require.Nil(t, resp.Error)

			calls := stub.recorded()
			require.Len(t, calls, 1)
			assert.Equal(t, tc.wantAction, calls[0].action)
			assert.Equal(t, tc.wantTabID, calls[0].tabID)
			assert.Equal(t, tc.wantValue, calls[0].params[tc.wantParam])
		})
	}
}

func TestAccessibilityTimeoutOverrideForwarded(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{}
	srv, _ := newTestServer(t, stub)

	resp := callTool(t, srv, "get_accessibility_tree", `{"timeout":30000}`)
	require.Nil(t, resp.Error)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "getAccessibilityTree", calls[0].action)
	assert.Equal(t, "30s", calls[0].timeout.String())
}

func TestPageSizeClampsToMax(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return consoleReply(300), nil
	}}
	srv, _ := newTestServer(t, stub)

	page := decodePage(t, toolText(t, callTool(t, srv, "get_console_messages", `{"pageSize":1000}`)))
	assert.Equal(t, 200, page.Count, "page size clamps to the configured maximum")
	assert.Equal(t, 300, page.Total)
}

func TestOmittedTabIDResolvesToCachedTab(t *testing.T) {
	t.Parallel()
	payload, _ := json.Marshal(types.PageContent{
		URL:   "https://example.test",
		Title: "Example",
		Text:  "body text",
		HTML:  "<p>hi</p>",
	})
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return payload, nil
	}}
	srv, store := newTestServer(t, stub)
	store.ApplyContentUpdate(7, types.SourceContent, "https://example.test", json.RawMessage(`{"title":"Example"}`))

	resp := callTool(t, srv, "get_page_content", `{}`)
	require.Nil(t, resp.Error)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].tabID, "omitted tabId must resolve to the cached tab before dispatch")

	// The multiplexer seeds the snapshot under the id it dispatched with;
	// a later resources/read then serves from the cache.
	store.ApplyActionReply(calls[0].tabID, calls[0].action, payload)
	read := readResourceViaRPC(t, srv, "tab/7/content")
	require.Nil(t, read.Error)
	var result mcp.ReadResourceResult
	require.NoError(t, json.Unmarshal(read.Result, &result))
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "<p>hi</p>", result.Contents[0].Text)
}

func TestOmittedTabIDWithEmptyCachePassesZero(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{}
	srv, _ := newTestServer(t, stub)

	resp := callTool(t, srv, "get_cookies", `{}`)
	require.Nil(t, resp.Error)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Zero(t, calls[0].tabID, "empty cache leaves tab selection to the agent")
}

func TestConsoleDispatchUsesResolvedTab(t *testing.T) {
	t.Parallel()
	stub := &stubDispatcher{reply: func(string, int, map[string]any) (json.RawMessage, error) {
		return consoleReply(1), nil
	}}
	srv, store := newTestServer(t, stub)
	// Identity only: the snapshot exists but holds no console logs, so the
	// tool still round-trips, under the resolved id.
	store.ApplyContentUpdate(7, types.SourceContent, "https://example.test", json.RawMessage(`{"title":"Example"}`))

	resp := callTool(t, srv, "get_console_messages", `{}`)
	require.Nil(t, resp.Error)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].tabID)
}
