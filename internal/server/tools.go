// tools.go — client-facing tool schemas and handlers.
//
// Each tool maps to one agent action from the closed set. Console and
// network tools serve from the snapshot cache when it already holds data for
// the tab; everything else is a live round-trip. Shaping (filters, body
// caps, tree truncation, pagination) happens server-side after the reply.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/browserlink/browserlink/internal/bound"
	"github.com/browserlink/browserlink/internal/mcp"
	"github.com/browserlink/browserlink/internal/pagination"
	"github.com/browserlink/browserlink/internal/shape"
	"github.com/browserlink/browserlink/internal/types"
)

// intList accepts a JSON scalar or array, so "status": 404 and
// "status": [404, 500] both parse.
type intList []int

func (l *intList) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*l = intList{single}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// stringList is the string analogue of intList.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = stringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// pageResult is the envelope every paginated tool returns.
type pageResult struct {
	Data       any     `json:"data"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	HasMore    bool    `json:"hasMore"`
	NextCursor *string `json:"nextCursor"`
	Filters    any     `json:"filters,omitempty"`
	Message    string  `json:"message,omitempty"`
}

func pageEnvelope[T any](page pagination.Page[T], filters any, message string) pageResult {
	var next *string
	if page.NextCursor != "" {
		cursor := page.NextCursor
		next = &cursor
	}
	return pageResult{
		Data:       page.Items,
		Count:      len(page.Items),
		Total:      page.Total,
		HasMore:    page.HasMore,
		NextCursor: next,
		Filters:    filters,
		Message:    message,
	}
}

const expiredCursorMessage = "cursor expired or unknown; restart pagination without a cursor"

func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	switch name {
	case "get_page_content":
		return s.toolPageContent(ctx, args)
	case "get_dom_snapshot":
		return s.toolDOMSnapshot(ctx, args)
	case "get_console_messages":
		return s.toolConsoleMessages(ctx, args)
	case "get_network_requests":
		return s.toolNetworkRequests(ctx, args)
	case "capture_screenshot":
		return s.toolScreenshot(ctx, args)
	case "execute_javascript":
		return s.toolExecuteJavascript(ctx, args)
	case "get_performance_metrics":
		return s.toolPlainDispatch(ctx, types.ActionGetPerformanceMetrics, args, nil)
	case "get_accessibility_tree":
		return s.toolAccessibilityTree(ctx, args)
	case "get_browser_tabs":
		return s.toolBrowserTabs(ctx, args)
	case "attach_debugger":
		return s.toolDebugger(ctx, types.ActionAttachDebugger, args)
	case "detach_debugger":
		return s.toolDebugger(ctx, types.ActionDetachDebugger, args)
	case "get_cookies":
		return s.toolPlainDispatch(ctx, types.ActionGetCookies, args, nil)
	case "get_storage_data":
		return s.toolStorageData(ctx, args)
	case "emulate_device":
		return s.toolEmulateDevice(ctx, args)
	case "set_user_agent":
		return s.toolSetUserAgent(ctx, args)
	default:
		return nil, badParams("unknown tool: %s", name)
	}
}

func decodeArgs(args json.RawMessage, dst any) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return badParams("malformed tool arguments: %v", err)
	}
	return nil
}

// resolveTab substitutes the most recently updated cached tab when the
// caller omitted tabId. The resolved id flows into Dispatch, so a
// successful reply seeds the snapshot for that tab instead of being thrown
// away against tab 0. With an empty cache the zero passes through and the
// agent targets its active tab.
func (s *Server) resolveTab(tabID int) int {
	if resolved, ok := s.cache.ResolveTabID(tabID); ok {
		return resolved
	}
	return tabID
}

func (s *Server) toolPageContent(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID           int   `json:"tabId"`
		IncludeMetadata *bool `json:"includeMetadata"`
		IncludeHTML     bool  `json:"includeHtml"`
		MaxTextLength   int   `json:"maxTextLength"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	includeMetadata := in.IncludeMetadata == nil || *in.IncludeMetadata
	maxText := in.MaxTextLength
	if maxText <= 0 {
		maxText = s.cfg.MaxText
	}

	data, err := s.dispatch.Dispatch(ctx, types.ActionGetPageContent, s.resolveTab(in.TabID), nil, 0)
	if err != nil {
		return nil, err
	}
	var pc types.PageContent
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("agent returned malformed page content: %w", err)
	}

	text, textLen, textTruncated := bound.TruncateText(pc.Text, maxText)
	out := map[string]any{
		"url":           pc.URL,
		"title":         pc.Title,
		"text":          text,
		"textLength":    textLen,
		"textTruncated": textTruncated,
	}
	if includeMetadata && pc.Metadata != nil {
		out["metadata"] = pc.Metadata
	}
	if in.IncludeHTML {
		html, htmlLen, htmlTruncated := bound.TruncateText(pc.HTML, s.cfg.MaxHTML)
		out["html"] = html
		out["htmlLength"] = htmlLen
		out["htmlTruncated"] = htmlTruncated
	}
	return mcp.JSONResult(out), nil
}

func (s *Server) toolDOMSnapshot(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID          int    `json:"tabId"`
		Selector       string `json:"selector"`
		MaxDepth       int    `json:"maxDepth"`
		MaxNodes       int    `json:"maxNodes"`
		IncludeStyles  bool   `json:"includeStyles"`
		ExcludeScripts *bool  `json:"excludeScripts"`
		ExcludeStyles  *bool  `json:"excludeStyles"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if maxDepth > 15 {
		maxDepth = 15
	}
	maxNodes := in.MaxNodes
	if maxNodes <= 0 {
		maxNodes = s.cfg.MaxDOMNodes
	}
	if maxNodes > s.cfg.MaxDOMNodesHard {
		maxNodes = s.cfg.MaxDOMNodesHard
	}

	data, err := s.dispatch.Dispatch(ctx, types.ActionGetDOMSnapshot, s.resolveTab(in.TabID),
		map[string]any{"maxDepth": maxDepth}, 0)
	if err != nil {
		return nil, err
	}
	var root types.DOMNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("agent returned malformed DOM snapshot: %w", err)
	}

	shaped, stats, err := shape.ShapeDOM(&root, shape.DOMOptions{
		Selector:       in.Selector,
		ExcludeScripts: in.ExcludeScripts == nil || *in.ExcludeScripts,
		ExcludeStyles:  in.ExcludeStyles == nil || *in.ExcludeStyles,
		IncludeStyles:  in.IncludeStyles,
		MaxNodes:       maxNodes,
	})
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"dom":       shaped,
		"nodeCount": stats.NodeCount,
		"truncated": stats.Truncated,
	}
	if in.Selector != "" {
		out["selector"] = in.Selector
	}
	return mcp.JSONResult(out), nil
}

func (s *Server) toolConsoleMessages(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID      int      `json:"tabId"`
		LogLevels  []string `json:"logLevels"`
		SearchTerm string   `json:"searchTerm"`
		Since      int64    `json:"since"`
		PageSize   int      `json:"pageSize"`
		Cursor     string   `json:"cursor"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	pageSize, err := s.pageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	if in.Cursor != "" {
		page, err := s.consoleCursors.Next(in.Cursor, pageSize)
		if err != nil {
			return mcp.JSONResult(pageEnvelope(pagination.Page[types.ConsoleMessage]{
				Items: []types.ConsoleMessage{},
			}, nil, expiredCursorMessage)), nil
		}
		return mcp.JSONResult(pageEnvelope(page, nil, "")), nil
	}

	levels := in.LogLevels
	if levels == nil {
		levels = []string{"error", "warn"}
	}
	for _, level := range levels {
		if !shape.KnownLogLevels[level] {
			return nil, badParams("unknown log level: %q", level)
		}
	}

	msgs, err := s.consoleMessages(ctx, in.TabID)
	if err != nil {
		return nil, err
	}
	filter := shape.ConsoleFilter{Levels: levels, SearchTerm: in.SearchTerm, Since: in.Since}
	filtered := shape.FilterConsole(msgs, filter)
	page := s.consoleCursors.Open(filtered, pageSize)
	filters := map[string]any{"logLevels": levels}
	if in.SearchTerm != "" {
		filters["searchTerm"] = in.SearchTerm
	}
	if in.Since != 0 {
		filters["since"] = in.Since
	}
	return mcp.JSONResult(pageEnvelope(page, filters, "")), nil
}

// consoleMessages serves from the snapshot cache when a prior round-trip or
// browser-data push already populated it, and asks the agent otherwise.
func (s *Server) consoleMessages(ctx context.Context, tabID int) ([]types.ConsoleMessage, error) {
	tabID = s.resolveTab(tabID)
	if snap, ok := s.cache.Get(tabID); ok && snap.ConsoleLogs != nil {
		return snap.ConsoleLogs, nil
	}
	data, err := s.dispatch.Dispatch(ctx, types.ActionGetConsoleMessages, tabID, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeConsolePayload(data)
}

func decodeConsolePayload(data json.RawMessage) ([]types.ConsoleMessage, error) {
	var msgs []types.ConsoleMessage
	if json.Unmarshal(data, &msgs) == nil {
		return msgs, nil
	}
	var wrapped struct {
		Messages []types.ConsoleMessage `json:"messages"`
	}
	if json.Unmarshal(data, &wrapped) == nil {
		return wrapped.Messages, nil
	}
	return nil, fmt.Errorf("agent returned malformed console payload")
}

func (s *Server) toolNetworkRequests(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID                 int        `json:"tabId"`
		Method                string     `json:"method"`
		Status                intList    `json:"status"`
		ResourceType          stringList `json:"resourceType"`
		Domain                string     `json:"domain"`
		FailedOnly            bool       `json:"failedOnly"`
		PageSize              int        `json:"pageSize"`
		Cursor                string     `json:"cursor"`
		IncludeResponseBodies bool       `json:"includeResponseBodies"`
		IncludeRequestBodies  bool       `json:"includeRequestBodies"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	pageSize, err := s.pageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	if in.Cursor != "" {
		page, err := s.networkCursors.Next(in.Cursor, pageSize)
		if err != nil {
			return mcp.JSONResult(pageEnvelope(pagination.Page[shape.ShapedRequest]{
				Items: []shape.ShapedRequest{},
			}, nil, expiredCursorMessage)), nil
		}
		return mcp.JSONResult(pageEnvelope(page, nil, "")), nil
	}

	reqs, err := s.networkRequests(ctx, in.TabID)
	if err != nil {
		return nil, err
	}
	filter := shape.NetworkFilter{
		Method:        in.Method,
		Statuses:      in.Status,
		ResourceTypes: in.ResourceType,
		Domain:        in.Domain,
		FailedOnly:    in.FailedOnly,
	}
	filtered := shape.FilterNetwork(reqs, filter)
	// Failed-first ordering applies to the unfiltered view and to the
	// explicit failed-only view; structural filters keep arrival order.
	if !filter.HasStructuralFilter() || filter.FailedOnly {
		shape.SortFailedFirst(filtered)
	}
	shaped := shape.ShapeBodies(filtered, shape.BodyOptions{
		IncludeRequestBodies:  in.IncludeRequestBodies,
		IncludeResponseBodies: in.IncludeResponseBodies,
		MaxRequestBody:        s.cfg.MaxRequestBody,
		MaxResponseBody:       s.cfg.MaxResponseBody,
	})
	page := s.networkCursors.Open(shaped, pageSize)

	filters := map[string]any{"failedOnly": in.FailedOnly}
	if in.Method != "" {
		filters["method"] = in.Method
	}
	if len(in.Status) > 0 {
		filters["status"] = []int(in.Status)
	}
	if len(in.ResourceType) > 0 {
		filters["resourceType"] = []string(in.ResourceType)
	}
	if in.Domain != "" {
		filters["domain"] = in.Domain
	}
	return mcp.JSONResult(pageEnvelope(page, filters, "")), nil
}

func (s *Server) networkRequests(ctx context.Context, tabID int) ([]types.NetworkRequest, error) {
	tabID = s.resolveTab(tabID)
	if snap, ok := s.cache.Get(tabID); ok && snap.NetworkActivity != nil {
		return snap.NetworkActivity, nil
	}
	data, err := s.dispatch.Dispatch(ctx, types.ActionGetNetworkData, tabID, nil, 0)
	if err != nil {
		return nil, err
	}
	var reqs []types.NetworkRequest
	if json.Unmarshal(data, &reqs) == nil {
		return reqs, nil
	}
	var wrapped struct {
		Requests []types.NetworkRequest `json:"requests"`
	}
	if json.Unmarshal(data, &wrapped) == nil {
		return wrapped.Requests, nil
	}
	return nil, fmt.Errorf("agent returned malformed network payload")
}

func (s *Server) toolScreenshot(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID   int    `json:"tabId"`
		Format  string `json:"format"`
		Quality *int   `json:"quality"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	params := map[string]any{}
	if in.Format != "" {
		if in.Format != "png" && in.Format != "jpeg" {
			return nil, badParams("format must be png or jpeg, got %q", in.Format)
		}
		params["format"] = in.Format
	}
	if in.Quality != nil {
		if *in.Quality < 0 || *in.Quality > 100 {
			return nil, badParams("quality must be in [0,100], got %d", *in.Quality)
		}
		params["quality"] = *in.Quality
	}
	return s.toolPlainDispatch(ctx, types.ActionCaptureScreenshot, args, params)
}

func (s *Server) toolExecuteJavascript(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID int    `json:"tabId"`
		Code  string `json:"code"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Code == "" {
		return nil, badParams("execute_javascript requires code")
	}
	return s.toolPlainDispatch(ctx, types.ActionExecuteScript, args, map[string]any{"code": in.Code})
}

func (s *Server) toolAccessibilityTree(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID   int `json:"tabId"`
		Timeout int `json:"timeout"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	var override time.Duration
	if in.Timeout != 0 {
		if in.Timeout < 5000 || in.Timeout > 120000 {
			return nil, badParams("timeout must be in [5000,120000] ms, got %d", in.Timeout)
		}
		override = time.Duration(in.Timeout) * time.Millisecond
	}
	data, err := s.dispatch.Dispatch(ctx, types.ActionGetAccessibilityTree, s.resolveTab(in.TabID), nil, override)
	if err != nil {
		return nil, err
	}
	return rawToolResult(data), nil
}

func (s *Server) toolBrowserTabs(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	data, err := s.dispatch.Dispatch(ctx, types.ActionGetAllTabs, 0, nil, 0)
	if err != nil {
		return nil, err
	}
	return rawToolResult(data), nil
}

func (s *Server) toolDebugger(ctx context.Context, action string, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID *int `json:"tabId"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.TabID == nil {
		return nil, badParams("%s requires tabId", action)
	}
	data, err := s.dispatch.Dispatch(ctx, action, *in.TabID, nil, 0)
	if err != nil {
		return nil, err
	}
	return rawToolResult(data), nil
}

func (s *Server) toolStorageData(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID       int    `json:"tabId"`
		StorageType string `json:"storageType"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	params := map[string]any{}
	if in.StorageType != "" {
		if in.StorageType != "local" && in.StorageType != "session" {
			return nil, badParams("storageType must be local or session, got %q", in.StorageType)
		}
		params["storageType"] = in.StorageType
	}
	return s.toolPlainDispatch(ctx, types.ActionGetStorageData, args, params)
}

func (s *Server) toolEmulateDevice(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID  int    `json:"tabId"`
		Device string `json:"device"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Device == "" {
		return nil, badParams("emulate_device requires device")
	}
	return s.toolPlainDispatch(ctx, types.ActionEmulateDevice, args, map[string]any{"device": in.Device})
}

func (s *Server) toolSetUserAgent(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	in := struct {
		TabID     int    `json:"tabId"`
		UserAgent string `json:"userAgent"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.UserAgent == "" {
		return nil, badParams("set_user_agent requires userAgent")
	}
	return s.toolPlainDispatch(ctx, types.ActionSetUserAgent, args, map[string]any{"userAgent": in.UserAgent})
}

// toolPlainDispatch covers tools with no server-side shaping: forward the
// action with the given params and return the agent's reply verbatim.
func (s *Server) toolPlainDispatch(ctx context.Context, action string, args json.RawMessage, params map[string]any) (json.RawMessage, error) {
	in := struct {
		TabID int `json:"tabId"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	data, err := s.dispatch.Dispatch(ctx, action, s.resolveTab(in.TabID), params, 0)
	if err != nil {
		return nil, err
	}
	return rawToolResult(data), nil
}

// rawToolResult wraps an agent reply as a text content block, re-indenting
// when the payload is valid JSON.
func rawToolResult(data json.RawMessage) json.RawMessage {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err == nil {
		return mcp.JSONResult(parsed)
	}
	return mcp.TextResult(string(data))
}

func (s *Server) pageSize(requested int) (int, error) {
	if requested == 0 {
		return s.cfg.DefaultPageSize, nil
	}
	if requested < 0 {
		return 0, badParams("pageSize must be positive, got %d", requested)
	}
	if requested > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize, nil
	}
	return requested, nil
}
