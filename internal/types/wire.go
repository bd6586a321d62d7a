// wire.go — Agent wire protocol frames.
// The browser agent speaks JSON text frames over a single WebSocket. Inbound
// frames are discriminated by "type"; outbound action frames carry an action
// name and a server-generated correlation id ("requestId").
package types

import "encoding/json"

// Inbound frame types (agent → server).
const (
	MsgConnection    = "connection"
	MsgPing          = "ping"
	MsgPong          = "pong"
	MsgBrowserData   = "browser-data"
	MsgResponse      = "response"
	MsgError         = "error"
	MsgDevtools      = "devtools-message"
	MsgDebuggerEvent = "debugger-event"
)

// Snapshot update source tags carried by browser-data frames.
const (
	SourceContent  = "content"
	SourceDevtools = "devtools"
	SourceDebugger = "debugger"
)

// Closed set of action names the server may send to the agent.
const (
	ActionGetPageContent        = "getPageContent"
	ActionGetDOMSnapshot        = "getDOMSnapshot"
	ActionExecuteScript         = "executeScript"
	ActionGetConsoleMessages    = "getConsoleMessages"
	ActionGetNetworkData        = "getNetworkData"
	ActionCaptureScreenshot     = "captureScreenshot"
	ActionGetPerformanceMetrics = "getPerformanceMetrics"
	ActionGetAccessibilityTree  = "getAccessibilityTree"
	ActionGetAllTabs            = "getAllTabs"
	ActionAttachDebugger        = "attachDebugger"
	ActionDetachDebugger        = "detachDebugger"
	ActionGetCookies            = "getCookies"
	ActionGetStorageData        = "getStorageData"
	ActionEmulateDevice         = "emulateDevice"
	ActionSetUserAgent          = "setUserAgent"
)

// AgentMessage is one inbound frame from the browser agent. Only the fields
// relevant to the frame's type are populated; unknown types are dropped by
// the session reader.
type AgentMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Source    string          `json:"source,omitempty"`
	TabID     int             `json:"tabId,omitempty"`
	URL       string          `json:"url,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Version   string          `json:"version,omitempty"`
}

// ActionFrame is one outbound request to the agent. Params are flattened
// into the top-level JSON object next to action/requestId/tabId, matching
// what the extension expects on the wire.
type ActionFrame struct {
	Action    string
	RequestID string
	TabID     int
	Params    map[string]any
}

// MarshalJSON flattens Params into the frame object. Reserved keys in Params
// are skipped so a caller can never clobber the correlation id.
func (f ActionFrame) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(f.Params)+3)
	for k, v := range f.Params {
		switch k {
		case "action", "requestId", "tabId":
			continue
		}
		obj[k] = v
	}
	obj["action"] = f.Action
	obj["requestId"] = f.RequestID
	if f.TabID != 0 {
		obj["tabId"] = f.TabID
	}
	return json.Marshal(obj)
}

// PongFrame is the direct reply to an agent-initiated ping.
type PongFrame struct {
	Type              string `json:"type"`
	Timestamp         int64  `json:"timestamp"`
	OriginalTimestamp int64  `json:"originalTimestamp,omitempty"`
}

// PingFrame is the server-initiated liveness probe.
type PingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
