// browser.go — Browser data records extracted by the agent.
// These mirror what the extension serializes: console entries, network
// requests, DOM trees, tab descriptors. Payloads the server never inspects
// stay as raw JSON so new extension versions don't break the bridge.
package types

import "encoding/json"

// ConsoleMessage is one console log entry. Timestamp is Unix milliseconds.
type ConsoleMessage struct {
	Level      string `json:"level"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
	Source     string `json:"source,omitempty"`
	URL        string `json:"url,omitempty"`
	Line       int    `json:"line,omitempty"`
	StackTrace string `json:"stackTrace,omitempty"`
}

// NetworkRequest is one captured network round-trip. Status 0 means the
// request never completed (blocked, aborted, or still in flight).
type NetworkRequest struct {
	RequestID    string  `json:"requestId,omitempty"`
	Method       string  `json:"method"`
	URL          string  `json:"url"`
	Status       int     `json:"status"`
	ResourceType string  `json:"resourceType,omitempty"`
	RequestBody  string  `json:"requestBody,omitempty"`
	ResponseBody string  `json:"responseBody,omitempty"`
	Timestamp    int64   `json:"timestamp,omitempty"`
	DurationMs   float64 `json:"durationMs,omitempty"`
	FromCache    bool    `json:"fromCache,omitempty"`
}

// Failed reports whether the request belongs in the failed bucket:
// HTTP error status or no status at all.
func (r NetworkRequest) Failed() bool {
	return r.Status >= 400 || r.Status == 0
}

// DOMNode is one node of a serialized DOM tree. Truncation placeholder
// nodes carry only Truncated and RemainingSiblings.
type DOMNode struct {
	Tag               string            `json:"tag,omitempty"`
	Attrs             map[string]string `json:"attrs,omitempty"`
	Text              string            `json:"text,omitempty"`
	ComputedStyles    map[string]string `json:"computedStyles,omitempty"`
	Children          []*DOMNode        `json:"children,omitempty"`
	Truncated         bool              `json:"truncated,omitempty"`
	RemainingSiblings int               `json:"remainingSiblings,omitempty"`
}

// PageContent is the extracted text/HTML of one page.
type PageContent struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Text     string            `json:"text,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScreenshotData is a captured screenshot, base64-encoded by the agent.
type ScreenshotData struct {
	Data   string `json:"data"`
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TabInfo describes one open browser tab.
type TabInfo struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// BrowserDataPayload is the recognized shape of a browser-data frame's data
// field. Every field is optional; present fields overwrite the cached
// snapshot whole.
type BrowserDataPayload struct {
	URL                string           `json:"url,omitempty"`
	Title              string           `json:"title,omitempty"`
	PageContent        *PageContent     `json:"pageContent,omitempty"`
	DOMSnapshot        *DOMNode         `json:"domSnapshot,omitempty"`
	ConsoleLogs        []ConsoleMessage `json:"consoleLogs,omitempty"`
	NetworkRequests    []NetworkRequest `json:"networkRequests,omitempty"`
	PerformanceMetrics json.RawMessage  `json:"performanceMetrics,omitempty"`
	AccessibilityTree  json.RawMessage  `json:"accessibilityTree,omitempty"`
}
