// snapshot.go — Immutable per-tab snapshot record.
package types

import (
	"encoding/json"
	"time"
)

// TabSnapshot is the last-seen browser data for one tab. Records are
// immutable after construction: the cache installs a whole new record on
// every update, so readers never lock and never observe a partial write.
type TabSnapshot struct {
	TabID              int
	URL                string
	Title              string
	PageContent        *PageContent
	DOMSnapshot        *DOMNode
	ConsoleLogs        []ConsoleMessage
	NetworkActivity    []NetworkRequest
	PerformanceMetrics json.RawMessage
	AccessibilityTree  json.RawMessage
	Screenshot         *ScreenshotData
	DebuggerAttached   bool
	LastUpdated        time.Time
}

// Clone returns a shallow copy for building the next immutable revision.
// Slice and pointer fields stay shared until a writer replaces them whole.
func (s *TabSnapshot) Clone() *TabSnapshot {
	if s == nil {
		return &TabSnapshot{}
	}
	copied := *s
	return &copied
}
