// store.go — Per-tab snapshot cache.
// One writer stream (the agent session reader, plus the multiplexer's
// post-reply seed) updates the mapping; any number of readers take immutable
// snapshot records. Updates clone the current record, set fields whole, and
// install the new pointer, so a reader sees either the prior record or the
// new one, never a mixture.
package cache

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/browserlink/browserlink/internal/types"
)

// DebuggerEventCap bounds the per-tab debugger event ring.
const DebuggerEventCap = 100

// Resource kinds enumerable per cached tab.
const (
	KindContent = "content"
	KindDOM     = "dom"
	KindConsole = "console"
)

// Available describes which resource kinds a cached tab can serve.
type Available struct {
	TabID int
	Kinds []string
}

// Store owns the tab-id → snapshot mapping and the per-tab debugger rings.
type Store struct {
	mu       sync.RWMutex
	tabs     map[int]*types.TabSnapshot
	debugger map[int]*Ring[json.RawMessage]
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewStore creates an empty snapshot cache.
func NewStore(logger logrus.FieldLogger) *Store {
	return &Store{
		tabs:     make(map[int]*types.TabSnapshot),
		debugger: make(map[int]*Ring[json.RawMessage]),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the current snapshot for tabID, if any. The returned record is
// immutable; callers must not modify it.
func (s *Store) Get(tabID int) (*types.TabSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.tabs[tabID]
	return snap, ok
}

// ResolveTabID returns tabID unchanged when non-zero, otherwise the most
// recently updated cached tab. ok is false when nothing is cached.
func (s *Store) ResolveTabID(tabID int) (int, bool) {
	if tabID != 0 {
		return tabID, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *types.TabSnapshot
	for _, snap := range s.tabs {
		if best == nil || snap.LastUpdated.After(best.LastUpdated) {
			best = snap
		}
	}
	if best == nil {
		return 0, false
	}
	return best.TabID, true
}

// ApplyContentUpdate merges a browser-data payload into the tab's snapshot.
// url is the frame-level URL and fills identity when the payload carries
// none. source=debugger payloads go to the event ring instead; unknown
// sources are treated as content so new extension tags degrade gracefully.
func (s *Store) ApplyContentUpdate(tabID int, source, url string, payload json.RawMessage) {
	if source == types.SourceDebugger {
		s.AppendDebuggerEvent(tabID, payload)
		return
	}
	var data types.BrowserDataPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		s.logger.WithError(err).WithField("tabId", tabID).Warn("dropping malformed browser-data payload")
		return
	}
	if data.URL == "" {
		data.URL = url
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.tabs[tabID].Clone()
	next.TabID = tabID
	next.LastUpdated = s.now()
	if data.URL != "" {
		next.URL = data.URL
	}
	if data.Title != "" {
		next.Title = data.Title
	}
	if data.PageContent != nil {
		next.PageContent = data.PageContent
	}
	if data.DOMSnapshot != nil {
		next.DOMSnapshot = data.DOMSnapshot
	}
	if data.ConsoleLogs != nil {
		next.ConsoleLogs = data.ConsoleLogs
	}
	if data.NetworkRequests != nil {
		next.NetworkActivity = data.NetworkRequests
	}
	if data.PerformanceMetrics != nil {
		next.PerformanceMetrics = data.PerformanceMetrics
	}
	if data.AccessibilityTree != nil {
		next.AccessibilityTree = data.AccessibilityTree
	}
	s.tabs[tabID] = next
}

// ApplyActionReply seeds the snapshot from a successful action round-trip so
// later resource reads can skip the agent.
func (s *Store) ApplyActionReply(tabID int, action string, payload json.RawMessage) {
	switch action {
	case types.ActionGetAllTabs:
		s.applyTabList(payload)
		return
	case types.ActionGetPageContent, types.ActionGetDOMSnapshot, types.ActionGetConsoleMessages,
		types.ActionGetNetworkData, types.ActionGetPerformanceMetrics, types.ActionGetAccessibilityTree,
		types.ActionCaptureScreenshot, types.ActionAttachDebugger, types.ActionDetachDebugger:
	default:
		return
	}
	if tabID == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.tabs[tabID].Clone()
	next.TabID = tabID
	next.LastUpdated = s.now()
	switch action {
	case types.ActionGetPageContent:
		var pc types.PageContent
		if json.Unmarshal(payload, &pc) != nil {
			return
		}
		next.PageContent = &pc
		if pc.URL != "" {
			next.URL = pc.URL
		}
		if pc.Title != "" {
			next.Title = pc.Title
		}
	case types.ActionGetDOMSnapshot:
		var root types.DOMNode
		if json.Unmarshal(payload, &root) != nil {
			return
		}
		next.DOMSnapshot = &root
	case types.ActionGetConsoleMessages:
		var msgs []types.ConsoleMessage
		if json.Unmarshal(payload, &msgs) != nil {
			return
		}
		next.ConsoleLogs = msgs
	case types.ActionGetNetworkData:
		var reqs []types.NetworkRequest
		if json.Unmarshal(payload, &reqs) != nil {
			return
		}
		next.NetworkActivity = reqs
	case types.ActionGetPerformanceMetrics:
		next.PerformanceMetrics = payload
	case types.ActionGetAccessibilityTree:
		next.AccessibilityTree = payload
	case types.ActionCaptureScreenshot:
		var shot types.ScreenshotData
		if json.Unmarshal(payload, &shot) != nil {
			return
		}
		next.Screenshot = &shot
	case types.ActionAttachDebugger:
		next.DebuggerAttached = true
	case types.ActionDetachDebugger:
		next.DebuggerAttached = false
	}
	s.tabs[tabID] = next
}

// applyTabList refreshes identity fields for every tab the agent reported.
func (s *Store) applyTabList(payload json.RawMessage) {
	var tabs []types.TabInfo
	if json.Unmarshal(payload, &tabs) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tab := range tabs {
		next := s.tabs[tab.ID].Clone()
		next.TabID = tab.ID
		next.URL = tab.URL
		next.Title = tab.Title
		next.LastUpdated = s.now()
		s.tabs[tab.ID] = next
	}
}

// AppendDebuggerEvent records one devtools/debugger event for a tab, keeping
// the most recent DebuggerEventCap entries.
func (s *Store) AppendDebuggerEvent(tabID int, event json.RawMessage) {
	s.mu.Lock()
	ring, ok := s.debugger[tabID]
	if !ok {
		ring = NewRing[json.RawMessage](DebuggerEventCap)
		s.debugger[tabID] = ring
	}
	s.mu.Unlock()
	ring.Append(event)
}

// DebuggerEvents returns the buffered debugger events for a tab,
// oldest-first.
func (s *Store) DebuggerEvents(tabID int) []json.RawMessage {
	s.mu.RLock()
	ring, ok := s.debugger[tabID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return ring.Items()
}

// ListAvailable enumerates cached tabs and the resource kinds each can
// serve, in ascending tab-id order.
func (s *Store) ListAvailable() []Available {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Available, 0, len(s.tabs))
	for id, snap := range s.tabs {
		var kinds []string
		if snap.PageContent != nil {
			kinds = append(kinds, KindContent)
		}
		if snap.DOMSnapshot != nil {
			kinds = append(kinds, KindDOM)
		}
		if snap.ConsoleLogs != nil {
			kinds = append(kinds, KindConsole)
		}
		if len(kinds) == 0 {
			continue
		}
		out = append(out, Available{TabID: id, Kinds: kinds})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

// Remove drops a tab's snapshot and debugger ring.
func (s *Store) Remove(tabID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, tabID)
	delete(s.debugger, tabID)
}

// TabCount reports how many tabs have cached snapshots.
func (s *Store) TabCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tabs)
}
