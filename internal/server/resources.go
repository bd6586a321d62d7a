// resources.go — resource URIs over the snapshot cache.
//
// Resources address captured tab state as tab/{id}/{content|dom|console}.
// An optional scheme prefix (e.g. browserlink://) is stripped before
// validation; only the suffix is authoritative.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/browserlink/browserlink/internal/bound"
	"github.com/browserlink/browserlink/internal/cache"
	"github.com/browserlink/browserlink/internal/mcp"
)

var (
	ErrInvalidURI = errors.New("resource URI must be tab/{id}/{content|dom|console}")
	ErrNotFound   = errors.New("no cached data for the requested tab resource")
)

// consoleResourceCap bounds how many messages a console resource returns.
const consoleResourceCap = 100

// resourceScheme prefixes the URIs this server advertises.
const resourceScheme = "browserlink://"

// ParseResourceURI validates and splits a resource URI. Any scheme prefix
// is ignored.
func ParseResourceURI(uri string) (tabID int, kind string, err error) {
	suffix := uri
	if i := strings.Index(suffix, "://"); i >= 0 {
		suffix = suffix[i+3:]
	}
	parts := strings.Split(suffix, "/")
	if len(parts) != 3 || parts[0] != "tab" {
		return 0, "", ErrInvalidURI
	}
	tabID, err = strconv.Atoi(parts[1])
	if err != nil || tabID < 0 {
		return 0, "", ErrInvalidURI
	}
	switch parts[2] {
	case cache.KindContent, cache.KindDOM, cache.KindConsole:
		return tabID, parts[2], nil
	default:
		return 0, "", ErrInvalidURI
	}
}

// listResources enumerates the snapshot cache: one resource per tab per
// populated kind.
func (s *Server) listResources() []mcp.Resource {
	available := s.cache.ListAvailable()
	out := make([]mcp.Resource, 0, len(available))
	for _, tab := range available {
		for _, kind := range tab.Kinds {
			out = append(out, mcp.Resource{
				URI:      fmt.Sprintf("%stab/%d/%s", resourceScheme, tab.TabID, kind),
				Name:     fmt.Sprintf("Tab %d %s", tab.TabID, kind),
				MimeType: resourceMimeType(kind),
			})
		}
	}
	return out
}

func resourceMimeType(kind string) string {
	if kind == cache.KindContent {
		return "text/html"
	}
	return "application/json"
}

func (s *Server) readResource(uri string) (json.RawMessage, error) {
	tabID, kind, err := ParseResourceURI(uri)
	if err != nil {
		return nil, err
	}
	snap, ok := s.cache.Get(tabID)
	if !ok {
		return nil, ErrNotFound
	}

	var text string
	switch kind {
	case cache.KindContent:
		if snap.PageContent == nil || snap.PageContent.HTML == "" {
			return nil, ErrNotFound
		}
		text, _, _ = bound.TruncateText(snap.PageContent.HTML, s.cfg.MaxHTML)
	case cache.KindDOM:
		if snap.DOMSnapshot == nil {
			return nil, ErrNotFound
		}
		tree, _, _ := bound.TruncateTree(snap.DOMSnapshot, s.cfg.MaxDOMNodes)
		encoded, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("encoding DOM snapshot: %w", err)
		}
		text = string(encoded)
	case cache.KindConsole:
		if snap.ConsoleLogs == nil {
			return nil, ErrNotFound
		}
		msgs := snap.ConsoleLogs
		limited := len(msgs) > consoleResourceCap
		if limited {
			msgs = msgs[len(msgs)-consoleResourceCap:]
		}
		encoded, err := json.Marshal(map[string]any{
			"messages": msgs,
			"count":    len(msgs),
			"limited":  limited,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding console messages: %w", err)
		}
		text = string(encoded)
	}

	return mcp.SafeMarshal(mcp.ReadResourceResult{
		Contents: []mcp.ResourceContent{{
			URI:      uri,
			MimeType: resourceMimeType(kind),
			Text:     text,
		}},
	}), nil
}
