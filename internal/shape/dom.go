// dom.go — DOM snapshot shaping: selector descent, structural pruning,
// style stripping, node-count truncation.
//
// The selector engine is deliberately tiny: "#id", ".class", and bare tag
// names, nothing else. Selector resolution here is a convenience for pulling
// a subtree out of a cached snapshot, not a DOM engine.
package shape

import (
	"errors"
	"strings"

	"github.com/browserlink/browserlink/internal/bound"
	"github.com/browserlink/browserlink/internal/types"
)

// ErrSelectorNotFound means no node matched the requested selector.
var ErrSelectorNotFound = errors.New("no element matches selector")

// DOMOptions controls DOM shaping. Defaults (scripts and styles pruned,
// computed styles stripped, 500-node cap) are applied by the tool layer.
type DOMOptions struct {
	Selector       string
	ExcludeScripts bool
	ExcludeStyles  bool
	IncludeStyles  bool // keep computedStyles fields
	MaxNodes       int
}

// DOMStats reports what shaping did to the tree.
type DOMStats struct {
	NodeCount int  `json:"nodeCount"`
	Truncated bool `json:"truncated"`
}

// ShapeDOM applies, in order: selector descent (first match wins), structural
// pruning, style stripping, and node-count truncation. The input tree is
// never mutated.
func ShapeDOM(root *types.DOMNode, opts DOMOptions) (*types.DOMNode, DOMStats, error) {
	if root == nil {
		return nil, DOMStats{}, nil
	}
	if opts.Selector != "" {
		match := findFirst(root, opts.Selector)
		if match == nil {
			return nil, DOMStats{}, ErrSelectorNotFound
		}
		root = match
	}
	root = pruneAndStrip(root, opts)
	if root == nil {
		return nil, DOMStats{}, nil
	}
	out, visited, truncated := bound.TruncateTree(root, opts.MaxNodes)
	return out, DOMStats{NodeCount: visited, Truncated: truncated}, nil
}

// findFirst walks depth-first and returns the first node matching the
// selector, or nil.
func findFirst(n *types.DOMNode, selector string) *types.DOMNode {
	if matchesSelector(n, selector) {
		return n
	}
	for _, child := range n.Children {
		if m := findFirst(child, selector); m != nil {
			return m
		}
	}
	return nil
}

func matchesSelector(n *types.DOMNode, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		return n.Attrs["id"] == selector[1:]
	case strings.HasPrefix(selector, "."):
		want := selector[1:]
		for _, c := range strings.Fields(n.Attrs["class"]) {
			if c == want {
				return true
			}
		}
		return false
	default:
		return strings.EqualFold(n.Tag, selector)
	}
}

// pruneAndStrip clones the tree, dropping script/style subtrees and
// computedStyles per opts. Returns nil if the root itself is pruned.
func pruneAndStrip(n *types.DOMNode, opts DOMOptions) *types.DOMNode {
	if prunedTag(n.Tag, opts) {
		return nil
	}
	clone := *n
	if !opts.IncludeStyles {
		clone.ComputedStyles = nil
	}
	clone.Children = nil
	for _, child := range n.Children {
		if kept := pruneAndStrip(child, opts); kept != nil {
			clone.Children = append(clone.Children, kept)
		}
	}
	return &clone
}

func prunedTag(tag string, opts DOMOptions) bool {
	switch strings.ToLower(tag) {
	case "script":
		return opts.ExcludeScripts
	case "style":
		return opts.ExcludeStyles
	}
	return false
}
