// truncate.go — Deterministic truncation for strings and DOM trees.
// Everything returned to a client passes through here so responses stay
// within configured byte and node budgets.
package bound

import (
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/browserlink/browserlink/internal/types"
)

// truncation marker appended to cut strings; notes the pre-cut length so
// callers can tell how much was dropped.
const textMarkerFormat = "\n[truncated: %d chars total]"

var textMarkerPattern = regexp.MustCompile(`\n\[truncated: \d+ chars total\]$`)

// TruncateText returns the first limit bytes of s (backing off to a rune
// boundary) followed by a marker noting the original length. Applying it to
// its own output is a no-op, so repeated shaping passes are byte-stable.
// limit <= 0 means unlimited.
func TruncateText(s string, limit int) (out string, originalLen int, truncated bool) {
	if limit <= 0 || len(s) <= limit {
		return s, len(s), false
	}
	if textMarkerPattern.MatchString(s) {
		// Already carries a marker from a previous pass.
		return s, len(s), false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf(textMarkerFormat, len(s)), len(s), true
}

// TruncateTree walks root depth-first, cloning nodes until maxNodes real
// nodes have been visited. Where the walk stops among a node's children, a
// placeholder {truncated: true, remainingSiblings: k} is inserted. The input
// tree is never mutated. maxNodes <= 0 means unlimited.
func TruncateTree(root *types.DOMNode, maxNodes int) (out *types.DOMNode, visited int, truncated bool) {
	if root == nil {
		return nil, 0, false
	}
	w := treeWalker{budget: maxNodes}
	if maxNodes <= 0 {
		w.budget = -1
	}
	out = w.walk(root)
	return out, w.visited, w.truncated
}

type treeWalker struct {
	budget    int // remaining real nodes; -1 means unlimited
	visited   int
	truncated bool
}

func (w *treeWalker) walk(n *types.DOMNode) *types.DOMNode {
	w.visited++
	if w.budget > 0 {
		w.budget--
	}
	clone := *n
	clone.Children = nil
	for i, child := range n.Children {
		if w.budget == 0 {
			w.truncated = true
			clone.Children = append(clone.Children, &types.DOMNode{
				Truncated:         true,
				RemainingSiblings: len(n.Children) - i,
			})
			break
		}
		clone.Children = append(clone.Children, w.walk(child))
	}
	return &clone
}

// SizeOf returns the length in bytes of the JSON encoding of v. Used for
// diagnostics counters only, never as a correctness predicate. Returns 0
// when v cannot be encoded.
func SizeOf(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}
