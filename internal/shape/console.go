// console.go — Console message filtering.
// Pure functions: no state, input order preserved, so any two filter passes
// compose the same as a single ANDed pass.
package shape

import (
	"strings"

	"github.com/browserlink/browserlink/internal/types"
)

// KnownLogLevels is the closed set of console levels a client may filter on.
var KnownLogLevels = map[string]bool{
	"error": true,
	"warn":  true,
	"info":  true,
	"log":   true,
	"debug": true,
}

// ConsoleFilter selects console messages. Zero-value fields are inactive;
// active fields AND together.
type ConsoleFilter struct {
	Levels     []string // empty = all levels
	SearchTerm string   // case-insensitive substring of Text
	Since      int64    // Unix ms; keep Timestamp >= Since
}

// FilterConsole returns the messages matching f, in input order.
func FilterConsole(msgs []types.ConsoleMessage, f ConsoleFilter) []types.ConsoleMessage {
	levels := make(map[string]bool, len(f.Levels))
	for _, l := range f.Levels {
		levels[strings.ToLower(l)] = true
	}
	term := strings.ToLower(f.SearchTerm)

	out := make([]types.ConsoleMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(levels) > 0 && !levels[strings.ToLower(m.Level)] {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(m.Text), term) {
			continue
		}
		if f.Since > 0 && m.Timestamp < f.Since {
			continue
		}
		out = append(out, m)
	}
	return out
}
