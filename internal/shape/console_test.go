// console_test.go — console filter semantics and composition.
package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/browserlink/browserlink/internal/types"
)

func consoleFixture() []types.ConsoleMessage {
	return []types.ConsoleMessage{
		{Level: "error", Text: "uncaught TypeError: x is undefined", Timestamp: 1000},
		{Level: "warn", Text: "deprecated API call", Timestamp: 2000},
		{Level: "info", Text: "page loaded", Timestamp: 3000},
		{Level: "log", Text: "TypeError handled", Timestamp: 4000},
		{Level: "error", Text: "network failure", Timestamp: 5000},
	}
}

func TestFilterConsole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		filter    ConsoleFilter
		wantTexts []string
	}{
		{
			name:      "no filter keeps everything in order",
			filter:    ConsoleFilter{},
			wantTexts: []string{"uncaught TypeError: x is undefined", "deprecated API call", "page loaded", "TypeError handled", "network failure"},
		},
		{
			name:      "single level",
			filter:    ConsoleFilter{Levels: []string{"error"}},
			wantTexts: []string{"uncaught TypeError: x is undefined", "network failure"},
		},
		{
			name:      "level match is case-insensitive",
			filter:    ConsoleFilter{Levels: []string{"ERROR"}},
			wantTexts: []string{"uncaught TypeError: x is undefined", "network failure"},
		},
		{
			name:      "search term is case-insensitive substring",
			filter:    ConsoleFilter{SearchTerm: "typeerror"},
			wantTexts: []string{"uncaught TypeError: x is undefined", "TypeError handled"},
		},
		{
			name:      "since keeps messages at or after the mark",
			filter:    ConsoleFilter{Since: 3000},
			wantTexts: []string{"page loaded", "TypeError handled", "network failure"},
		},
		{
			name:      "all filters AND together",
			filter:    ConsoleFilter{Levels: []string{"error"}, SearchTerm: "network", Since: 2000},
			wantTexts: []string{"network failure"},
		},
		{
			name:      "no match yields empty non-nil slice",
			filter:    ConsoleFilter{SearchTerm: "no such text"},
			wantTexts: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FilterConsole(consoleFixture(), tc.filter)
			texts := make([]string, 0, len(got))
			for _, m := range got {
				texts = append(texts, m.Text)
			}
			assert.Equal(t, tc.wantTexts, texts)
		})
	}
}

// Applying two filters in sequence must equal one filter with both
// predicates; shaping passes have to be composable.
func TestFilterConsoleComposes(t *testing.T) {
	t.Parallel()
	f1 := ConsoleFilter{Levels: []string{"error", "log"}}
	f2 := ConsoleFilter{SearchTerm: "typeerror"}
	combined := ConsoleFilter{Levels: []string{"error", "log"}, SearchTerm: "typeerror"}

	sequential := FilterConsole(FilterConsole(consoleFixture(), f1), f2)
	single := FilterConsole(consoleFixture(), combined)
	assert.Equal(t, single, sequential)
}

func TestFilterConsoleDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	input := consoleFixture()
	_ = FilterConsole(input, ConsoleFilter{Levels: []string{"warn"}})
	assert.Equal(t, consoleFixture(), input)
}
