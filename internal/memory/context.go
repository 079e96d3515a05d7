package memory

import (
	"fmt"
	"strings"
	"time"
)

// InteractionEntry is one exchange with an account, kept in short-term memory.
type InteractionEntry struct {
	Summary   string    `json:"summary"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// formatInteractions renders entries oldest first for inclusion in a prompt.
func formatInteractions(handle string, entries []InteractionEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Previous interactions with @%s:\n", handle)
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s] %s\n", e.Timestamp.UTC().Format(time.RFC3339), e.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMemories(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- (%s) %s", r.Memory.MemoryType, r.Memory.Content))
	}
	return strings.Join(lines, "\n")
}
