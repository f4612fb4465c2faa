package lint

import (
	"fmt"
	"sort"
	"strings"
)

// IssueRenderer is implemented by engines that can describe their own issues.
// The orchestrator uses it to fill in messages the engine left empty.
type IssueRenderer interface {
	RenderIssue(Issue) string
}

// RenderIssue produces a human-readable description for an issue that has no
// message: "<rule>: <code> (k=v, ...)". Data keys are sorted.
func RenderIssue(is Issue) string {
	var b strings.Builder
	b.WriteString(is.Rule)
	if is.Code != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(is.Code)
	}
	if len(is.Data) > 0 {
		keys := make([]string, 0, len(is.Data))
		for k := range is.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, is.Data[k]))
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	if b.Len() == 0 {
		return "unknown issue"
	}
	return b.String()
}
