package lint

import (
	"sort"
)

// SeverityError is the only severity this system reports. The engine has no
// warning tier, so every finding is an error.
const SeverityError = 2

// Issue is a single raw result from the lint engine.
type Issue struct {
	Rule   string         `json:"rule"`
	Line   int            `json:"line"`
	Column int            `json:"column"`
	Msg    string         `json:"msg,omitempty"`
	Code   string         `json:"code,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Finding is a normalized rule violation for one file.
type Finding struct {
	RuleID   string `json:"ruleId"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Severity int    `json:"severity"`
}

// FileReport holds the findings for one file. A FileReport is only ever
// created for a non-empty finding list.
type FileReport struct {
	FilePath     string    `json:"filePath"`
	ErrorCount   int       `json:"errorCount"`
	WarningCount int       `json:"warningCount"` // always 0, kept for formatter compatibility
	Messages     []Finding `json:"messages"`
}

// Report is the aggregated result of one invocation.
//
// Entries appear in the order their lint requests completed, not in input
// order. Completion order is nondeterministic; use Sorted when a stable order
// is required.
type Report []FileReport

// TotalErrors sums ErrorCount across all file reports.
func (r Report) TotalErrors() int {
	total := 0
	for _, f := range r {
		total += f.ErrorCount
	}
	return total
}

// FilesWithIssues returns the number of files that have at least one finding.
func (r Report) FilesWithIssues() int {
	return len(r)
}

// Sorted returns a copy of the report ordered by file path.
func (r Report) Sorted() Report {
	out := make(Report, len(r))
	copy(out, r)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FilePath < out[j].FilePath
	})
	return out
}

// toFindings normalizes engine issues, falling back to a rendered description
// when the engine supplies no message.
func toFindings(issues []Issue, render func(Issue) string) []Finding {
	if len(issues) == 0 {
		return nil
	}
	findings := make([]Finding, 0, len(issues))
	for _, is := range issues {
		msg := is.Msg
		if msg == "" {
			msg = render(is)
		}
		findings = append(findings, Finding{
			RuleID:   is.Rule,
			Line:     is.Line,
			Column:   is.Column,
			Message:  msg,
			Severity: SeverityError,
		})
	}
	return findings
}
