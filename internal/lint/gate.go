package lint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Outcome is the terminal result of a run.
type Outcome int

const (
	// AllClean means no findings in any checked file.
	AllClean Outcome = iota
	// IssuesForced means findings exist but the run was forced to succeed.
	IssuesForced
	// IssuesFailed means findings exist and the run fails.
	IssuesFailed
)

func (o Outcome) String() string {
	switch o {
	case AllClean:
		return "all_clean"
	case IssuesForced:
		return "issues_forced"
	case IssuesFailed:
		return "issues_failed"
	default:
		return "unknown"
	}
}

// Success reports whether the outcome maps to a successful process exit.
func (o Outcome) Success() bool {
	return o != IssuesFailed
}

// Renderer turns a report into display text. formatter.Formatter satisfies it.
type Renderer interface {
	Render(report Report) (string, error)
}

// ContextRenderer is implemented by renderers that do blocking work, such as
// running an external program, and can stop when ctx is cancelled.
type ContextRenderer interface {
	RenderContext(ctx context.Context, report Report) (string, error)
}

// Decider computes the outcome of a finalized report and emits the
// human-readable output.
type Decider struct {
	Out          io.Writer // rendered report
	Logger       *slog.Logger
	Formatter    Renderer
	ForceSuccess bool
}

// Decision is what Decide concluded, for callers that record the run.
type Decision struct {
	Outcome         Outcome
	Checked         int
	FilesWithIssues int
	TotalErrors     int
	Rendered        string
	Message         string
}

// Decide inspects the report. With no errors it logs a success line naming the
// checked-file count and never invokes the formatter. Otherwise it writes the
// rendered report, then either logs a warning (forced) or returns a
// *LintIssuesError (failed).
func (d *Decider) Decide(ctx context.Context, report Report, checked int) (*Decision, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dec := &Decision{
		Checked:         checked,
		FilesWithIssues: report.FilesWithIssues(),
		TotalErrors:     report.TotalErrors(),
	}

	if dec.TotalErrors == 0 {
		dec.Outcome = AllClean
		dec.Message = fmt.Sprintf("%d %s lint free.", checked, pluralize(checked, "file", "files"))
		logger.Info(dec.Message, slog.Int("checked", checked))
		return dec, nil
	}

	var (
		rendered string
		err      error
	)
	if cr, ok := d.Formatter.(ContextRenderer); ok {
		rendered, err = cr.RenderContext(ctx, report)
	} else {
		rendered, err = d.Formatter.Render(report)
	}
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	dec.Rendered = rendered
	if d.Out != nil && rendered != "" {
		text := rendered
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if _, err := io.WriteString(d.Out, text); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}

	issuesErr := &LintIssuesError{FilesWithIssues: dec.FilesWithIssues, TotalErrors: dec.TotalErrors}
	dec.Message = issuesErr.Error()

	if d.ForceSuccess {
		dec.Outcome = IssuesForced
		dec.Message += " Used force, continuing."
		logger.Warn(dec.Message,
			slog.Bool("force", true),
			slog.Int("files_with_issues", dec.FilesWithIssues),
			slog.Int("errors", dec.TotalErrors),
		)
		return dec, nil
	}

	dec.Outcome = IssuesFailed
	return dec, issuesErr
}
