package lint

import (
	"errors"
	"fmt"
)

// ErrLintIssuesFound is matched by a LintIssuesError. It signals a failed
// outcome rather than a broken run.
var ErrLintIssuesFound = errors.New("lint issues found")

// ErrReportFinalized is returned when a result arrives after the report was
// finalized.
var ErrReportFinalized = errors.New("report already finalized")

// ErrRequestTimeout is wrapped by an EngineError when a single lint request
// exceeds its per-request timeout.
var ErrRequestTimeout = errors.New("lint request timed out")

// EngineError reports a dispatched lint request that failed instead of
// resolving with findings. It is fatal to the run.
type EngineError struct {
	FilePath string
	Err      error
}

func (e *EngineError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("lint engine failed: %v", e.Err)
	}
	return fmt.Sprintf("lint engine failed on %s: %v", e.FilePath, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// LintIssuesError is returned by the decider when errors are present and the
// run is not forced to succeed.
type LintIssuesError struct {
	FilesWithIssues int
	TotalErrors     int
}

func (e *LintIssuesError) Error() string {
	return fmt.Sprintf("Linting errors in %d %s.", e.FilesWithIssues, pluralize(e.FilesWithIssues, "file", "files"))
}

func (e *LintIssuesError) Is(target error) bool { return target == ErrLintIssuesFound }

// RenderError wraps a formatter failure at decision time.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render report: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
