package lint

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// mockRenderer records render calls.
type mockRenderer struct {
	calls  int
	output string
	err    error
}

func (m *mockRenderer) Render(report Report) (string, error) {
	m.calls++
	return m.output, m.err
}

func issueReport() Report {
	return Report{{
		FilePath:   "a.html",
		ErrorCount: 2,
		Messages:   []Finding{{RuleID: "x", Severity: 2}, {RuleID: "y", Severity: 2}},
	}}
}

func TestDecide_AllClean(t *testing.T) {
	var out, logs bytes.Buffer
	r := &mockRenderer{output: "should not render"}
	d := &Decider{Out: &out, Logger: quietLogger(&logs), Formatter: r}

	dec, err := d.Decide(context.Background(), Report{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Outcome != AllClean {
		t.Errorf("expected AllClean, got %s", dec.Outcome)
	}
	if r.calls != 0 {
		t.Errorf("expected no renderer calls, got %d", r.calls)
	}
	if out.Len() != 0 {
		t.Errorf("expected no report output, got %q", out.String())
	}
	if dec.Message != "3 files lint free." {
		t.Errorf("unexpected message %q", dec.Message)
	}
	if !strings.Contains(logs.String(), "3 files lint free.") {
		t.Errorf("expected success line in logs, got %q", logs.String())
	}
}

func TestDecide_AllCleanZeroChecked(t *testing.T) {
	d := &Decider{Logger: quietLogger(&bytes.Buffer{}), Formatter: &mockRenderer{}}
	dec, err := d.Decide(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Outcome != AllClean || dec.Checked != 0 {
		t.Errorf("expected AllClean with 0 checked, got %+v", dec)
	}
}

func TestDecide_IssuesForced(t *testing.T) {
	var out, logs bytes.Buffer
	r := &mockRenderer{output: "a.html\n  1:1 error x"}
	d := &Decider{Out: &out, Logger: quietLogger(&logs), Formatter: r, ForceSuccess: true}

	dec, err := d.Decide(context.Background(), issueReport(), 2)
	if err != nil {
		t.Fatalf("forced outcome must not return an error: %v", err)
	}
	if dec.Outcome != IssuesForced || !dec.Outcome.Success() {
		t.Errorf("expected successful IssuesForced, got %s", dec.Outcome)
	}
	if r.calls != 1 {
		t.Errorf("expected 1 renderer call, got %d", r.calls)
	}
	if !strings.Contains(out.String(), "1:1 error x") {
		t.Errorf("expected rendered report on output, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "Linting errors in 1 file.") || !strings.Contains(logs.String(), "force=true") {
		t.Errorf("expected forced warning in logs, got %q", logs.String())
	}
}

func TestDecide_IssuesFailed(t *testing.T) {
	var out bytes.Buffer
	r := &mockRenderer{output: "rendered"}
	d := &Decider{Out: &out, Logger: quietLogger(&bytes.Buffer{}), Formatter: r}

	dec, err := d.Decide(context.Background(), issueReport(), 2)
	if !errors.Is(err, ErrLintIssuesFound) {
		t.Fatalf("expected ErrLintIssuesFound, got %v", err)
	}
	var issuesErr *LintIssuesError
	if !errors.As(err, &issuesErr) || issuesErr.FilesWithIssues != 1 || issuesErr.TotalErrors != 2 {
		t.Errorf("unexpected issues error: %+v", issuesErr)
	}
	if err.Error() != "Linting errors in 1 file." {
		t.Errorf("unexpected error text %q", err.Error())
	}
	if dec.Outcome != IssuesFailed || dec.Outcome.Success() {
		t.Errorf("expected failing IssuesFailed, got %s", dec.Outcome)
	}
	if out.String() != "rendered\n" {
		t.Errorf("expected rendered output, got %q", out.String())
	}
}

func TestDecide_RenderError(t *testing.T) {
	r := &mockRenderer{err: errors.New("template exploded")}
	d := &Decider{Logger: quietLogger(&bytes.Buffer{}), Formatter: r}

	_, err := d.Decide(context.Background(), issueReport(), 1)
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected *RenderError, got %T: %v", err, err)
	}
	if errors.Is(err, ErrLintIssuesFound) {
		t.Error("render failure must not be reported as lint issues")
	}
}

type ctxKey struct{}

// ctxRenderer records the context it was rendered under.
type ctxRenderer struct {
	mockRenderer
	got context.Context
}

func (c *ctxRenderer) RenderContext(ctx context.Context, report Report) (string, error) {
	c.got = ctx
	return c.Render(report)
}

func TestDecide_PassesContextToRenderer(t *testing.T) {
	r := &ctxRenderer{mockRenderer: mockRenderer{output: "report"}}
	d := &Decider{Logger: quietLogger(&bytes.Buffer{}), Formatter: r, ForceSuccess: true}

	ctx := context.WithValue(context.Background(), ctxKey{}, "run")
	if _, err := d.Decide(ctx, issueReport(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("expected one render, got %d", r.calls)
	}
	if r.got == nil || r.got.Value(ctxKey{}) != "run" {
		t.Error("renderer did not receive the run context")
	}
}
