package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFS is an in-memory FileSystem.
type fakeFS map[string]string

func (f fakeFS) Exists(path string) bool {
	_, ok := f[path]
	return ok
}

func (f fakeFS) ReadFile(path string) ([]byte, error) {
	src, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return []byte(src), nil
}

// fakeEngine answers by source text and records every call.
type fakeEngine struct {
	mu      sync.Mutex
	issues  map[string][]Issue
	errs    map[string]error
	delays  map[string]time.Duration
	block   map[string]bool
	plugins []string
	sources []string
	opts    []map[string]any
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		issues: map[string][]Issue{},
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
		block:  map[string]bool{},
	}
}

func (e *fakeEngine) Use(plugins []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plugins = plugins
	return nil
}

func (e *fakeEngine) Lint(ctx context.Context, source string, opts map[string]any) ([]Issue, error) {
	e.mu.Lock()
	e.sources = append(e.sources, source)
	e.opts = append(e.opts, opts)
	delay := e.delays[source]
	blocked := e.block[source]
	err := e.errs[source]
	issues := e.issues[source]
	e.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sources)
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func scenarioFS() fakeFS {
	return fakeFS{
		"a.html": "<a-src>",
		"c.html": "<c-src>",
	}
}

func TestOrchestrator_Run_MissingFileScenario(t *testing.T) {
	engine := newFakeEngine()
	engine.issues["<a-src>"] = []Issue{
		{Rule: "attr-bans", Line: 1, Column: 1, Msg: "banned"},
		{Rule: "indent-style", Line: 2, Column: 1},
	}
	var logs bytes.Buffer
	o := NewOrchestrator(engine, WithFileSystem(scenarioFS()), WithLogger(quietLogger(&logs)))

	res, err := o.Run(context.Background(), Request{Files: []string{"a.html", "b.html", "c.html"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Checked != 2 {
		t.Errorf("expected checked=2, got %d", res.Checked)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "b.html" {
		t.Errorf("expected missing=[b.html], got %v", res.Missing)
	}
	if len(res.Report) != 1 {
		t.Fatalf("expected 1 file report, got %d", len(res.Report))
	}
	fr := res.Report[0]
	if fr.FilePath != "a.html" || fr.ErrorCount != 2 || len(fr.Messages) != 2 {
		t.Errorf("unexpected file report: %+v", fr)
	}
	if res.Report.TotalErrors() != 2 {
		t.Errorf("expected 2 total errors, got %d", res.Report.TotalErrors())
	}
	if fr.Messages[1].Message != "indent-style" {
		t.Errorf("expected rendered fallback message, got %q", fr.Messages[1].Message)
	}
	if !strings.Contains(logs.String(), `Source file \"b.html\" not found.`) {
		t.Errorf("expected missing-file warning in logs, got:\n%s", logs.String())
	}
	if engine.callCount() != 2 {
		t.Errorf("expected 2 engine calls, got %d", engine.callCount())
	}
}

func TestOrchestrator_Run_NoExistingFiles(t *testing.T) {
	engine := newFakeEngine()
	var states []State
	o := NewOrchestrator(engine,
		WithFileSystem(fakeFS{}),
		WithLogger(quietLogger(&bytes.Buffer{})),
		WithStateHook(func(s State, pending int) { states = append(states, s) }),
	)

	res, err := o.Run(context.Background(), Request{Files: []string{"x.html", "y.html"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Checked != 0 || len(res.Report) != 0 {
		t.Errorf("expected empty run, got checked=%d report=%v", res.Checked, res.Report)
	}
	if engine.callCount() != 0 {
		t.Errorf("expected no engine calls, got %d", engine.callCount())
	}
	if engine.plugins != nil {
		t.Error("expected plugins not to be registered when nothing is dispatched")
	}
	if len(states) != 2 || states[0] != StateDispatching || states[1] != StateComplete {
		t.Errorf("expected [dispatching complete], got %v", states)
	}
}

func TestOrchestrator_Run_ExpectedCountFixedBeforeDispatch(t *testing.T) {
	engine := newFakeEngine()
	fs := fakeFS{"a.html": "a", "c.html": "c", "d.html": "d"}

	var dispatchPending = -1
	var callsAtDispatch = -1
	var lastPending []int
	var mu sync.Mutex
	o := NewOrchestrator(engine,
		WithFileSystem(fs),
		WithLogger(quietLogger(&bytes.Buffer{})),
		WithStateHook(func(s State, pending int) {
			mu.Lock()
			defer mu.Unlock()
			switch s {
			case StateDispatching:
				dispatchPending = pending
				callsAtDispatch = engine.callCount()
			case StateAwaiting:
				lastPending = append(lastPending, pending)
			}
		}),
	)

	_, err := o.Run(context.Background(), Request{Files: []string{"a.html", "b.html", "c.html", "d.html", "e.html"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dispatchPending != 3 {
		t.Errorf("expected pending fixed at 3 (existing files), got %d", dispatchPending)
	}
	if callsAtDispatch != 0 {
		t.Errorf("expected count to be fixed before any dispatch, %d calls already made", callsAtDispatch)
	}
	want := []int{3, 2, 1, 0}
	if fmt.Sprint(lastPending) != fmt.Sprint(want) {
		t.Errorf("expected pending sequence %v, got %v", want, lastPending)
	}
}

func TestOrchestrator_Run_CompletionOrder(t *testing.T) {
	engine := newFakeEngine()
	engine.issues["slow"] = []Issue{{Rule: "r", Msg: "m"}}
	engine.issues["fast"] = []Issue{{Rule: "r", Msg: "m"}}
	engine.delays["slow"] = 80 * time.Millisecond
	fs := fakeFS{"slow.html": "slow", "fast.html": "fast"}
	o := NewOrchestrator(engine, WithFileSystem(fs), WithLogger(quietLogger(&bytes.Buffer{})))

	res, err := o.Run(context.Background(), Request{Files: []string{"slow.html", "fast.html"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Report) != 2 {
		t.Fatalf("expected 2 file reports, got %d", len(res.Report))
	}
	if res.Report[0].FilePath != "fast.html" {
		t.Errorf("expected completion order (fast first), got %s first", res.Report[0].FilePath)
	}
}

func TestOrchestrator_Run_AllClean(t *testing.T) {
	engine := newFakeEngine()
	fs := fakeFS{"a.html": "a", "b.html": "b", "c.html": "c"}
	o := NewOrchestrator(engine, WithFileSystem(fs), WithLogger(quietLogger(&bytes.Buffer{})))

	res, err := o.Run(context.Background(), Request{Files: []string{"a.html", "b.html", "c.html"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Report) != 0 || res.Checked != 3 {
		t.Errorf("expected empty report over 3 files, got %v / %d", res.Report, res.Checked)
	}
}

func TestOrchestrator_Run_EngineErrorAborts(t *testing.T) {
	engine := newFakeEngine()
	engine.errs["bad"] = errors.New("engine crashed")
	engine.block["stuck"] = true
	fs := fakeFS{"bad.html": "bad", "stuck.html": "stuck"}
	o := NewOrchestrator(engine, WithFileSystem(fs), WithLogger(quietLogger(&bytes.Buffer{})))

	done := make(chan struct{})
	var res *Result
	var err error
	go func() {
		res, err = o.Run(context.Background(), Request{Files: []string{"stuck.html", "bad.html"}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not abort after engine failure")
	}

	if res != nil {
		t.Errorf("expected no partial result, got %+v", res)
	}
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected *EngineError, got %T: %v", err, err)
	}
	if engErr.FilePath != "bad.html" {
		t.Errorf("expected failing file bad.html, got %q", engErr.FilePath)
	}
}

func TestOrchestrator_Run_RequestTimeout(t *testing.T) {
	engine := newFakeEngine()
	engine.block["hang"] = true
	fs := fakeFS{"hang.html": "hang"}
	o := NewOrchestrator(engine,
		WithFileSystem(fs),
		WithLogger(quietLogger(&bytes.Buffer{})),
		WithRequestTimeout(20*time.Millisecond),
	)

	_, err := o.Run(context.Background(), Request{Files: []string{"hang.html"}})
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("expected ErrRequestTimeout, got %v", err)
	}
}

func TestOrchestrator_Run_ContextCancelled(t *testing.T) {
	engine := newFakeEngine()
	engine.block["hang"] = true
	fs := fakeFS{"hang.html": "hang"}
	o := NewOrchestrator(engine, WithFileSystem(fs), WithLogger(quietLogger(&bytes.Buffer{})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.Run(ctx, Request{Files: []string{"hang.html"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
	if errors.Is(err, ErrRequestTimeout) {
		t.Error("caller cancellation must not be reported as a per-request timeout")
	}
}

func TestOrchestrator_Run_ConcurrencyLimit(t *testing.T) {
	engine := &countingEngine{delay: 10 * time.Millisecond}
	fs := fakeFS{}
	var files []string
	for i := 0; i < 8; i++ {
		p := fmt.Sprintf("f%d.html", i)
		fs[p] = p
		files = append(files, p)
	}
	o := NewOrchestrator(engine, WithFileSystem(fs), WithLogger(quietLogger(&bytes.Buffer{})), WithConcurrency(2))

	res, err := o.Run(context.Background(), Request{Files: files})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Checked != 8 {
		t.Errorf("expected 8 checked, got %d", res.Checked)
	}
	if engine.maxInFlight > 2 {
		t.Errorf("expected at most 2 in-flight requests, saw %d", engine.maxInFlight)
	}
}

func TestOrchestrator_Run_PassesPluginsAndOptions(t *testing.T) {
	engine := newFakeEngine()
	fs := fakeFS{"a.html": "a"}
	o := NewOrchestrator(engine, WithFileSystem(fs), WithLogger(quietLogger(&bytes.Buffer{})))

	opts := map[string]any{"attr-bans": []any{"style"}}
	_, err := o.Run(context.Background(), Request{
		Files:   []string{"a.html"},
		Plugins: []string{"plugin-x"},
		Options: opts,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engine.plugins) != 1 || engine.plugins[0] != "plugin-x" {
		t.Errorf("expected plugins to reach the engine, got %v", engine.plugins)
	}
	if len(engine.opts) != 1 || engine.opts[0]["attr-bans"] == nil {
		t.Errorf("expected options to reach the engine, got %v", engine.opts)
	}
}

// countingEngine tracks how many Lint calls overlap.
type countingEngine struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func (e *countingEngine) Use([]string) error { return nil }

func (e *countingEngine) Lint(ctx context.Context, source string, opts map[string]any) ([]Issue, error) {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	e.mu.Unlock()

	time.Sleep(e.delay)

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()
	return nil, nil
}
