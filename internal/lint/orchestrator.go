package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileSystem is the file access the orchestrator needs.
type FileSystem interface {
	// Exists reports whether path names a readable regular file.
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem implements FileSystem on the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// State is a phase of an orchestrator run.
type State int

const (
	StateIdle State = iota
	StateDispatching
	StateAwaiting
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateAwaiting:
		return "awaiting"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// StateHook observes state transitions together with the pending count.
type StateHook func(state State, pending int)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFileSystem replaces the local file system.
func WithFileSystem(fs FileSystem) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithLogger sets the logger used for warnings and debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithConcurrency caps the number of in-flight lint requests. Zero or less
// means unbounded.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithRequestTimeout bounds each individual lint request. Zero disables the
// timeout, in which case a request that never resolves stalls the run until
// the caller's context is cancelled.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.requestTimeout = d }
}

// WithStateHook registers a StateHook.
func WithStateHook(h StateHook) Option {
	return func(o *Orchestrator) { o.hook = h }
}

// Orchestrator dispatches one lint request per existing input file and
// aggregates the results as they complete.
type Orchestrator struct {
	engine         Engine
	fs             FileSystem
	logger         *slog.Logger
	concurrency    int
	requestTimeout time.Duration
	hook           StateHook
	render         func(Issue) string
}

// NewOrchestrator creates an Orchestrator for the given engine.
func NewOrchestrator(engine Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: engine,
		fs:     OSFileSystem{},
		logger: slog.Default(),
		render: RenderIssue,
	}
	if r, ok := engine.(IssueRenderer); ok {
		o.render = r.RenderIssue
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Request is the input to a single run.
type Request struct {
	Files   []string
	Plugins []string
	Options map[string]any
}

// Result is the output of a completed run.
type Result struct {
	Report  Report
	Checked int      // size of the dispatched set
	Missing []string // inputs skipped because they do not exist
}

type fileResult struct {
	path     string
	findings []Finding
}

// Run lints every existing file in req.Files concurrently. It returns once
// every dispatched request has resolved, or with an *EngineError as soon as
// any request fails; in that case the remaining requests are cancelled and no
// partial report is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, span := startRunSpan(ctx, len(req.Files))
	defer span.End()

	existing, missing := o.partition(req.Files)
	recordMissing(ctx, len(missing))

	// The expected count is fixed here, before any dispatch, and never
	// recomputed.
	expected := len(existing)
	o.transition(StateDispatching, expected)

	agg := NewAggregator()
	if expected == 0 {
		o.transition(StateComplete, 0)
		return &Result{Report: agg.Finalize(), Checked: 0, Missing: missing}, nil
	}

	if err := o.engine.Use(req.Plugins); err != nil {
		return nil, &EngineError{Err: fmt.Errorf("register plugins: %w", err)}
	}

	results := make(chan fileResult, expected)
	g, gctx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for _, path := range existing {
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			findings, err := o.lintOne(gctx, path, req.Options)
			if err != nil {
				return &EngineError{FilePath: path, Err: err}
			}
			results <- fileResult{path: path, findings: findings}
			return nil
		})
	}

	pending := expected
	o.transition(StateAwaiting, pending)

	for pending > 0 {
		select {
		case r := <-results:
			if err := agg.Add(r.path, r.findings); err != nil {
				return nil, err
			}
			pending--
			o.transition(StateAwaiting, pending)
		case <-gctx.Done():
			err := g.Wait()
			if err == nil {
				err = ctx.Err()
			}
			span.RecordError(err)
			return nil, err
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.transition(StateComplete, 0)
	return &Result{Report: agg.Finalize(), Checked: expected, Missing: missing}, nil
}

// partition splits files into those present on disk and those missing. Each
// missing file is logged as a warning and excluded from the dispatched set.
func (o *Orchestrator) partition(files []string) (existing, missing []string) {
	for _, path := range files {
		if o.fs.Exists(path) {
			existing = append(existing, path)
			continue
		}
		o.logger.Warn(fmt.Sprintf("Source file %q not found.", path), slog.String("file", path))
		missing = append(missing, path)
	}
	return existing, missing
}

// lintOne reads the source lazily and runs the engine against it.
func (o *Orchestrator) lintOne(ctx context.Context, path string, opts map[string]any) ([]Finding, error) {
	parent := ctx
	ctx, span := startRequestSpan(ctx, path)
	defer span.End()
	start := time.Now()

	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	src, err := o.fs.ReadFile(path)
	if err != nil {
		recordRequest(ctx, span, time.Since(start), 0, true)
		return nil, fmt.Errorf("read source: %w", err)
	}

	issues, err := o.engine.Lint(ctx, string(src), maps.Clone(opts))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			err = fmt.Errorf("%w after %s", ErrRequestTimeout, o.requestTimeout)
		}
		span.RecordError(err)
		recordRequest(ctx, span, time.Since(start), 0, true)
		return nil, err
	}

	findings := toFindings(issues, o.render)
	recordRequest(ctx, span, time.Since(start), len(findings), false)
	o.logger.Debug("Lint request resolved",
		slog.String("file", path),
		slog.Int("findings", len(findings)),
		slog.Duration("duration", time.Since(start)),
	)
	return findings, nil
}

func (o *Orchestrator) transition(s State, pending int) {
	o.logger.Debug("Orchestrator state", slog.String("state", s.String()), slog.Int("pending", pending))
	if o.hook != nil {
		o.hook(s, pending)
	}
}
