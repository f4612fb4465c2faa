package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/lintgate/internal/config"
	"github.com/lucasnoah/lintgate/internal/db"
	"github.com/lucasnoah/lintgate/internal/formatter"
	"github.com/lucasnoah/lintgate/internal/lint"
	"github.com/lucasnoah/lintgate/internal/store"
)

// Orchestrator composes one lint run: resolve settings, load the formatter,
// fan out to the engine, decide the outcome, and record the run.
type Orchestrator struct {
	engine     lint.Engine
	formatters *formatter.Registry
	history    *db.DB
	artifacts  *store.Store
	logger     *slog.Logger
	out        io.Writer
	lintOpts   []lint.Option
	now        func() time.Time
	newID      func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHistory records every run in database.
func WithHistory(database *db.DB) Option {
	return func(o *Orchestrator) { o.history = database }
}

// WithArtifacts writes every run's report, rendered output, and summary to s.
func WithArtifacts(s *store.Store) Option {
	return func(o *Orchestrator) { o.artifacts = s }
}

// WithLogger sets the logger for the run and the lint fan-out.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutput sets where rendered reports are written.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLintOptions passes options through to the lint fan-out.
func WithLintOptions(opts ...lint.Option) Option {
	return func(o *Orchestrator) { o.lintOpts = append(o.lintOpts, opts...) }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(engine lint.Engine, formatters *formatter.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:     engine,
		formatters: formatters,
		logger:     slog.Default(),
		out:        io.Discard,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunOpts holds the inputs of a single run.
type RunOpts struct {
	Files    []string
	Defaults config.Options
	Caller   config.Options
}

// RunResult describes a completed run.
type RunResult struct {
	RunID    string
	Settings *config.Settings
	Report   lint.Report
	Decision *lint.Decision
	Missing  []string
	Duration time.Duration
}

// Run executes one lint run. Configuration and formatter problems are
// reported before any file is linted. A failing outcome returns both the
// result and an error matching lint.ErrLintIssuesFound; any other error is
// fatal and comes with a nil result.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts) (*RunResult, error) {
	started := o.now()

	settings, err := config.Resolve(opts.Defaults, opts.Caller)
	if err != nil {
		return nil, err
	}

	f, err := o.formatters.Load(settings.Format)
	if err != nil {
		return nil, err
	}

	runID := o.newID()
	logger := o.logger.With(slog.String("run_id", runID))
	logger.Debug("starting lint run",
		slog.Int("files", len(opts.Files)),
		slog.String("format", settings.Format),
		slog.Any("plugins", settings.Plugins),
	)

	lintOpts := append([]lint.Option{lint.WithLogger(logger)}, o.lintOpts...)
	res, err := lint.NewOrchestrator(o.engine, lintOpts...).Run(ctx, lint.Request{
		Files:   opts.Files,
		Plugins: settings.Plugins,
		Options: settings.Engine(),
	})
	if err != nil {
		return nil, err
	}

	decider := &lint.Decider{
		Out:          o.out,
		Logger:       logger,
		Formatter:    f,
		ForceSuccess: settings.ForceSuccess,
	}
	dec, decideErr := decider.Decide(ctx, res.Report, res.Checked)
	if decideErr != nil && !errors.Is(decideErr, lint.ErrLintIssuesFound) {
		return nil, decideErr
	}

	result := &RunResult{
		RunID:    runID,
		Settings: settings,
		Report:   res.Report,
		Decision: dec,
		Missing:  res.Missing,
		Duration: o.now().Sub(started),
	}
	o.record(logger, result, started)
	return result, decideErr
}

// record persists the run. Failures are logged and never change the outcome.
func (o *Orchestrator) record(logger *slog.Logger, r *RunResult, started time.Time) {
	if o.history != nil {
		if err := o.history.LogRun(historyRun(r), historyFiles(r.Report)); err != nil {
			logger.Warn("failed to record run history", slog.Any("error", err))
		}
	}
	if o.artifacts != nil {
		sum := store.Summary{
			RunID:           r.RunID,
			Outcome:         r.Decision.Outcome.String(),
			Checked:         r.Decision.Checked,
			FilesWithIssues: r.Decision.FilesWithIssues,
			TotalErrors:     r.Decision.TotalErrors,
			Missing:         r.Missing,
			Format:          r.Settings.Format,
			RuleConfigPath:  r.Settings.RuleConfigPath,
			StartedAt:       started.UTC().Format(time.RFC3339),
			DurationMs:      r.Duration.Milliseconds(),
		}
		if err := o.artifacts.SaveRun(sum, r.Report, r.Decision.Rendered); err != nil {
			logger.Warn("failed to write run artifacts", slog.Any("error", err))
		} else {
			logger.Debug("wrote run artifacts", slog.String("dir", o.artifacts.RunDir(r.RunID)))
		}
	}
}

func historyRun(r *RunResult) db.Run {
	return db.Run{
		ID:              r.RunID,
		Outcome:         r.Decision.Outcome.String(),
		Checked:         r.Decision.Checked,
		FilesWithIssues: r.Decision.FilesWithIssues,
		TotalErrors:     r.Decision.TotalErrors,
		Missing:         len(r.Missing),
		Format:          r.Settings.Format,
		DurationMs:      r.Duration.Milliseconds(),
	}
}

func historyFiles(report lint.Report) []db.FileReport {
	files := make([]db.FileReport, 0, len(report))
	for _, fr := range report {
		findings, err := json.Marshal(fr.Messages)
		if err != nil {
			findings = []byte(fmt.Sprintf("%q", err.Error()))
		}
		files = append(files, db.FileReport{
			FilePath:   fr.FilePath,
			ErrorCount: fr.ErrorCount,
			Findings:   string(findings),
		})
	}
	return files
}
