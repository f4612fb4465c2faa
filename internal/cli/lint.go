package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/lintgate/internal/config"
	"github.com/lucasnoah/lintgate/internal/formatter"
	"github.com/lucasnoah/lintgate/internal/lint"
	"github.com/lucasnoah/lintgate/internal/orchestrator"
	"github.com/lucasnoah/lintgate/internal/store"
	"github.com/lucasnoah/lintgate/internal/watch"
)

var lintCmd = &cobra.Command{
	Use:   "lint [files...]",
	Short: "Lint files and gate on the result",
	Long: `Lint every given file with the configured engine. Files that do not exist are
reported and skipped. With no arguments the task's files list is used.

Exit status is 0 when no errors were found (or --force was given), 1 when errors
were found, 2 on configuration, formatter, or engine failure, and 64 on usage errors.`,
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadTaskConfig(configPath)
	if err != nil {
		return err
	}
	task := cfg.Task

	files := args
	if len(files) == 0 {
		files = task.Files
	}
	if len(files) == 0 {
		return &UsageError{Err: ErrNoFiles}
	}
	cmd.SilenceUsage = true

	caller := callerOptions(cmd)
	defaults := config.Merge(config.DefaultOptions(), task.Lint)

	engineCmd := task.Engine.Command
	if cmd.Flags().Changed("engine") {
		engineCmd, _ = cmd.Flags().GetString("engine")
	}
	if engineCmd == "" {
		return fmt.Errorf("no lint engine configured (set task.engine.command or pass --engine)")
	}
	engine := lint.NewExecEngine(&lint.ExecRunner{}, lint.ExecEngineConfig{
		Command: engineCmd,
		Dir:     task.Engine.Dir,
		Output:  task.Engine.Output,
	})

	lintOpts, err := fanOutOptions(cmd, task)
	if err != nil {
		return err
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithOutput(cmd.OutOrStdout()),
		orchestrator.WithLintOptions(lintOpts...),
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !noHistory {
		history, cleanup, err := openHistory(task.History)
		if err != nil {
			logger.Warn("run history unavailable", slog.Any("error", err))
		} else if history != nil {
			defer cleanup()
			opts = append(opts, orchestrator.WithHistory(history))
		}
	}

	outputDir := task.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if outputDir != "" {
		opts = append(opts, orchestrator.WithArtifacts(store.NewStore(outputDir)))
	}

	registry := formatter.NewRegistry(formatter.WithColor(colorFor(cmd.OutOrStdout())))
	orch := orchestrator.NewOrchestrator(engine, registry, opts...)
	runOpts := orchestrator.RunOpts{Files: files, Defaults: defaults, Caller: caller}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	watchMode, _ := cmd.Flags().GetBool("watch")
	if !watchMode {
		_, err := orch.Run(ctx, runOpts)
		return err
	}
	return watchLint(ctx, logger, orch, runOpts, task)
}

// watchLint runs once, then again after every change to the input files until
// ctx is cancelled. Failed outcomes and fatal errors are logged, not returned.
func watchLint(ctx context.Context, logger *slog.Logger, orch *orchestrator.Orchestrator, opts orchestrator.RunOpts, task config.Task) error {
	runOnce := func(ctx context.Context) {
		res, err := orch.Run(ctx, opts)
		switch {
		case errors.Is(err, lint.ErrLintIssuesFound):
			logger.Error(err.Error(), slog.String("run_id", res.RunID))
		case err != nil:
			logger.Error("lint run failed", slog.Any("error", err))
		}
	}

	runOnce(ctx)

	w, err := watch.New(opts.Files, parseDuration(task.Watch.Debounce, watch.DefaultDebounce), logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	logger.Info("watching for changes", slog.Int("files", len(opts.Files)))
	return w.Run(ctx, runOnce)
}

// callerOptions collects the lint options given explicitly on the command line.
func callerOptions(cmd *cobra.Command) config.Options {
	var o config.Options
	flags := cmd.Flags()
	if flags.Changed("format") {
		o.Format, _ = flags.GetString("format")
	}
	if flags.Changed("plugin") {
		o.Plugins, _ = flags.GetStringArray("plugin")
	}
	if flags.Changed("rule-config") {
		v, _ := flags.GetString("rule-config")
		o.RuleConfig = config.ParseRuleConfigRef(v)
	}
	if flags.Changed("force") {
		force, _ := flags.GetBool("force")
		o.ForceSuccess = config.Bool(force)
	}
	return o
}

// fanOutOptions builds the concurrency and timeout options; flags win over the
// task file.
func fanOutOptions(cmd *cobra.Command, task config.Task) ([]lint.Option, error) {
	var opts []lint.Option

	concurrency := task.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if concurrency < 0 {
		return nil, &UsageError{Err: fmt.Errorf("--concurrency must not be negative")}
	}
	if concurrency > 0 {
		opts = append(opts, lint.WithConcurrency(concurrency))
	}

	timeout := parseDuration(task.RequestTimeout, 0)
	if cmd.Flags().Changed("request-timeout") {
		timeout, _ = cmd.Flags().GetDuration("request-timeout")
	}
	if timeout > 0 {
		opts = append(opts, lint.WithRequestTimeout(timeout))
	}
	return opts, nil
}

// parseDuration parses a duration string, falling back to a default.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func init() {
	f := lintCmd.Flags()
	f.String("format", "", fmt.Sprintf("formatter name or path (default %q)", formatter.DefaultFormatter))
	f.StringArray("plugin", nil, "engine plugin to register (repeatable)")
	f.String("rule-config", "", "load engine options from a rule config document (default "+config.DefaultRuleConfigPath+" when given without a value)")
	f.Lookup("rule-config").NoOptDefVal = "true"
	f.Bool("force", false, "report errors but exit successfully")
	f.String("config", "", "path to task config file")
	f.String("engine", "", "lint engine command (overrides task.engine.command)")
	f.Int("concurrency", 0, "maximum concurrent lint requests (0 = unbounded)")
	f.Duration("request-timeout", 0, "timeout for a single lint request (0 = none)")
	f.String("output-dir", "", "write run artifacts to DIR/<run-id>/")
	f.Bool("no-history", false, "do not record the run in history")
	f.Bool("watch", false, "re-run whenever an input file changes")
}
