package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/lintgate/internal/lint"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

// Process exit codes.
const (
	ExitOK     = 0
	ExitIssues = 1
	ExitFatal  = 2
	ExitUsage  = 64
)

// UsageError marks an error caused by how the command was invoked.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ErrNoFiles is returned when lint has nothing to check.
var ErrNoFiles = errors.New("no files given (pass FILE arguments or set task.files)")

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var usageErr *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, lint.ErrLintIssuesFound):
		return ExitIssues
	case errors.As(err, &usageErr):
		return ExitUsage
	default:
		return ExitFatal
	}
}

var rootCmd = &cobra.Command{
	Use:   "lintgate",
	Short: "Run an HTML lint engine over files and gate on the result",
	Long: `lintgate fans a lint engine out over a set of files, aggregates the findings,
renders them through a pluggable formatter, and exits non-zero when errors are found.

Run history is stored in ~/.lintgate/history.db (SQLite) unless configured otherwise.
Task configuration is read from ./lintgate.yaml or ~/.lintgate/config.yaml.`,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which lint runs observe for
// cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newLogger builds the command's logger from --loglevel and --logformat. Logs
// go to the command's error stream so that rendered reports own stdout.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("loglevel")
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, &UsageError{Err: fmt.Errorf("invalid log level: %s", levelName)}
	}

	opts := &slog.HandlerOptions{Level: level}
	format, _ := cmd.Flags().GetString("logformat")
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		return nil, &UsageError{Err: fmt.Errorf("invalid log format: %s", format)}
	}
	return slog.New(handler), nil
}

func init() {
	rootCmd.PersistentFlags().String("loglevel", "info", "set the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("logformat", "text", "set the log format (text, json)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(formattersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(dbCmd)
}
