package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Engine is the external markup-linting engine. Lint is called concurrently
// from many goroutines and must be safe for that.
type Engine interface {
	// Use registers plugins before any Lint call.
	Use(plugins []string) error
	// Lint checks one source text with the given engine options.
	Lint(ctx context.Context, source string, opts map[string]any) ([]Issue, error)
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string, stdin []byte) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string, stdin []byte) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(stdin)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// ExecEngineConfig configures an ExecEngine.
type ExecEngineConfig struct {
	Command string
	Dir     string
	Output  string // OutputHTMLLint or OutputESLint
}

// ExecEngine runs an external lint command per request. The request is sent
// as JSON on stdin: {"source": ..., "options": ..., "plugins": [...]}.
type ExecEngine struct {
	cmd CommandRunner
	cfg ExecEngineConfig

	mu      sync.RWMutex
	plugins []string
}

type execRequest struct {
	Source  string         `json:"source"`
	Options map[string]any `json:"options"`
	Plugins []string       `json:"plugins"`
}

// NewExecEngine creates an ExecEngine. An empty Output defaults to the native
// issue-array format.
func NewExecEngine(cmd CommandRunner, cfg ExecEngineConfig) *ExecEngine {
	if cfg.Output == "" {
		cfg.Output = OutputHTMLLint
	}
	return &ExecEngine{cmd: cmd, cfg: cfg, plugins: []string{}}
}

func (e *ExecEngine) Use(plugins []string) error {
	if e.cfg.Command == "" {
		return fmt.Errorf("no engine command configured")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plugins = append([]string{}, plugins...)
	return nil
}

func (e *ExecEngine) Lint(ctx context.Context, source string, opts map[string]any) ([]Issue, error) {
	e.mu.RLock()
	plugins := e.plugins
	e.mu.RUnlock()

	if opts == nil {
		opts = map[string]any{}
	}
	payload, err := json.Marshal(execRequest{Source: source, Options: opts, Plugins: plugins})
	if err != nil {
		return nil, fmt.Errorf("encode engine request: %w", err)
	}

	stdout, stderr, exitCode, err := e.cmd.Run(ctx, e.cfg.Dir, e.cfg.Command, payload)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("run engine %q: %w", e.cfg.Command, err)
	}

	issues, decodeErr := DecodeIssues(e.cfg.Output, []byte(stdout))
	if decodeErr != nil {
		// Linters commonly exit non-zero when they report issues, so the exit
		// code alone is not a failure; unreadable output is.
		if exitCode != 0 {
			return nil, fmt.Errorf("engine exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
		}
		return nil, decodeErr
	}
	if exitCode != 0 && len(issues) == 0 && strings.TrimSpace(stdout) == "" {
		return nil, fmt.Errorf("engine exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return issues, nil
}

// RenderIssue makes ExecEngine an IssueRenderer.
func (e *ExecEngine) RenderIssue(is Issue) string {
	return RenderIssue(is)
}
