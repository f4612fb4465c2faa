// Package formatter resolves formatter identifiers to report renderers.
//
// A bare identifier ("stylish") names a built-in formatter registered under
// the formatters/ namespace. An identifier containing a path separator
// ("./ci/report.tmpl", `build\fmt.sh`) is a file resolved against the working
// directory: Go templates (*.tmpl, *.tpl, *.gotmpl) render in-process, any
// other executable file receives the report as JSON on stdin and its stdout
// becomes the rendered text.
package formatter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/lucasnoah/lintgate/internal/lint"
)

// DefaultFormatter is used when no identifier is given.
const DefaultFormatter = "pretty"

// Namespace prefixes the resolved path reported for built-in formatters.
const Namespace = "formatters"

// ErrUnknownFormatter is wrapped by a FormatterLoadError for an unregistered name.
var ErrUnknownFormatter = errors.New("no such formatter")

// Formatter renders a report for display.
type Formatter interface {
	Render(report lint.Report) (string, error)
}

// RenderFunc adapts a function to Formatter.
type RenderFunc func(report lint.Report) (string, error)

func (f RenderFunc) Render(report lint.Report) (string, error) { return f(report) }

// FormatterLoadError reports an identifier that could not be loaded. Path is
// the resolved location that was attempted.
type FormatterLoadError struct {
	ID   string
	Path string
	Err  error
}

func (e *FormatterLoadError) Error() string {
	return fmt.Sprintf("problem loading formatter %q (%s): %v", e.ID, e.Path, e.Err)
}

func (e *FormatterLoadError) Unwrap() error { return e.Err }

// Registry holds the named formatters.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Formatter
	color  bool
	getwd  func() (string, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithColor enables ANSI styling in the built-in formatters.
func WithColor(enabled bool) RegistryOption {
	return func(r *Registry) { r.color = enabled }
}

// NewRegistry returns a Registry with the built-in formatters registered.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: make(map[string]Formatter),
		getwd:  os.Getwd,
	}
	for _, opt := range opts {
		opt(r)
	}
	st := newStyles(r.color)
	r.Register("pretty", &prettyFormatter{st: st})
	r.Register("stylish", &stylishFormatter{st: st})
	r.Register("compact", RenderFunc(renderCompact))
	r.Register("unix", RenderFunc(renderUnix))
	r.Register("json", RenderFunc(renderJSON))
	r.Register("checkstyle", RenderFunc(renderCheckstyle))
	r.Register("table", RenderFunc(renderTable))
	return r
}

// Register adds or replaces a named formatter.
func (r *Registry) Register(name string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = f
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load resolves a formatter identifier. Backslashes are normalized to forward
// slashes first; an identifier that then contains a slash is loaded from the
// file system, anything else is looked up by name.
func (r *Registry) Load(id string) (Formatter, error) {
	if id == "" {
		id = DefaultFormatter
	}
	id = strings.ReplaceAll(id, `\`, "/")

	if strings.Contains(id, "/") {
		path := filepath.FromSlash(id)
		if !filepath.IsAbs(path) {
			cwd, err := r.getwd()
			if err != nil {
				return nil, &FormatterLoadError{ID: id, Path: path, Err: fmt.Errorf("get working directory: %w", err)}
			}
			path = filepath.Join(cwd, path)
		}
		f, err := loadPath(path)
		if err != nil {
			return nil, &FormatterLoadError{ID: id, Path: path, Err: err}
		}
		return f, nil
	}

	r.mu.RLock()
	f, ok := r.byName[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &FormatterLoadError{ID: id, Path: Namespace + "/" + id, Err: ErrUnknownFormatter}
	}
	return f, nil
}

// ColorEnabled reports whether output to f should be styled: f must be a
// terminal and NO_COLOR must be unset.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
