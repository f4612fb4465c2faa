package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/lucasnoah/lintgate/internal/lint"
)

// ExecTimeout bounds a single run of an executable formatter.
var ExecTimeout = 30 * time.Second

var templateExts = map[string]bool{".tmpl": true, ".tpl": true, ".gotmpl": true}

func loadPath(path string) (Formatter, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	if templateExts[strings.ToLower(filepath.Ext(path))] {
		tmpl, err := template.New(filepath.Base(path)).Funcs(templateFuncs).ParseFiles(path)
		if err != nil {
			return nil, fmt.Errorf("parse template: %w", err)
		}
		return &templateFormatter{tmpl: tmpl}, nil
	}

	if info.Mode().Perm()&0o111 == 0 {
		return nil, errors.New("not a template and not executable")
	}
	return &execFormatter{path: path}, nil
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
}

// templateData is the value a template formatter executes against.
type templateData struct {
	Files           lint.Report
	TotalErrors     int
	FilesWithIssues int
}

type templateFormatter struct {
	tmpl *template.Template
}

func (f *templateFormatter) Render(report lint.Report) (string, error) {
	var buf bytes.Buffer
	data := templateData{
		Files:           report,
		TotalErrors:     report.TotalErrors(),
		FilesWithIssues: report.FilesWithIssues(),
	}
	if err := f.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// execFormatter pipes the JSON report to an external program.
type execFormatter struct {
	path string
}

func (f *execFormatter) Render(report lint.Report) (string, error) {
	return f.RenderContext(context.Background(), report)
}

// RenderContext runs the program under ctx, bounded by ExecTimeout.
func (f *execFormatter) RenderContext(ctx context.Context, report lint.Report) (string, error) {
	if report == nil {
		report = lint.Report{}
	}
	input, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ExecTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.path)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", filepath.Base(f.path), err, msg)
		}
		return "", fmt.Errorf("run %s: %w", filepath.Base(f.path), err)
	}
	return stdout.String(), nil
}
