// Package store persists run artifacts under an output directory, one
// subdirectory per run ID.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lucasnoah/lintgate/internal/lint"
)

const (
	reportFile   = "report.json"
	renderedFile = "rendered.txt"
	summaryFile  = "summary.json"
)

// Summary describes one run. It is written next to the report as summary.json.
type Summary struct {
	RunID           string   `json:"run_id"`
	Outcome         string   `json:"outcome"`
	Checked         int      `json:"checked"`
	FilesWithIssues int      `json:"files_with_issues"`
	TotalErrors     int      `json:"total_errors"`
	Missing         []string `json:"missing,omitempty"`
	Format          string   `json:"format"`
	RuleConfigPath  string   `json:"rule_config_path,omitempty"`
	StartedAt       string   `json:"started_at"`
	DurationMs      int64    `json:"duration_ms"`
}

// Store manages run artifacts on disk.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// RunDir returns the directory holding a run's artifacts.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// SaveRun writes the report, the rendered text, and the summary for a run.
// rendered is skipped when empty.
func (s *Store) SaveRun(sum Summary, report lint.Report, rendered string) error {
	if sum.RunID == "" {
		return errors.New("save run: empty run ID")
	}
	dir := s.RunDir(sum.RunID)

	if report == nil {
		report = lint.Report{}
	}
	if err := WriteJSON(filepath.Join(dir, reportFile), report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if rendered != "" {
		if err := WriteAtomic(filepath.Join(dir, renderedFile), []byte(rendered)); err != nil {
			return fmt.Errorf("save rendered output: %w", err)
		}
	}
	if err := WriteJSON(filepath.Join(dir, summaryFile), sum); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// GetSummary reads a run's summary.
func (s *Store) GetSummary(runID string) (*Summary, error) {
	var sum Summary
	if err := ReadJSON(filepath.Join(s.RunDir(runID), summaryFile), &sum); err != nil {
		return nil, fmt.Errorf("read summary for run %s: %w", runID, err)
	}
	return &sum, nil
}

// GetReport reads a run's report.
func (s *Store) GetReport(runID string) (lint.Report, error) {
	var report lint.Report
	if err := ReadJSON(filepath.Join(s.RunDir(runID), reportFile), &report); err != nil {
		return nil, fmt.Errorf("read report for run %s: %w", runID, err)
	}
	return report, nil
}

// GetRendered returns a run's rendered output, or "" when none was saved.
func (s *Store) GetRendered(runID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), renderedFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read rendered output for run %s: %w", runID, err)
	}
	return string(data), nil
}

// List returns every run summary, newest first. Directories without a
// readable summary are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sum, err := s.GetSummary(e.Name())
		if err != nil {
			continue
		}
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt > out[j].StartedAt
	})
	return out, nil
}

// Delete removes a run's artifacts.
func (s *Store) Delete(runID string) error {
	dir := s.RunDir(runID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("run %s not found: %w", runID, err)
	}
	return os.RemoveAll(dir)
}
