package db

import (
	"database/sql"
	"fmt"
)

// Run represents a row in the runs table.
type Run struct {
	ID              string
	Outcome         string
	Checked         int
	FilesWithIssues int
	TotalErrors     int
	Missing         int
	Format          string
	DurationMs      int64
	CreatedAt       string
}

// FileReport represents a row in the file_reports table. Findings holds the
// JSON-encoded findings for the file.
type FileReport struct {
	ID         int64
	RunID      string
	FilePath   string
	ErrorCount int
	Findings   string
}

// LogRun records a run and its per-file reports in one transaction. An empty
// CreatedAt is filled with the current time.
func (d *DB) LogRun(r Run, files []FileReport) error {
	if r.CreatedAt == "" {
		r.CreatedAt = now()
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(d.rebind(
		`INSERT INTO runs (id, outcome, checked, files_with_issues, total_errors, missing, format, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Outcome, r.Checked, r.FilesWithIssues, r.TotalErrors, r.Missing, r.Format, r.DurationMs, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt := d.rebind(`INSERT INTO file_reports (run_id, file_path, error_count, findings) VALUES (?, ?, ?, ?)`)
	for _, f := range files {
		if _, err := tx.Exec(stmt, r.ID, f.FilePath, f.ErrorCount, f.Findings); err != nil {
			return fmt.Errorf("insert file report %s: %w", f.FilePath, err)
		}
	}
	return tx.Commit()
}

// GetRun returns the run with the given ID, or nil if there is none.
func (d *DB) GetRun(id string) (*Run, error) {
	row := d.conn.QueryRow(d.rebind(
		`SELECT id, outcome, checked, files_with_issues, total_errors, missing, format, duration_ms, created_at
		 FROM runs WHERE id = ?`),
		id,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. A limit of 0 returns
// every run.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT id, outcome, checked, files_with_issues, total_errors, missing, format, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.conn.Query(d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetFileReports returns the file reports recorded for a run in insertion order.
func (d *DB) GetFileReports(runID string) ([]FileReport, error) {
	rows, err := d.conn.Query(d.rebind(
		`SELECT id, run_id, file_path, error_count, findings FROM file_reports WHERE run_id = ? ORDER BY id`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get file reports: %w", err)
	}
	defer rows.Close()

	var out []FileReport
	for rows.Next() {
		var f FileReport
		var findings sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.FilePath, &f.ErrorCount, &findings); err != nil {
			return nil, fmt.Errorf("scan file report: %w", err)
		}
		if findings.Valid {
			f.Findings = findings.String
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many were removed.
func (d *DB) PruneRuns(keep int) (int, error) {
	res, err := d.conn.Exec(d.rebind(
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?
		)`),
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var durationMs sql.NullInt64
	if err := s.Scan(&r.ID, &r.Outcome, &r.Checked, &r.FilesWithIssues, &r.TotalErrors, &r.Missing, &r.Format, &durationMs, &r.CreatedAt); err != nil {
		return nil, err
	}
	if durationMs.Valid {
		r.DurationMs = durationMs.Int64
	}
	return &r, nil
}
