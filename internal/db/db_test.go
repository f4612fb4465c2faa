package db

import (
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// pgTestDB connects to the database named by LINTGATE_TEST_PG_DSN.
func pgTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("LINTGATE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LINTGATE_TEST_PG_DSN not set")
	}
	d, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("reset postgres: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleRun(id, created string) Run {
	return Run{
		ID:              id,
		Outcome:         "issues_failed",
		Checked:         3,
		FilesWithIssues: 1,
		TotalErrors:     2,
		Missing:         1,
		Format:          "stylish",
		DurationMs:      42,
		CreatedAt:       created,
	}
}

func TestMigrate(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Verify all tables exist
	tables := []string{"schema_version", "runs", "file_reports"}
	for _, table := range tables {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	var version int
	if err := d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}

	// Migrate again should be idempotent
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)

	if err := d.LogRun(sampleRun("r1", ""), nil); err != nil {
		t.Fatalf("log run: %v", err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runs, err := d.ListRuns(0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs after reset, got %d", len(runs))
	}
}

func TestLogAndGetRun(t *testing.T) {
	d := testDB(t)

	files := []FileReport{
		{FilePath: "a.html", ErrorCount: 2, Findings: `[{"ruleId":"x"},{"ruleId":"y"}]`},
	}
	if err := d.LogRun(sampleRun("r1", ""), files); err != nil {
		t.Fatalf("log run: %v", err)
	}

	r, err := d.GetRun("r1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if r == nil {
		t.Fatal("expected run, got nil")
	}
	if r.Outcome != "issues_failed" || r.TotalErrors != 2 || r.Missing != 1 || r.DurationMs != 42 {
		t.Errorf("unexpected run: %+v", r)
	}
	if r.CreatedAt == "" {
		t.Error("expected CreatedAt to be filled")
	}

	reports, err := d.GetFileReports("r1")
	if err != nil {
		t.Fatalf("get file reports: %v", err)
	}
	if len(reports) != 1 || reports[0].FilePath != "a.html" || reports[0].ErrorCount != 2 {
		t.Errorf("unexpected file reports: %+v", reports)
	}
	if reports[0].Findings != files[0].Findings {
		t.Errorf("findings = %q, want %q", reports[0].Findings, files[0].Findings)
	}
}

func TestGetRunNotFound(t *testing.T) {
	d := testDB(t)
	r, err := d.GetRun("missing")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil for unknown run, got %+v", r)
	}
}

func TestLogRunRejectsUnknownOutcome(t *testing.T) {
	d := testDB(t)
	r := sampleRun("bad", "")
	r.Outcome = "maybe"
	if err := d.LogRun(r, nil); err == nil {
		t.Error("expected constraint error for unknown outcome")
	}
}

func TestLogRunIsAtomic(t *testing.T) {
	d := testDB(t)
	if err := d.LogRun(sampleRun("dup", ""), nil); err != nil {
		t.Fatalf("log run: %v", err)
	}
	// Same ID again: the run insert fails and no file report may be left behind.
	err := d.LogRun(sampleRun("dup", ""), []FileReport{{FilePath: "x.html", ErrorCount: 1}})
	if err == nil {
		t.Fatal("expected duplicate run error")
	}
	reports, _ := d.GetFileReports("dup")
	if len(reports) != 0 {
		t.Errorf("expected no file reports from failed insert, got %d", len(reports))
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	d := testDB(t)
	d.LogRun(sampleRun("old", "2026-01-01T00:00:00.000000Z"), nil)
	d.LogRun(sampleRun("new", "2026-03-01T00:00:00.000000Z"), nil)
	d.LogRun(sampleRun("mid", "2026-02-01T00:00:00.000000Z"), nil)

	runs, err := d.ListRuns(0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" || runs[2].ID != "old" {
		t.Errorf("unexpected order: %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	limited, err := d.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "new" {
		t.Errorf("unexpected limited runs: %+v", limited)
	}
}

func TestPruneRuns(t *testing.T) {
	d := testDB(t)
	d.LogRun(sampleRun("a", "2026-01-01T00:00:00.000000Z"), []FileReport{{FilePath: "a.html", ErrorCount: 1}})
	d.LogRun(sampleRun("b", "2026-01-02T00:00:00.000000Z"), nil)
	d.LogRun(sampleRun("c", "2026-01-03T00:00:00.000000Z"), nil)

	n, err := d.PruneRuns(1)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
	runs, _ := d.ListRuns(0)
	if len(runs) != 1 || runs[0].ID != "c" {
		t.Errorf("expected only c to remain, got %+v", runs)
	}
	reports, _ := d.GetFileReports("a")
	if len(reports) != 0 {
		t.Error("expected file reports of pruned run to cascade")
	}
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	pg := &DB{driver: DriverPostgres}
	q := "SELECT * FROM runs WHERE id = ? AND outcome = ?"

	if got := sqlite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	if got := pg.rebind(q); got != "SELECT * FROM runs WHERE id = $1 AND outcome = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
}

func TestOpenDriverUnknown(t *testing.T) {
	if _, err := OpenDriver("mongo", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	d := pgTestDB(t)
	if err := d.LogRun(sampleRun("pg1", ""), []FileReport{{FilePath: "a.html", ErrorCount: 2, Findings: "[]"}}); err != nil {
		t.Fatalf("log run: %v", err)
	}
	r, err := d.GetRun("pg1")
	if err != nil || r == nil {
		t.Fatalf("get run: %v %+v", err, r)
	}
	reports, err := d.GetFileReports("pg1")
	if err != nil || len(reports) != 1 {
		t.Fatalf("get file reports: %v %+v", err, reports)
	}
}
