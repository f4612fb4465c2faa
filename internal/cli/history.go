package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/lintgate/internal/lint"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded lint runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := d.ListRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Run", "Created", "Outcome", "Checked", "Files With Issues", "Errors", "Missing", "Format", "Duration"})
		for _, r := range runs {
			t.AppendRow(table.Row{r.ID, r.CreatedAt, r.Outcome, r.Checked, r.FilesWithIssues, r.TotalErrors, r.Missing, r.Format, fmt.Sprintf("%dms", r.DurationMs)})
		}
		t.Render()
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run and its findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := d.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %q not found", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:      %s\n", run.ID)
		fmt.Fprintf(out, "Created:  %s\n", run.CreatedAt)
		fmt.Fprintf(out, "Outcome:  %s\n", run.Outcome)
		fmt.Fprintf(out, "Checked:  %d file(s), %d missing\n", run.Checked, run.Missing)
		fmt.Fprintf(out, "Errors:   %d in %d file(s)\n", run.TotalErrors, run.FilesWithIssues)
		fmt.Fprintf(out, "Format:   %s\n", run.Format)

		files, err := d.GetFileReports(run.ID)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"File", "Line", "Col", "Rule", "Message"})
		for _, f := range files {
			var findings []lint.Finding
			if err := json.Unmarshal([]byte(f.Findings), &findings); err != nil {
				t.AppendRow(table.Row{f.FilePath, "", "", "", fmt.Sprintf("(%d findings, unreadable: %v)", f.ErrorCount, err)})
				continue
			}
			for _, fd := range findings {
				t.AppendRow(table.Row{f.FilePath, fd.Line, fd.Column, fd.RuleID, fd.Message})
			}
		}
		fmt.Fprintln(out)
		t.Render()
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		if keep < 0 {
			return &UsageError{Err: fmt.Errorf("--keep must not be negative")}
		}

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := d.PruneRuns(keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s).\n", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs to show (0 = all)")
	historyPruneCmd.Flags().Int("keep", 100, "number of newest runs to keep")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}
