package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/lintgate/internal/formatter"
)

var formattersCmd = &cobra.Command{
	Use:   "formatters",
	Short: "List the built-in report formatters",
	Long: `List the built-in report formatters. Any --format value containing a slash is
instead loaded as a file: *.tmpl, *.tpl and *.gotmpl files as Go templates, other
executable files as programs that read the JSON report on stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Name", "Resolves To", "Default"})
		for _, name := range formatter.NewRegistry().Names() {
			def := ""
			if name == formatter.DefaultFormatter {
				def = "yes"
			}
			t.AppendRow(table.Row{name, formatter.Namespace + "/" + name, def})
		}
		t.Render()
		return nil
	},
}
