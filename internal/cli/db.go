package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Run history database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()
		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s).\n", d.Driver())
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return &UsageError{Err: fmt.Errorf("refusing to drop run history without --yes")}
		}
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Reset(); err != nil {
			return fmt.Errorf("reset database: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Run history cleared.")
		return nil
	},
}

func init() {
	dbResetCmd.Flags().Bool("yes", false, "confirm dropping all run history")
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}
