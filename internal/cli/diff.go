package cli

import (
	"github.com/spf13/cobra"
)

// NewDiffCommand creates the diff command
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show what a backup would do (dry-run)",
		Long: `Compare source and destination and print the files that would be
created, updated and deleted, without touching either tree.
This is equivalent to backup --dry-run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, true)
		},
	}

	addPathFlags(cmd)

	return cmd
}
