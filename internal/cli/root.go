package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the tibu command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tibu",
		Short: "Mirror a directory tree into a backup directory",
		Long: `tibu makes a destination directory mirror a source directory.
New files are copied, files whose source is strictly newer are overwritten,
files missing from the source are deleted and emptied directories are pruned.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewBackupCommand())
	rootCmd.AddCommand(NewDiffCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
