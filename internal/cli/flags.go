package cli

import (
	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand. They are rebound to their
// defaults each time a root command is built.
type globalOptions struct {
	// ConfigFile overrides the XDG config location; the extension picks the decoder
	ConfigFile string
	// Verbose mirrors debug logs to stderr when no log file is configured
	Verbose bool
	// Quiet drops the formatter entirely; errors still reach stderr
	Quiet bool
}

var globalFlags globalOptions

// AddGlobalFlags registers --config, --verbose and --quiet on the root
// command. Verbose and quiet cannot be combined.
func AddGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&globalFlags.ConfigFile, "config", "",
		"config file, YAML or TOML (default is $XDG_CONFIG_HOME/tibu/config.yaml)")
	pf.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "log debug information to stderr")
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "print nothing but errors")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}
