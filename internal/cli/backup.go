package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdejongh/tibu/pkg/backup"
	"github.com/sdejongh/tibu/pkg/compare"
	"github.com/sdejongh/tibu/pkg/config"
	"github.com/sdejongh/tibu/pkg/logging"
	"github.com/sdejongh/tibu/pkg/models"
	"github.com/sdejongh/tibu/pkg/output"
	"github.com/sdejongh/tibu/pkg/storage"
)

// BackupFlags holds backup command flags
type BackupFlags struct {
	Source     string
	Dest       string
	DryRun     bool
	Bandwidth  string
	Exclude    []string
	Output     string
	DiffReport string
	DiffFormat string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var backupFlags BackupFlags

// NewBackupCommand creates the backup command
func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Mirror source into destination",
		Long: `Make the destination directory mirror the source directory.
Files are compared by modification time only: a file is copied when it is
new or strictly newer in the source, deleted when it no longer exists in the
source, and directories left empty are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, backupFlags.DryRun)
		},
	}

	addPathFlags(cmd)
	cmd.Flags().BoolVar(&backupFlags.DryRun, "dry-run", false, "compute and print the diff without applying it")
	cmd.Flags().StringVarP(&backupFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit per second (e.g., \"10MB\", \"512KiB\")")

	// Logging flags
	cmd.Flags().StringVar(&backupFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&backupFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&backupFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

// addPathFlags registers the flags shared by backup and diff
func addPathFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&backupFlags.Source, "source", "s", "", "source directory path (required)")
	cmd.Flags().StringVarP(&backupFlags.Dest, "dest", "d", "", "destination directory path (required)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")

	cmd.Flags().StringSliceVar(&backupFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().StringVarP(&backupFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&backupFlags.DiffReport, "diff-report", "", "write the planned operations to file")
	cmd.Flags().StringVar(&backupFlags.DiffFormat, "diff-format", "human", "diff report format: human, json")
}

func runBackup(cmd *cobra.Command, dryRun bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Validate flags
	if err := validateBackupFlags(); err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return err
	}

	operation, err := createBackupOperation(cfg, dryRun)
	if err != nil {
		return fmt.Errorf("failed to create backup operation: %w", err)
	}

	// Create storage backends
	source, err := storage.NewLocal(backupFlags.Source)
	if err != nil {
		return fmt.Errorf("failed to create source backend: %w", err)
	}
	defer source.Close()

	dest, err := storage.NewLocal(backupFlags.Dest)
	if err != nil {
		return fmt.Errorf("failed to create destination backend: %w", err)
	}
	defer dest.Close()

	out := cmd.OutOrStdout()
	formatter, err := createFormatter(cfg, out)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	engine := backup.NewEngine(source, dest, compare.NewTimestampComparator(), formatter, logger, operation)
	engine.SetOutput(out)

	report, runErr := engine.Run(ctx)
	if report.Diff == nil {
		if formatter != nil && formatter.Name() == "json" {
			formatter.Error(runErr)
		}
		return fmt.Errorf("backup failed: %w", runErr)
	}

	if backupFlags.DiffReport != "" {
		if err := output.WriteDiffReport(report, backupFlags.DiffReport, backupFlags.DiffFormat); err != nil {
			return err
		}
	}

	switch report.Status {
	case models.StatusSuccess:
		return nil
	case models.StatusPartial:
		return fmt.Errorf("backup incomplete: %d of %d operations failed", len(report.Errors), report.Diff.Len())
	default:
		if runErr == nil {
			runErr = errors.New("unknown failure")
		}
		return fmt.Errorf("backup failed: %w", runErr)
	}
}

// createFormatter returns nil in quiet mode
func createFormatter(cfg *config.Config, out io.Writer) (output.Formatter, error) {
	if cfg.Output.Quiet {
		return nil, nil
	}

	tty := isTerminal(out)
	return output.New(output.Options{
		Format:   cfg.Output.Format,
		Progress: cfg.Output.Progress && tty,
		Color:    cfg.Output.Color && tty,
	})
}

// createLogger creates a logger based on configuration
func createLogger(cfg *config.Config, stderr io.Writer) (logging.Logger, error) {
	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}

	if cfg.Logging.Enabled && cfg.Logging.File != "" {
		return logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
	}

	if globalFlags.Verbose {
		return logging.NewWriterLogger(stderr, format, logging.DebugLevel), nil
	}

	return logging.NewNullLogger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
