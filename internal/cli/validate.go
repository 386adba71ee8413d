package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/tibu/internal/platform"
	"github.com/sdejongh/tibu/pkg/config"
	"github.com/sdejongh/tibu/pkg/models"
)

// validateBackupFlags validates the source and destination flags
func validateBackupFlags() error {
	sourceInfo, err := os.Stat(backupFlags.Source)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("source path does not exist: %s", backupFlags.Source)
	} else if err != nil {
		return fmt.Errorf("failed to access source path: %w", err)
	} else if !sourceInfo.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", backupFlags.Source)
	}

	// A missing destination is created by the backup itself
	destInfo, err := os.Stat(backupFlags.Dest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to access destination path: %w", err)
	}
	if err == nil && !destInfo.IsDir() {
		return fmt.Errorf("destination path exists but is not a directory: %s", backupFlags.Dest)
	}

	sourceAbs, err := filepath.Abs(backupFlags.Source)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	destAbs, err := filepath.Abs(backupFlags.Dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}

	if platform.NormalizePath(sourceAbs) == platform.NormalizePath(destAbs) {
		return fmt.Errorf("source and destination cannot be the same: %s", sourceAbs)
	}
	if platform.IsNested(sourceAbs, destAbs) {
		return fmt.Errorf("destination cannot be inside source directory")
	}
	if platform.IsNested(destAbs, sourceAbs) {
		return fmt.Errorf("source cannot be inside destination directory")
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[backupFlags.DiffFormat] {
		return fmt.Errorf("invalid diff report format: %s (valid: human, json)", backupFlags.DiffFormat)
	}

	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with the flags set on cmd
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("exclude") {
		cfg.Backup.Exclude = append(cfg.Backup.Exclude, backupFlags.Exclude...)
	}

	if flags.Changed("output") {
		cfg.Output.Format = backupFlags.Output
	}

	if flags.Changed("bandwidth") && backupFlags.Bandwidth != "" {
		limit, err := humanize.ParseBytes(backupFlags.Bandwidth)
		if err != nil {
			return fmt.Errorf("invalid bandwidth limit %q: %w", backupFlags.Bandwidth, err)
		}
		cfg.Performance.BandwidthLimit = int64(limit)
	}

	if flags.Changed("log-file") {
		cfg.Logging.Enabled = backupFlags.LogFile != ""
		cfg.Logging.File = backupFlags.LogFile
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = backupFlags.LogFormat
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = backupFlags.LogLevel
	}

	// Quiet wins over everything else
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// createBackupOperation creates a backup operation from configuration
func createBackupOperation(cfg *config.Config, dryRun bool) (*models.BackupOperation, error) {
	operation := &models.BackupOperation{
		ID:              uuid.New().String(),
		SourcePath:      backupFlags.Source,
		DestPath:        backupFlags.Dest,
		ExcludePatterns: cfg.Backup.Exclude,
		DryRun:          dryRun,
		BandwidthLimit:  cfg.Performance.BandwidthLimit,
		BufferSize:      cfg.Performance.BufferSize,
		CreatedAt:       time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}
