package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sdejongh/tibu/pkg/compare"
	"github.com/sdejongh/tibu/pkg/logging"
	"github.com/sdejongh/tibu/pkg/models"
	"github.com/sdejongh/tibu/pkg/output"
	"github.com/sdejongh/tibu/pkg/ratelimit"
	"github.com/sdejongh/tibu/pkg/storage"
)

// scanStats records what the last Diff saw
type scanStats struct {
	sourceFiles int
	destFiles   int
	unchanged   int
}

// Engine orchestrates a backup run from source to destination
type Engine struct {
	source     storage.Backend
	dest       storage.Backend
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	operation  *models.BackupOperation
	excludes   *Excluder
	limiter    *ratelimit.Limiter
	out        io.Writer
	scanned    scanStats
}

// NewEngine creates a new backup engine.
// A nil formatter disables output and a nil logger discards log entries.
func NewEngine(
	source, dest storage.Backend,
	comparator compare.Comparator,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.BackupOperation,
) *Engine {
	if comparator == nil {
		comparator = compare.NewTimestampComparator()
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{
		source:     source,
		dest:       dest,
		comparator: comparator,
		formatter:  formatter,
		logger:     logger,
		operation:  operation,
		excludes:   NewExcluder(operation.ExcludePatterns),
		limiter:    ratelimit.NewLimiter(operation.BandwidthLimit),
		out:        os.Stdout,
	}
}

// SetOutput redirects formatter output, stdout by default
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// Run computes the diff, applies it unless the operation is a dry run, and
// reports the outcome. The returned error is non-nil when the diff failed or
// any path could not be applied; the report is returned in both cases.
// The formatter is not involved when the diff fails.
func (e *Engine) Run(ctx context.Context) (*models.BackupReport, error) {
	report := &models.BackupReport{
		OperationID: e.operation.ID,
		SourcePath:  e.operation.SourcePath,
		DestPath:    e.operation.DestPath,
		DryRun:      e.operation.DryRun,
		StartTime:   time.Now(),
	}
	logger := e.logger.WithFields(logging.Fields{"operation_id": e.operation.ID})

	logger.Info(ctx, "Backup started", logging.Fields{
		"source":      e.operation.SourcePath,
		"destination": e.operation.DestPath,
		"dry_run":     e.operation.DryRun,
	})

	diff, err := e.Diff(ctx)
	if err != nil {
		logger.Error(ctx, "Diff failed", err, nil)
		e.finish(report, models.StatusFailed)
		return report, err
	}

	report.Diff = diff
	report.Stats.SourceFilesScanned = e.scanned.sourceFiles
	report.Stats.DestFilesScanned = e.scanned.destFiles
	report.Stats.FilesUnchanged = e.scanned.unchanged

	if e.formatter != nil {
		if err := e.formatter.Start(e.out, diff); err != nil {
			logger.Warn(ctx, "Formatter failed to start", logging.Fields{"error": err.Error()})
		}
	}

	var applyErr error
	if e.operation.DryRun {
		report.Stats.FilesCreated = len(diff.Create)
		report.Stats.FilesUpdated = len(diff.Update)
		report.Stats.FilesDeleted = len(diff.Delete)
	} else {
		var result *ApplyResult
		result, applyErr = e.Apply(ctx, diff)
		result.fill(report)
	}

	status := models.StatusSuccess
	switch {
	case errors.Is(applyErr, context.Canceled), errors.Is(applyErr, context.DeadlineExceeded):
		status = models.StatusFailed
	case applyErr != nil:
		status = models.StatusPartial
	}
	e.finish(report, status)

	logger.Info(ctx, "Backup finished", logging.Fields{
		"status":        string(report.Status),
		"created":       report.Stats.FilesCreated,
		"updated":       report.Stats.FilesUpdated,
		"deleted":       report.Stats.FilesDeleted,
		"errors":        len(report.Errors),
		"prune_errors":  len(report.PruneErrors),
		"duration_ms":   report.Duration.Milliseconds(),
		"bytes_written": report.Stats.BytesTransferred,
	})

	if e.formatter != nil {
		if err := e.formatter.Complete(report); err != nil {
			logger.Warn(ctx, "Formatter failed to complete", logging.Fields{"error": err.Error()})
		}
	}

	return report, applyErr
}

func (e *Engine) finish(report *models.BackupReport, status models.BackupStatus) {
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Status = status
}

func (e *Engine) progress(update output.ProgressUpdate) {
	if e.formatter != nil {
		e.formatter.Progress(update)
	}
}
