package models

import (
	"time"
)

// BackupReport represents the results of a backup run
type BackupReport struct {
	// Operation details
	OperationID string
	SourcePath  string
	DestPath    string
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Diff is the classification that was computed (and applied unless DryRun)
	Diff *DiffResult

	// Statistics
	Stats Statistics

	// File operations performed, in order
	Operations []FileOperation

	// Errors for individual paths
	Errors []BackupError

	// PruneErrors are reported but never change Status
	PruneErrors []BackupError

	// Overall status
	Status BackupStatus
}

// Statistics holds backup run metrics
type Statistics struct {
	SourceFilesScanned int
	DestFilesScanned   int

	FilesCreated   int
	FilesUpdated   int
	FilesDeleted   int
	FilesUnchanged int
	FilesErrored   int

	DirsCreated int
	DirsPruned  int

	BytesTransferred int64
}

// BackupStatus represents the overall result
type BackupStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess BackupStatus = "success"
	// StatusPartial indicates some operations failed
	StatusPartial BackupStatus = "partial"
	// StatusFailed indicates the run failed before or during apply
	StatusFailed BackupStatus = "failed"
)

// BackupError represents an error during a backup run
type BackupError struct {
	FilePath  string
	Operation Action
	Error     string
	Timestamp time.Time
}

// ExitCode returns the appropriate exit code for the status
func (s BackupStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	default:
		return 2
	}
}
