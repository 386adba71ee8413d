package models

import (
	"time"
)

// Action represents what should be done with a file
type Action string

const (
	// ActionCreate copies a file that is missing from the destination
	ActionCreate Action = "create"
	// ActionUpdate overwrites a destination file with a newer source file
	ActionUpdate Action = "update"
	// ActionDelete removes a file that no longer exists in the source
	ActionDelete Action = "delete"
	// ActionSkip leaves the file untouched
	ActionSkip Action = "skip"
	// ActionPrune removes an empty destination directory
	ActionPrune Action = "prune"
	// ActionScan reads tree or file metadata
	ActionScan Action = "scan"
)

// FileOperation records one applied operation
type FileOperation struct {
	Path        string
	Action      Action
	Error       error
	BytesCopied int64
	Duration    time.Duration
}

// Succeeded reports whether the operation completed without error
func (op *FileOperation) Succeeded() bool {
	return op.Error == nil
}
