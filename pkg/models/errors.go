package models

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch marks a path that is a file on one side and a directory on the other
var ErrTypeMismatch = errors.New("file and directory type mismatch")

// PathNotFoundError reports a missing tree root
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return "path not found: " + e.Path
}

// FileAccessError reports a file that vanished or became unreadable between
// scan and use. It only aborts the operation on that path.
type FileAccessError struct {
	Path string
	Op   Action
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// DirectoryPruneError reports an empty directory that could not be removed
type DirectoryPruneError struct {
	Path string
	Err  error
}

func (e *DirectoryPruneError) Error() string {
	return fmt.Sprintf("prune %s: %v", e.Path, e.Err)
}

func (e *DirectoryPruneError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
