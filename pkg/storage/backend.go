package storage

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// FileInfo represents metadata about a file or directory
type FileInfo struct {
	// Path is the location on the backing filesystem
	Path string
	// RelativePath is slash-separated and relative to the backend root
	RelativePath string
	Size         int64
	ModTime      time.Time
	Mode         fs.FileMode
	IsDir        bool
}

// IsRegular reports whether the entry is a regular file
func (fi *FileInfo) IsRegular() bool {
	return fi.Mode.IsRegular()
}

// Backend defines the filesystem operations a backup run needs.
// All paths are slash-separated and relative to the backend root;
// "" and "." denote the root itself.
type Backend interface {
	// Root returns the root the backend is bound to
	Root() string

	// List returns every entry below path recursively, directories included.
	// Symbolic links are reported as entries and never followed.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// ReadDir returns the direct children of a directory
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)

	// Stat returns file metadata without following a final symbolic link
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file with the given content.
	// If metadata is provided, modification time and permissions are preserved.
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Delete removes a single file; it never removes directories
	Delete(ctx context.Context, path string) error

	// RemoveDir removes an empty directory
	RemoveDir(ctx context.Context, path string) error

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}
