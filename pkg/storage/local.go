package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sdejongh/tibu/internal/platform"
	"github.com/sdejongh/tibu/pkg/models"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend.
// The root does not have to exist yet, but if it exists it must be a directory.
func NewLocal(rootPath string) (*Local, error) {
	if err := platform.ValidatePath(rootPath); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if err == nil && !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	// The walk never follows links, so a linked root is resolved once here
	if err == nil {
		if resolved, evalErr := filepath.EvalSymlinks(absPath); evalErr == nil {
			absPath = resolved
		}
	}

	return &Local{rootPath: platform.NormalizePath(absPath)}, nil
}

// Root returns the absolute root path
func (l *Local) Root() string {
	return l.rootPath
}

// List returns all entries below path recursively
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath := platform.FromSlash(l.rootPath, path)

	var files []FileInfo

	err := filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p == fullPath && d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry, err := l.fileInfo(p, info)
		if err != nil {
			return err
		}
		files = append(files, *entry)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && (path == "" || path == ".") {
			if _, statErr := os.Lstat(fullPath); errors.Is(statErr, fs.ErrNotExist) {
				return nil, &models.PathNotFoundError{Path: fullPath}
			}
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// ReadDir returns the direct children of a directory
func (l *Local) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath := platform.FromSlash(l.rootPath, path)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to read directory entry: %w", err)
		}
		entry, err := l.fileInfo(filepath.Join(fullPath, e.Name()), info)
		if err != nil {
			return nil, err
		}
		files = append(files, *entry)
	}

	return files, nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := platform.FromSlash(l.rootPath, path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		if (path == "" || path == ".") && errors.Is(err, fs.ErrNotExist) {
			return nil, &models.PathNotFoundError{Path: fullPath}
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return l.fileInfo(fullPath, info)
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(platform.FromSlash(l.rootPath, path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(platform.FromSlash(l.rootPath, path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Write creates or overwrites a file
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := platform.FromSlash(l.rootPath, path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// os.Create follows links, so an existing link is unlinked first
	if info, err := os.Lstat(fullPath); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("failed to replace link: %w", err)
		}
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if metadata == nil {
		return nil
	}

	// Permissions first: chmod does not touch the modification time
	if perm := metadata.Mode.Perm(); perm != 0 {
		if err := os.Chmod(fullPath, perm); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}
	if !metadata.ModTime.IsZero() {
		if err := os.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return nil
}

// Delete removes a single file
func (l *Local) Delete(ctx context.Context, path string) error {
	fullPath := platform.FromSlash(l.rootPath, path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("failed to delete %s: %w", path, models.ErrTypeMismatch)
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// RemoveDir removes an empty directory
func (l *Local) RemoveDir(ctx context.Context, path string) error {
	if path == "" || path == "." {
		return fmt.Errorf("refusing to remove backend root %s", l.rootPath)
	}
	// os.Remove refuses non-empty directories
	if err := os.Remove(platform.FromSlash(l.rootPath, path)); err != nil {
		return fmt.Errorf("failed to remove directory: %w", err)
	}
	return nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(platform.FromSlash(l.rootPath, path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func (l *Local) fileInfo(fullPath string, info fs.FileInfo) (*FileInfo, error) {
	relPath, err := platform.RelSlash(l.rootPath, fullPath)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Path:         fullPath,
		RelativePath: relPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		Mode:         info.Mode(),
		IsDir:        info.IsDir(),
	}, nil
}
