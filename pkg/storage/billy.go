package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/sdejongh/tibu/internal/platform"
	"github.com/sdejongh/tibu/pkg/models"
)

// Billy is a storage backend over a go-billy filesystem, rooted at a
// directory of that filesystem. With memfs it gives tests a tree that never
// touches the disk.
type Billy struct {
	fs   billy.Filesystem
	root string
}

// NewBilly binds a backend to root inside fsys
func NewBilly(fsys billy.Filesystem, root string) *Billy {
	if root == "" {
		root = "/"
	}
	return &Billy{fs: fsys, root: path.Clean("/" + strings.TrimPrefix(root, "/"))}
}

// NewMemory creates a backend on a fresh in-memory filesystem
func NewMemory(root string) *Billy {
	return NewBilly(memfs.New(), root)
}

// NewOS creates a backend on the host filesystem through go-billy's osfs
func NewOS(root string) *Billy {
	return NewBilly(osfs.New("/"), root)
}

// Filesystem returns the underlying go-billy filesystem
func (b *Billy) Filesystem() billy.Filesystem {
	return b.fs
}

// Root returns the root directory inside the filesystem
func (b *Billy) Root() string {
	return b.root
}

func (b *Billy) full(rel string) string {
	if rel == "" || rel == "." {
		return b.root
	}
	return path.Join(b.root, rel)
}

func (b *Billy) fileInfo(full string, info os.FileInfo) (FileInfo, error) {
	rel, err := platform.RelSlash(b.root, full)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:         full,
		RelativePath: rel,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		Mode:         info.Mode(),
		IsDir:        info.IsDir(),
	}, nil
}

// List returns all entries below p recursively, in lexical order
func (b *Billy) List(ctx context.Context, p string) ([]FileInfo, error) {
	start := b.full(p)
	if _, err := b.fs.Lstat(start); err != nil {
		if errors.Is(err, fs.ErrNotExist) && start == b.root {
			return nil, &models.PathNotFoundError{Path: start}
		}
		return nil, fmt.Errorf("billy: list %q: %w", start, err)
	}

	var files []FileInfo
	if err := b.walk(ctx, start, &files); err != nil {
		return nil, fmt.Errorf("billy: list %q: %w", start, err)
	}
	return files, nil
}

func (b *Billy) walk(ctx context.Context, dir string, files *[]FileInfo) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		full := path.Join(dir, e.Name())
		fi, err := b.fileInfo(full, e)
		if err != nil {
			return err
		}
		*files = append(*files, fi)
		// Links are never followed, only directories proper are descended
		if e.IsDir() && e.Mode()&os.ModeSymlink == 0 {
			if err := b.walk(ctx, full, files); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadDir returns the direct children of a directory
func (b *Billy) ReadDir(ctx context.Context, p string) ([]FileInfo, error) {
	full := b.full(p)
	entries, err := b.fs.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("billy: readdir %q: %w", full, err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		fi, err := b.fileInfo(path.Join(full, e.Name()), e)
		if err != nil {
			return nil, fmt.Errorf("billy: readdir %q: %w", full, err)
		}
		files = append(files, fi)
	}
	return files, nil
}

// Stat returns file metadata
func (b *Billy) Stat(ctx context.Context, p string) (*FileInfo, error) {
	full := b.full(p)
	info, err := b.fs.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && full == b.root {
			return nil, &models.PathNotFoundError{Path: full}
		}
		return nil, fmt.Errorf("billy: stat %q: %w", full, err)
	}
	fi, err := b.fileInfo(full, info)
	if err != nil {
		return nil, fmt.Errorf("billy: stat %q: %w", full, err)
	}
	return &fi, nil
}

// Exists checks if a file or directory exists
func (b *Billy) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.fs.Lstat(b.full(p))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("billy: stat %q: %w", b.full(p), err)
	}
}

// Read opens a file for reading
func (b *Billy) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	f, err := b.fs.Open(b.full(p))
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", b.full(p), err)
	}
	return f, nil
}

// Write creates or overwrites a file. Metadata is applied when the
// filesystem supports billy.Change.
func (b *Billy) Write(ctx context.Context, p string, reader io.Reader, size int64, metadata *FileInfo) error {
	full := b.full(p)

	if err := b.fs.MkdirAll(path.Dir(full), 0755); err != nil {
		return fmt.Errorf("billy: mkdirall %q: %w", path.Dir(full), err)
	}

	f, err := b.fs.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("billy: create %q: %w", full, err)
	}
	written, err := io.Copy(f, reader)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("billy: write %q: %w", full, err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	change, ok := b.fs.(billy.Change)
	if metadata == nil || !ok {
		return nil
	}
	if perm := metadata.Mode.Perm(); perm != 0 {
		if err := change.Chmod(full, perm); err != nil {
			return fmt.Errorf("billy: chmod %q: %w", full, err)
		}
	}
	if !metadata.ModTime.IsZero() {
		if err := change.Chtimes(full, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("billy: chtimes %q: %w", full, err)
		}
	}
	return nil
}

// Delete removes a single file
func (b *Billy) Delete(ctx context.Context, p string) error {
	full := b.full(p)
	info, err := b.fs.Lstat(full)
	if err != nil {
		return fmt.Errorf("billy: remove %q: %w", full, err)
	}
	if info.IsDir() {
		return fmt.Errorf("billy: remove %q: %w", full, models.ErrTypeMismatch)
	}
	if err := b.fs.Remove(full); err != nil {
		return fmt.Errorf("billy: remove %q: %w", full, err)
	}
	return nil
}

// RemoveDir removes an empty directory
func (b *Billy) RemoveDir(ctx context.Context, p string) error {
	full := b.full(p)
	if full == b.root {
		return fmt.Errorf("refusing to remove backend root %s", b.root)
	}
	entries, err := b.fs.ReadDir(full)
	if err != nil {
		return fmt.Errorf("billy: remove %q: %w", full, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("billy: remove %q: directory not empty", full)
	}
	if err := b.fs.Remove(full); err != nil {
		return fmt.Errorf("billy: remove %q: %w", full, err)
	}
	return nil
}

// MkdirAll creates a directory and all necessary parents
func (b *Billy) MkdirAll(ctx context.Context, p string) error {
	if err := b.fs.MkdirAll(b.full(p), 0755); err != nil {
		return fmt.Errorf("billy: mkdirall %q: %w", b.full(p), err)
	}
	return nil
}

// Close releases resources (no-op)
func (b *Billy) Close() error {
	return nil
}
