package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/sdejongh/tibu/pkg/models"
)

// newTestLocal creates a Local backend over a fresh temp directory
func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()

	tempDir := t.TempDir()
	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return local, local.Root()
}

func writeTestFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	fullPath := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		local, err := NewLocal(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}
		if local == nil {
			t.Fatal("NewLocal() returned nil")
		}
		defer local.Close()
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "not", "yet")
		local, err := NewLocal(missing)
		if err != nil {
			t.Fatalf("NewLocal() should accept a missing root: %v", err)
		}
		if _, err := os.Stat(missing); !os.IsNotExist(err) {
			t.Error("NewLocal() must not create the root")
		}
		if !filepath.IsAbs(local.Root()) {
			t.Errorf("Root() = %s, want absolute path", local.Root())
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(tempFile, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}

		if _, err := NewLocal(tempFile); err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})

	t.Run("EmptyPath", func(t *testing.T) {
		if _, err := NewLocal(""); err == nil {
			t.Error("NewLocal() should fail for empty path")
		}
	})
}

// TestLocalList tests the List method
func TestLocalList(t *testing.T) {
	local, root := newTestLocal(t)

	files := map[string][]byte{
		"file1.txt":             []byte("content1"),
		"file2.txt":             []byte("content2"),
		"subdir/file3.txt":      []byte("content3"),
		"subdir/deep/file4.txt": []byte("content4"),
	}
	for path, content := range files {
		writeTestFile(t, root, path, content)
	}
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	ctx := context.Background()

	t.Run("ListAll", func(t *testing.T) {
		entries, err := local.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		var gotFiles, gotDirs []string
		for _, e := range entries {
			if e.IsDir {
				gotDirs = append(gotDirs, e.RelativePath)
			} else {
				gotFiles = append(gotFiles, e.RelativePath)
			}
		}
		sort.Strings(gotFiles)
		sort.Strings(gotDirs)

		wantFiles := []string{"file1.txt", "file2.txt", "subdir/deep/file4.txt", "subdir/file3.txt"}
		if len(gotFiles) != len(wantFiles) {
			t.Fatalf("List() files = %v, want %v", gotFiles, wantFiles)
		}
		for i := range wantFiles {
			if gotFiles[i] != wantFiles[i] {
				t.Errorf("List() files[%d] = %s, want %s", i, gotFiles[i], wantFiles[i])
			}
		}

		wantDirs := []string{"empty", "subdir", "subdir/deep"}
		if len(gotDirs) != len(wantDirs) {
			t.Fatalf("List() dirs = %v, want %v (root excluded)", gotDirs, wantDirs)
		}
	})

	t.Run("ListSubdir", func(t *testing.T) {
		entries, err := local.List(ctx, "subdir")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, e := range entries {
			if e.RelativePath == "subdir/file3.txt" {
				return
			}
		}
		t.Errorf("List(subdir) = %v, missing subdir/file3.txt", entries)
	})

	t.Run("MissingRoot", func(t *testing.T) {
		missing, err := NewLocal(filepath.Join(root, "nope"))
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}
		_, err = missing.List(ctx, "")
		var notFound *models.PathNotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("List() error = %v, want PathNotFoundError", err)
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := local.List(ctx, ""); err == nil {
			t.Error("List() should return error on cancelled context")
		}
	})
}

func TestLocalListSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	local, root := newTestLocal(t)
	outside := t.TempDir()
	writeTestFile(t, outside, "secret.txt", []byte("x"))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	entries, err := local.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() = %v, want only the link entry", entries)
	}
	if entries[0].IsDir || entries[0].IsRegular() {
		t.Error("symlink entry should be neither a directory nor a regular file")
	}
}

// TestLocalRead tests the Read method
func TestLocalRead(t *testing.T) {
	local, root := newTestLocal(t)
	content := []byte("test content for reading")
	writeTestFile(t, root, "test.txt", content)

	ctx := context.Background()

	t.Run("ReadExistingFile", func(t *testing.T) {
		reader, err := local.Read(ctx, "test.txt")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("Read() content = %s, want %s", string(data), string(content))
		}
	})

	t.Run("ReadNonExistentFile", func(t *testing.T) {
		if _, err := local.Read(ctx, "nonexistent.txt"); err == nil {
			t.Error("Read() should fail for non-existent file")
		}
	})
}

// TestLocalWrite tests the Write method
func TestLocalWrite(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	t.Run("WriteWithSubdir", func(t *testing.T) {
		content := []byte("nested")
		if err := local.Write(ctx, "a/b/c.txt", bytes.NewReader(content), int64(len(content)), nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("content = %s, want %s", data, content)
		}
	})

	t.Run("WriteWithMetadata", func(t *testing.T) {
		content := []byte("metadata")
		modTime := time.Date(2023, 5, 17, 10, 30, 0, 123456789, time.UTC)
		meta := &FileInfo{ModTime: modTime, Mode: 0600}

		if err := local.Write(ctx, "meta.txt", bytes.NewReader(content), int64(len(content)), meta); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		info, err := os.Stat(filepath.Join(root, "meta.txt"))
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if !info.ModTime().Equal(modTime) {
			t.Errorf("ModTime = %v, want %v", info.ModTime(), modTime)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
			t.Errorf("Mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("OverwriteFile", func(t *testing.T) {
		writeTestFile(t, root, "over.txt", []byte("a much longer original content"))
		content := []byte("short")
		if err := local.Write(ctx, "over.txt", bytes.NewReader(content), int64(len(content)), nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(root, "over.txt"))
		if !bytes.Equal(data, content) {
			t.Errorf("content = %s, want %s", data, content)
		}
	})

	t.Run("ReplacesSymlink", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on Windows")
		}
		target := filepath.Join(t.TempDir(), "target.txt")
		if err := os.WriteFile(target, []byte("keep"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
			t.Fatal(err)
		}

		content := []byte("new")
		if err := local.Write(ctx, "link.txt", bytes.NewReader(content), int64(len(content)), nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if data, _ := os.ReadFile(target); string(data) != "keep" {
			t.Errorf("link target = %q, want %q", data, "keep")
		}
		info, err := os.Lstat(filepath.Join(root, "link.txt"))
		if err != nil {
			t.Fatalf("Lstat() error = %v", err)
		}
		if !info.Mode().IsRegular() {
			t.Errorf("Mode = %v, want a regular file", info.Mode())
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		if err := local.Write(ctx, "size.txt", bytes.NewReader([]byte("abc")), 10, nil); err == nil {
			t.Error("Write() should fail on incomplete write")
		}
	})
}

// TestLocalDelete tests the Delete method
func TestLocalDelete(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	t.Run("DeleteFile", func(t *testing.T) {
		writeTestFile(t, root, "del.txt", []byte("x"))
		if err := local.Delete(ctx, "del.txt"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "del.txt")); !os.IsNotExist(err) {
			t.Error("file should be deleted")
		}
	})

	t.Run("DeleteDirectoryRefused", func(t *testing.T) {
		writeTestFile(t, root, "dir/keep.txt", []byte("x"))
		err := local.Delete(ctx, "dir")
		if !errors.Is(err, models.ErrTypeMismatch) {
			t.Errorf("Delete() error = %v, want ErrTypeMismatch", err)
		}
		if _, err := os.Stat(filepath.Join(root, "dir", "keep.txt")); err != nil {
			t.Error("directory content must survive")
		}
	})

	t.Run("DeleteNonExistent", func(t *testing.T) {
		err := local.Delete(ctx, "nonexistent.txt")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Delete() error = %v, want not exist", err)
		}
	})
}

// TestLocalRemoveDir tests the RemoveDir method
func TestLocalRemoveDir(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	t.Run("EmptyDir", func(t *testing.T) {
		if err := os.MkdirAll(filepath.Join(root, "empty"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := local.RemoveDir(ctx, "empty"); err != nil {
			t.Fatalf("RemoveDir() error = %v", err)
		}
	})

	t.Run("NonEmptyDir", func(t *testing.T) {
		writeTestFile(t, root, "full/file.txt", []byte("x"))
		if err := local.RemoveDir(ctx, "full"); err == nil {
			t.Error("RemoveDir() should fail for non-empty directory")
		}
	})

	t.Run("Root", func(t *testing.T) {
		if err := local.RemoveDir(ctx, "."); err == nil {
			t.Error("RemoveDir() must refuse the root")
		}
	})
}

// TestLocalExists tests the Exists method
func TestLocalExists(t *testing.T) {
	local, root := newTestLocal(t)
	writeTestFile(t, root, "exists.txt", []byte("x"))
	ctx := context.Background()

	exists, err := local.Exists(ctx, "exists.txt")
	if err != nil || !exists {
		t.Errorf("Exists(exists.txt) = %v, %v; want true, nil", exists, err)
	}

	exists, err = local.Exists(ctx, "missing.txt")
	if err != nil || exists {
		t.Errorf("Exists(missing.txt) = %v, %v; want false, nil", exists, err)
	}
}

// TestLocalStat tests the Stat method
func TestLocalStat(t *testing.T) {
	local, root := newTestLocal(t)
	writeTestFile(t, root, "dir/stat.txt", []byte("12345"))
	ctx := context.Background()

	t.Run("ExistingFile", func(t *testing.T) {
		info, err := local.Stat(ctx, "dir/stat.txt")
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if info.Size != 5 {
			t.Errorf("Size = %d, want 5", info.Size)
		}
		if info.RelativePath != "dir/stat.txt" {
			t.Errorf("RelativePath = %s, want dir/stat.txt", info.RelativePath)
		}
		if !info.IsRegular() {
			t.Error("IsRegular() should be true")
		}
	})

	t.Run("Directory", func(t *testing.T) {
		info, err := local.Stat(ctx, "dir")
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if !info.IsDir {
			t.Error("IsDir should be true")
		}
	})

	t.Run("MissingRoot", func(t *testing.T) {
		missing, _ := NewLocal(filepath.Join(root, "nope"))
		_, err := missing.Stat(ctx, ".")
		var notFound *models.PathNotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("Stat() error = %v, want PathNotFoundError", err)
		}
	})
}

// TestLocalMkdirAll tests the MkdirAll method
func TestLocalMkdirAll(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fresh")
	local, err := NewLocal(root)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	if err := local.MkdirAll(ctx, "."); err != nil {
		t.Fatalf("MkdirAll(.) error = %v", err)
	}
	if err := local.MkdirAll(ctx, "x/y/z"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := local.MkdirAll(ctx, "x/y/z"); err != nil {
		t.Fatalf("MkdirAll() should be idempotent: %v", err)
	}
	if info, err := os.Stat(filepath.Join(root, "x", "y", "z")); err != nil || !info.IsDir() {
		t.Error("directory should exist")
	}
}

// TestBackendInterface verifies implementations satisfy Backend
func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
	var _ Backend = (*Billy)(nil)
}
