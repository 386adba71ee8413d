package backup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdejongh/tibu/pkg/compare"
	"github.com/sdejongh/tibu/pkg/models"
	"github.com/sdejongh/tibu/pkg/storage"
)

var (
	t1 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
)

// testHelper provides a source and destination tree on disk
type testHelper struct {
	t         *testing.T
	sourceDir string
	destDir   string
}

func newTestHelper(t *testing.T) *testHelper {
	t.Helper()
	tempDir := t.TempDir()
	h := &testHelper{
		t:         t,
		sourceDir: filepath.Join(tempDir, "source"),
		destDir:   filepath.Join(tempDir, "dest"),
	}
	require.NoError(t, os.MkdirAll(h.sourceDir, 0755))
	require.NoError(t, os.MkdirAll(h.destDir, 0755))
	return h
}

func writeFile(t *testing.T, root, rel, content string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func (h *testHelper) source(rel, content string, modTime time.Time) {
	h.t.Helper()
	writeFile(h.t, h.sourceDir, rel, content, modTime)
}

func (h *testHelper) dest(rel, content string, modTime time.Time) {
	h.t.Helper()
	writeFile(h.t, h.destDir, rel, content, modTime)
}

func (h *testHelper) destPath(rel string) string {
	return filepath.Join(h.destDir, filepath.FromSlash(rel))
}

func (h *testHelper) readDest(rel string) string {
	h.t.Helper()
	data, err := os.ReadFile(h.destPath(rel))
	require.NoError(h.t, err)
	return string(data)
}

func (h *testHelper) destExists(rel string) bool {
	_, err := os.Lstat(h.destPath(rel))
	return err == nil
}

func (h *testHelper) backends() (storage.Backend, storage.Backend) {
	h.t.Helper()
	src, err := storage.NewLocal(h.sourceDir)
	require.NoError(h.t, err)
	dst, err := storage.NewLocal(h.destDir)
	require.NoError(h.t, err)
	return src, dst
}

func (h *testHelper) engine(op *models.BackupOperation) *Engine {
	h.t.Helper()
	src, dst := h.backends()
	return newEngineFor(src, dst, op)
}

func newEngineFor(src, dst storage.Backend, op *models.BackupOperation) *Engine {
	if op == nil {
		op = &models.BackupOperation{}
	}
	if op.ID == "" {
		op.ID = "test-op"
	}
	op.SourcePath = src.Root()
	op.DestPath = dst.Root()
	if op.BufferSize == 0 {
		op.BufferSize = 4096
	}
	return NewEngine(src, dst, compare.NewTimestampComparator(), nil, nil, op)
}

// diffAndApply runs one complete backup and returns the applied diff
func diffAndApply(t *testing.T, e *Engine) (*models.DiffResult, *ApplyResult, error) {
	t.Helper()
	ctx := context.Background()
	diff, err := e.Diff(ctx)
	require.NoError(t, err)
	result, err := e.Apply(ctx, diff)
	return diff, result, err
}

// faultyBackend fails selected operations of an otherwise working backend
type faultyBackend struct {
	storage.Backend
	failDelete    map[string]error
	failRemoveDir map[string]error
	failRead      map[string]error
}

func (f *faultyBackend) Delete(ctx context.Context, path string) error {
	if err, ok := f.failDelete[path]; ok {
		return err
	}
	return f.Backend.Delete(ctx, path)
}

func (f *faultyBackend) RemoveDir(ctx context.Context, path string) error {
	if err, ok := f.failRemoveDir[path]; ok {
		return err
	}
	return f.Backend.RemoveDir(ctx, path)
}

func (f *faultyBackend) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err, ok := f.failRead[path]; ok {
		return nil, err
	}
	return f.Backend.Read(ctx, path)
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
