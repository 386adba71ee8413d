package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/tibu/pkg/models"
	"github.com/sdejongh/tibu/pkg/storage"
)

func TestDiffNewFile(t *testing.T) {
	h := newTestHelper(t)
	h.source("x.txt", "new", t1)

	diff, err := h.engine(nil).Diff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"x.txt"}, diff.Create)
	assert.Empty(t, diff.Update)
	assert.Empty(t, diff.Delete)
}

func TestDiffNewerSource(t *testing.T) {
	h := newTestHelper(t)
	h.source("x.txt", "v2", t2)
	h.dest("x.txt", "v1", t1)

	diff, err := h.engine(nil).Diff(context.Background())
	require.NoError(t, err)

	assert.Empty(t, diff.Create)
	assert.Equal(t, []string{"x.txt"}, diff.Update)
	assert.Empty(t, diff.Delete)
}

func TestDiffOlderSourceIsUnchanged(t *testing.T) {
	h := newTestHelper(t)
	h.source("x.txt", "old", t1)
	h.dest("x.txt", "edited in backup", t2)

	diff, err := h.engine(nil).Diff(context.Background())
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}

func TestDiffOrphan(t *testing.T) {
	h := newTestHelper(t)
	h.dest("old.txt", "stale", t1)

	diff, err := h.engine(nil).Diff(context.Background())
	require.NoError(t, err)

	assert.Empty(t, diff.Create)
	assert.Empty(t, diff.Update)
	assert.Equal(t, []string{"old.txt"}, diff.Delete)
}

func TestDiffEqualMtime(t *testing.T) {
	h := newTestHelper(t)
	h.source("same.txt", "content", t1)
	h.dest("same.txt", "different content", t1)

	e := h.engine(nil)
	diff, err := e.Diff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ActionSkip, diff.ActionFor("same.txt"))
	assert.Equal(t, 1, e.scanned.unchanged)

	_, err = e.Apply(context.Background(), diff)
	require.NoError(t, err)
	assert.Equal(t, "different content", h.readDest("same.txt"))
}

func TestDiffCreatesMissingDestRoot(t *testing.T) {
	h := newTestHelper(t)
	h.source("a.txt", "a", t1)
	h.source("sub/b.txt", "b", t1)
	missing := filepath.Join(h.destDir, "not", "yet")

	src, _ := h.backends()
	dst, err := storage.NewLocal(missing)
	require.NoError(t, err)

	diff, err := newEngineFor(src, dst, nil).Diff(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(missing)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(missing)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, diff.Create)
	assert.Empty(t, diff.Update)
	assert.Empty(t, diff.Delete)
}

func TestDiffDryRunLeavesMissingDestRoot(t *testing.T) {
	h := newTestHelper(t)
	h.source("a.txt", "a", t1)
	missing := filepath.Join(h.destDir, "absent")

	src, _ := h.backends()
	dst, err := storage.NewLocal(missing)
	require.NoError(t, err)

	diff, err := newEngineFor(src, dst, &models.BackupOperation{DryRun: true}).Diff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, diff.Create)
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err))
}

func TestDiffPartition(t *testing.T) {
	h := newTestHelper(t)
	h.source("both/newer.txt", "n", t2)
	h.source("both/older.txt", "o", t1)
	h.source("both/equal.txt", "e", t1)
	h.source("src/only.txt", "s", t1)
	h.source("deep/a/b/c.txt", "c", t1)
	h.dest("both/newer.txt", "n", t1)
	h.dest("both/older.txt", "o", t2)
	h.dest("both/equal.txt", "e", t1)
	h.dest("dst/only.txt", "d", t1)
	h.dest("deep/a/b/gone.txt", "g", t1)

	diff, err := h.engine(nil).Diff(context.Background())
	require.NoError(t, err)

	seen := map[string]int{}
	for _, list := range [][]string{diff.Create, diff.Update, diff.Delete} {
		for _, p := range list {
			seen[p]++
		}
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s classified %d times", p, n)
	}

	for _, p := range diff.Delete {
		_, err := os.Stat(filepath.Join(h.sourceDir, filepath.FromSlash(p)))
		assert.True(t, os.IsNotExist(err), "deleted path %s exists in source", p)
	}
	for _, p := range diff.Update {
		assert.FileExists(t, filepath.Join(h.sourceDir, filepath.FromSlash(p)))
		assert.True(t, h.destExists(p))
	}

	assert.Equal(t, []string{"deep/a/b/c.txt", "src/only.txt"}, diff.Create)
	assert.Equal(t, []string{"both/newer.txt"}, diff.Update)
	assert.Equal(t, []string{"deep/a/b/gone.txt", "dst/only.txt"}, diff.Delete)
}

func TestDiffExcludedPathsAreNeitherCopiedNorDeleted(t *testing.T) {
	h := newTestHelper(t)
	h.source("keep.txt", "k", t1)
	h.source("cache/tmp.bin", "x", t1)
	h.dest("cache/local.bin", "y", t1)
	h.dest("notes.tmp", "z", t1)

	e := h.engine(&models.BackupOperation{ExcludePatterns: []string{"cache/", "*.tmp"}})
	diff, err := e.Diff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.txt"}, diff.Create)
	assert.Empty(t, diff.Delete)
}

func TestDiffDestRootIsFile(t *testing.T) {
	h := newTestHelper(t)
	h.source("a.txt", "a", t1)

	src, _ := h.backends()
	dst := storage.NewMemory("/backup")
	f, err := dst.Filesystem().Create("/backup")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = newEngineFor(src, dst, nil).Diff(context.Background())
	assert.ErrorIs(t, err, models.ErrTypeMismatch)
}

// vanishingBackend reports a file during listing that no longer exists
type vanishingBackend struct {
	storage.Backend
	gone string
}

func (v *vanishingBackend) List(ctx context.Context, path string) ([]storage.FileInfo, error) {
	entries, err := v.Backend.List(ctx, path)
	if err != nil {
		return nil, err
	}
	return append(entries, storage.FileInfo{RelativePath: v.gone, Mode: 0644}), nil
}

func TestDiffStatFailureIsFileAccessError(t *testing.T) {
	h := newTestHelper(t)
	h.source("present.txt", "p", t1)

	src, dst := h.backends()
	e := newEngineFor(&vanishingBackend{Backend: src, gone: "vanished.txt"}, dst, nil)

	_, err := e.Diff(context.Background())
	var accessErr *models.FileAccessError
	require.True(t, errors.As(err, &accessErr), "Diff() error = %v", err)
	assert.Equal(t, "vanished.txt", accessErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
