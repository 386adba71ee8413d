package backup

import (
	"context"
	"fmt"
	"sort"

	"github.com/sdejongh/tibu/pkg/storage"
)

// Tree maps relative paths of regular files to their metadata
type Tree map[string]storage.FileInfo

// Paths returns the tree's paths in lexical order
func (t Tree) Paths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Has reports whether the tree records path
func (t Tree) Has(path string) bool {
	_, ok := t[path]
	return ok
}

// Scan walks the backend from its root and records every regular file.
// Directories, symbolic links and special files are not recorded, and
// symbolic links are never followed. Paths matched by excludes are dropped.
func Scan(ctx context.Context, backend storage.Backend, excludes *Excluder) (Tree, error) {
	entries, err := backend.List(ctx, "")
	if err != nil {
		return nil, err
	}

	tree := make(Tree, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsRegular() {
			continue
		}
		if excludes.Match(entry.RelativePath) {
			continue
		}
		if _, dup := tree[entry.RelativePath]; dup {
			return nil, fmt.Errorf("scan %s: duplicate path %s", backend.Root(), entry.RelativePath)
		}
		tree[entry.RelativePath] = entry
	}
	return tree, nil
}
