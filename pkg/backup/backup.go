// Package backup mirrors a source directory tree into a destination tree.
//
// A run has three stages: Scan records the regular files of each tree, Diff
// classifies them into create, update and delete, and Apply performs those
// operations and prunes the directories they leave empty.
package backup

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sdejongh/tibu/pkg/compare"
	"github.com/sdejongh/tibu/pkg/models"
	"github.com/sdejongh/tibu/pkg/storage"
)

// Backup mirrors the directory src into dst and returns the diff it applied.
// dst is created when missing. The error joins every path that could not be
// applied; the diff is returned whenever it could be computed.
func Backup(ctx context.Context, src, dst string) (*models.DiffResult, error) {
	source, err := storage.NewLocal(src)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	defer source.Close()

	dest, err := storage.NewLocal(dst)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	defer dest.Close()

	op := &models.BackupOperation{
		ID:         uuid.New().String(),
		SourcePath: source.Root(),
		DestPath:   dest.Root(),
		BufferSize: 64 * 1024,
	}

	engine := NewEngine(source, dest, compare.NewTimestampComparator(), nil, nil, op)

	diff, err := engine.Diff(ctx)
	if err != nil {
		return nil, err
	}
	_, err = engine.Apply(ctx, diff)
	return diff, err
}
