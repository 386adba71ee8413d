package backup

import (
	"context"
	"errors"

	"github.com/sdejongh/tibu/pkg/logging"
	"github.com/sdejongh/tibu/pkg/models"
)

// Diff classifies every file of the source and destination trees as create,
// update or delete. The destination root is created when missing, except on
// a dry run where a missing destination reads as empty.
func (e *Engine) Diff(ctx context.Context) (*models.DiffResult, error) {
	e.scanned = scanStats{}

	destMissing, err := e.ensureDestRoot(ctx)
	if err != nil {
		return nil, err
	}

	srcTree, err := Scan(ctx, e.source, e.excludes)
	if err != nil {
		return nil, err
	}

	destTree := Tree{}
	if !destMissing {
		if destTree, err = Scan(ctx, e.dest, e.excludes); err != nil {
			return nil, err
		}
	}

	e.logger.Debug(ctx, "Scanned trees", logging.Fields{
		"source_files": len(srcTree),
		"dest_files":   len(destTree),
	})

	remaining := make(map[string]struct{}, len(destTree))
	for p := range destTree {
		remaining[p] = struct{}{}
	}

	diff := models.NewDiffResult()
	for _, p := range srcTree.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		srcInfo, err := e.source.Stat(ctx, p)
		if err != nil {
			return nil, &models.FileAccessError{Path: p, Op: models.ActionScan, Err: err}
		}
		if !srcInfo.IsRegular() {
			// Replaced since the scan; it is neither copied nor protected.
			e.logger.Debug(ctx, "Skipping source path that is no longer a file", logging.Fields{"path": p})
			continue
		}
		e.scanned.sourceFiles++

		if !destTree.Has(p) {
			diff.Create = append(diff.Create, p)
			continue
		}
		delete(remaining, p)

		destInfo, err := e.dest.Stat(ctx, p)
		if err != nil {
			return nil, &models.FileAccessError{Path: p, Op: models.ActionScan, Err: err}
		}

		cmp := e.comparator.Compare(srcInfo, destInfo)
		if cmp.NeedsUpdate() {
			diff.Update = append(diff.Update, p)
		} else {
			e.scanned.unchanged++
		}
	}

	for p := range remaining {
		diff.Delete = append(diff.Delete, p)
	}
	diff.Sort()
	e.scanned.destFiles = len(destTree)

	e.logger.Info(ctx, "Diff computed", logging.Fields{
		"create": len(diff.Create),
		"update": len(diff.Update),
		"delete": len(diff.Delete),
	})

	return diff, nil
}

// ensureDestRoot reports whether the destination root is still missing
func (e *Engine) ensureDestRoot(ctx context.Context) (bool, error) {
	info, err := e.dest.Stat(ctx, ".")
	if err == nil {
		if !info.IsDir {
			return false, &models.FileAccessError{Path: ".", Op: models.ActionScan, Err: models.ErrTypeMismatch}
		}
		return false, nil
	}

	var notFound *models.PathNotFoundError
	if !errors.As(err, &notFound) {
		return false, err
	}

	if e.operation.DryRun {
		e.logger.Debug(ctx, "Destination root missing, treating as empty", logging.Fields{"path": notFound.Path})
		return true, nil
	}

	e.logger.Debug(ctx, "Destination root missing, creating it", logging.Fields{"path": notFound.Path})
	if err := e.dest.MkdirAll(ctx, "."); err != nil {
		return false, err
	}
	return false, nil
}
