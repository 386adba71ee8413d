package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sdejongh/tibu/internal/platform"
	"github.com/sdejongh/tibu/pkg/logging"
	"github.com/sdejongh/tibu/pkg/models"
	"github.com/sdejongh/tibu/pkg/output"
	"github.com/sdejongh/tibu/pkg/ratelimit"
)

// ApplyResult describes what Apply did with a diff
type ApplyResult struct {
	Diff       *models.DiffResult
	Operations []models.FileOperation
	// Errors holds one FileAccessError per path that could not be applied
	Errors []error
	// PruneErrors never make Apply fail
	PruneErrors []*models.DirectoryPruneError

	FilesCreated     int
	FilesUpdated     int
	FilesDeleted     int
	DirsCreated      int
	DirsPruned       int
	BytesTransferred int64
}

// Apply mutates the destination so that it mirrors the source as described
// by diff: creates and updates are copied, deletes removed, then every empty
// directory under the destination root is pruned deepest first.
//
// A failing path does not stop the others. The returned error joins every
// FileAccessError; directory prune failures are only collected in the result.
func (e *Engine) Apply(ctx context.Context, diff *models.DiffResult) (*ApplyResult, error) {
	result := &ApplyResult{Diff: diff}
	total := diff.Len()
	current := 0

	copies := make([]string, 0, len(diff.Create)+len(diff.Update))
	copies = append(copies, diff.Create...)
	copies = append(copies, diff.Update...)

	for i, p := range copies {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(append(result.Errors, err)...)
		}
		current++

		action := models.ActionCreate
		if i >= len(diff.Create) {
			action = models.ActionUpdate
		}

		e.progress(output.ProgressUpdate{Type: output.UpdateFileStart, FilePath: p, Action: action, Current: current, Total: total})
		start := time.Now()
		n, err := e.copyFile(ctx, p, action, result)
		e.record(ctx, result, models.FileOperation{
			Path: p, Action: action, Error: err, BytesCopied: n, Duration: time.Since(start),
		}, current, total)
	}

	for _, p := range diff.Delete {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(append(result.Errors, err)...)
		}
		current++

		e.progress(output.ProgressUpdate{Type: output.UpdateFileStart, FilePath: p, Action: models.ActionDelete, Current: current, Total: total})
		start := time.Now()
		var opErr error
		if err := e.dest.Delete(ctx, p); err != nil {
			opErr = &models.FileAccessError{Path: p, Op: models.ActionDelete, Err: err}
		}
		e.record(ctx, result, models.FileOperation{
			Path: p, Action: models.ActionDelete, Error: opErr, Duration: time.Since(start),
		}, current, total)
	}

	e.prune(ctx, result)

	return result, errors.Join(result.Errors...)
}

// copyFile copies one source file over its destination counterpart,
// preserving modification time and permission bits.
func (e *Engine) copyFile(ctx context.Context, rel string, action models.Action, result *ApplyResult) (int64, error) {
	created, err := e.ensureParent(ctx, rel)
	result.DirsCreated += created
	if err != nil {
		return 0, &models.FileAccessError{Path: rel, Op: action, Err: err}
	}

	if info, err := e.dest.Stat(ctx, rel); err == nil {
		switch {
		case info.IsDir:
			return 0, &models.FileAccessError{
				Path: rel, Op: action,
				Err: fmt.Errorf("destination is a directory: %w", models.ErrTypeMismatch),
			}
		case !info.IsRegular():
			// Links and special files are replaced, never written through
			if err := e.replaceIrregular(ctx, rel); err != nil {
				return 0, &models.FileAccessError{Path: rel, Op: action, Err: err}
			}
		}
	}

	// Metadata is read again so the copy carries the current mtime
	srcInfo, err := e.source.Stat(ctx, rel)
	if err != nil {
		return 0, &models.FileAccessError{Path: rel, Op: action, Err: err}
	}

	reader, err := e.source.Read(ctx, rel)
	if err != nil {
		return 0, &models.FileAccessError{Path: rel, Op: action, Err: err}
	}
	defer reader.Close()

	counter := &countingReader{r: ratelimit.NewReader(ctx, reader, e.limiter)}
	src := bufio.NewReaderSize(counter, e.bufferSize())

	if err := e.dest.Write(ctx, rel, src, srcInfo.Size, srcInfo); err != nil {
		return counter.n, &models.FileAccessError{Path: rel, Op: action, Err: err}
	}
	return counter.n, nil
}

// ensureParent creates the missing ancestors of rel and returns how many
// directories it created. A regular file in the way is a type mismatch; a
// link or special file is replaced.
func (e *Engine) ensureParent(ctx context.Context, rel string) (int, error) {
	parent := path.Dir(rel)
	if parent == "." {
		return 0, nil
	}

	parts := strings.Split(parent, "/")
	for i := range parts {
		dir := strings.Join(parts[:i+1], "/")
		info, err := e.dest.Stat(ctx, dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return 0, err
			}
			if err := e.dest.MkdirAll(ctx, parent); err != nil {
				return 0, err
			}
			e.logger.Debug(ctx, "Created directory", logging.Fields{"path": parent})
			return len(parts) - i, nil
		}
		if info.IsDir {
			continue
		}
		if info.IsRegular() {
			return 0, fmt.Errorf("%s is not a directory: %w", dir, models.ErrTypeMismatch)
		}
		if err := e.replaceIrregular(ctx, dir); err != nil {
			return 0, err
		}
		if err := e.dest.MkdirAll(ctx, parent); err != nil {
			return 0, err
		}
		e.logger.Debug(ctx, "Created directory", logging.Fields{"path": parent})
		return len(parts) - i, nil
	}
	return 0, nil
}

// replaceIrregular removes a symlink or special file the scanner left out of
// the destination tree, so that it can be replaced by a regular entry.
func (e *Engine) replaceIrregular(ctx context.Context, rel string) error {
	if err := e.dest.Delete(ctx, rel); err != nil {
		return fmt.Errorf("failed to replace %s: %w", rel, err)
	}
	e.logger.Debug(ctx, "Removed non-regular destination entry", logging.Fields{"path": rel})
	return nil
}

// prune removes every empty directory below the destination root, deepest
// first so that emptied parents are removed in the same pass.
func (e *Engine) prune(ctx context.Context, result *ApplyResult) {
	entries, err := e.dest.List(ctx, "")
	if err != nil {
		e.recordPrune(ctx, result, &models.DirectoryPruneError{Path: ".", Err: err})
		return
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir && !e.excludes.Match(entry.RelativePath) {
			dirs = append(dirs, entry.RelativePath)
		}
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		di, dj := platform.Depth(dirs[i]), platform.Depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	for _, dir := range dirs {
		if ctx.Err() != nil {
			return
		}
		if dir == "" || dir == "." {
			continue
		}

		children, err := e.dest.ReadDir(ctx, dir)
		if err != nil {
			e.recordPrune(ctx, result, &models.DirectoryPruneError{Path: dir, Err: err})
			continue
		}
		if len(children) > 0 {
			continue
		}

		if err := e.dest.RemoveDir(ctx, dir); err != nil {
			e.recordPrune(ctx, result, &models.DirectoryPruneError{Path: dir, Err: err})
			continue
		}
		result.DirsPruned++
		e.logger.Debug(ctx, "Pruned empty directory", logging.Fields{"path": dir})
		e.progress(output.ProgressUpdate{Type: output.UpdatePrune, FilePath: dir, Action: models.ActionPrune})
	}
}

func (e *Engine) record(ctx context.Context, result *ApplyResult, op models.FileOperation, current, total int) {
	result.Operations = append(result.Operations, op)

	if op.Error != nil {
		result.Errors = append(result.Errors, op.Error)
		e.logger.Error(ctx, "Operation failed", op.Error, logging.Fields{
			"path":   op.Path,
			"action": string(op.Action),
		})
		e.progress(output.ProgressUpdate{
			Type: output.UpdateFileError, FilePath: op.Path, Action: op.Action,
			Current: current, Total: total, Error: op.Error,
		})
		return
	}

	switch op.Action {
	case models.ActionCreate:
		result.FilesCreated++
	case models.ActionUpdate:
		result.FilesUpdated++
	case models.ActionDelete:
		result.FilesDeleted++
	}
	result.BytesTransferred += op.BytesCopied

	e.logger.Info(ctx, "Operation completed", logging.Fields{
		"path":        op.Path,
		"action":      string(op.Action),
		"bytes":       op.BytesCopied,
		"duration_ms": op.Duration.Milliseconds(),
	})
	e.progress(output.ProgressUpdate{
		Type: output.UpdateFileComplete, FilePath: op.Path, Action: op.Action,
		Bytes: op.BytesCopied, Current: current, Total: total,
	})
}

func (e *Engine) recordPrune(ctx context.Context, result *ApplyResult, err *models.DirectoryPruneError) {
	result.PruneErrors = append(result.PruneErrors, err)
	e.logger.Warn(ctx, "Could not prune directory", logging.Fields{
		"path":  err.Path,
		"error": err.Err.Error(),
	})
	e.progress(output.ProgressUpdate{Type: output.UpdatePrune, FilePath: err.Path, Action: models.ActionPrune, Error: err})
}

func (e *Engine) bufferSize() int {
	if e.operation.BufferSize < 16 {
		return 64 * 1024
	}
	return e.operation.BufferSize
}

// fill copies the apply counters and errors into report
func (r *ApplyResult) fill(report *models.BackupReport) {
	report.Operations = r.Operations
	report.Stats.FilesCreated = r.FilesCreated
	report.Stats.FilesUpdated = r.FilesUpdated
	report.Stats.FilesDeleted = r.FilesDeleted
	report.Stats.FilesErrored = len(r.Errors)
	report.Stats.DirsCreated = r.DirsCreated
	report.Stats.DirsPruned = r.DirsPruned
	report.Stats.BytesTransferred = r.BytesTransferred

	now := time.Now()
	for _, op := range r.Operations {
		if op.Error != nil {
			report.Errors = append(report.Errors, models.BackupError{
				FilePath: op.Path, Operation: op.Action, Error: op.Error.Error(), Timestamp: now,
			})
		}
	}
	for _, pe := range r.PruneErrors {
		report.PruneErrors = append(report.PruneErrors, models.BackupError{
			FilePath: pe.Path, Operation: models.ActionPrune, Error: pe.Err.Error(), Timestamp: now,
		})
	}
}

// countingReader counts the bytes read from the source
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
