package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/tibu/pkg/models"
)

// UpdateType identifies a progress notification
type UpdateType string

const (
	UpdateFileStart    UpdateType = "file_start"
	UpdateFileComplete UpdateType = "file_complete"
	UpdateFileError    UpdateType = "file_error"
	UpdatePrune        UpdateType = "prune"
)

// ProgressUpdate represents a progress notification during apply
type ProgressUpdate struct {
	Type     UpdateType
	FilePath string
	Action   models.Action
	Bytes    int64
	Current  int // 1-based index of the operation
	Total    int // Total operations in the diff
	Error    error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter once the diff is known
	Start(writer io.Writer, diff *models.DiffResult) error

	// Progress reports progress during apply
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.BackupReport) error

	// Error reports an error that aborted the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// Options selects and configures a formatter
type Options struct {
	Format   string // "human" or "json"
	Progress bool   // Use a progress bar for human output
	Color    bool
}

// New returns the formatter matching opts
func New(opts Options) (Formatter, error) {
	switch opts.Format {
	case "", "human":
		if opts.Progress {
			return NewProgressFormatter(opts.Color), nil
		}
		return NewHumanFormatter(opts.Color), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", opts.Format)
	}
}
