package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/sdejongh/tibu/pkg/models"
)

const progressTemplate = `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "file"}}`

// ProgressFormatter draws a single progress bar over the planned operations
type ProgressFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	bar    *pb.ProgressBar
	colors palette
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter(useColor bool) *ProgressFormatter {
	return &ProgressFormatter{colors: newPalette(useColor)}
}

// Start initializes the bar for every planned operation
func (f *ProgressFormatter) Start(writer io.Writer, diff *models.DiffResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer

	total := diff.Len()
	if total == 0 {
		return nil
	}

	f.bar = pb.New(total).
		SetWriter(writer).
		SetTemplateString(progressTemplate).
		SetWidth(100).
		Start()
	return nil
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case UpdateFileStart:
		f.bar.Set("file", update.FilePath)
	case UpdateFileComplete, UpdateFileError:
		f.bar.Increment()
	}
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.BackupReport) error {
	f.mu.Lock()
	if f.bar != nil {
		f.bar.Set("file", "")
		f.bar.Finish()
		f.bar = nil
	}
	writer := f.writer
	f.mu.Unlock()

	summary := &HumanFormatter{writer: writer, colors: f.colors}
	return summary.Complete(report)
}

// Error stops the bar and reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s %v\n", f.colors.fail.Sprint("Error:"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
