package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/tibu/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer io.Writer
}

// JSONReportData represents the final report document
type JSONReportData struct {
	OperationID string             `json:"operation_id"`
	Source      string             `json:"source"`
	Destination string             `json:"destination"`
	DryRun      bool               `json:"dry_run"`
	Status      string             `json:"status"`
	Duration    string             `json:"duration"`
	DurationMs  int64              `json:"duration_ms"`
	Diff        *models.DiffResult `json:"diff"`
	Stats       JSONStatsData      `json:"stats"`
	Errors      []JSONErrorData    `json:"errors,omitempty"`
	PruneErrors []JSONErrorData    `json:"prune_errors,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	SourceFiles      int    `json:"source_files"`
	DestFiles        int    `json:"dest_files"`
	FilesCreated     int    `json:"files_created"`
	FilesUpdated     int    `json:"files_updated"`
	FilesDeleted     int    `json:"files_deleted"`
	FilesUnchanged   int    `json:"files_unchanged"`
	FilesErrored     int    `json:"files_errored"`
	DirsCreated      int    `json:"dirs_created"`
	DirsPruned       int    `json:"dirs_pruned"`
	BytesTransferred int64  `json:"bytes_transferred"`
	AverageSpeed     string `json:"average_speed,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path      string `json:"path"`
	Operation string `json:"operation,omitempty"`
	Error     string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, diff *models.DiffResult) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	return nil
}

// Progress is a no-op so that stdout stays a single JSON document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report as one indented JSON document
func (f *JSONFormatter) Complete(report *models.BackupReport) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	diff := report.Diff
	if diff == nil {
		diff = models.NewDiffResult()
	}

	s := report.Stats
	data := JSONReportData{
		OperationID: report.OperationID,
		Source:      report.SourcePath,
		Destination: report.DestPath,
		DryRun:      report.DryRun,
		Status:      string(report.Status),
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Diff:        diff,
		Stats: JSONStatsData{
			SourceFiles:      s.SourceFilesScanned,
			DestFiles:        s.DestFilesScanned,
			FilesCreated:     s.FilesCreated,
			FilesUpdated:     s.FilesUpdated,
			FilesDeleted:     s.FilesDeleted,
			FilesUnchanged:   s.FilesUnchanged,
			FilesErrored:     s.FilesErrored,
			DirsCreated:      s.DirsCreated,
			DirsPruned:       s.DirsPruned,
			BytesTransferred: s.BytesTransferred,
		},
		Errors:      toJSONErrors(report.Errors),
		PruneErrors: toJSONErrors(report.PruneErrors),
	}

	if report.Duration.Seconds() > 0 && s.BytesTransferred > 0 {
		speed := float64(s.BytesTransferred) / report.Duration.Seconds()
		data.Stats.AverageSpeed = formatBytes(int64(speed)) + "/s"
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error writes a failed-status document
func (f *JSONFormatter) Error(err error) error {
	if f.writer == nil {
		f.writer = os.Stdout
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]string{
		"status": string(models.StatusFailed),
		"error":  err.Error(),
	})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func toJSONErrors(errs []models.BackupError) []JSONErrorData {
	if len(errs) == 0 {
		return nil
	}
	out := make([]JSONErrorData, 0, len(errs))
	for _, e := range errs {
		out = append(out, JSONErrorData{Path: e.FilePath, Operation: string(e.Operation), Error: e.Error})
	}
	return out
}
