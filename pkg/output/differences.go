package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/tibu/pkg/models"
)

// WriteDiffReport writes the planned operations of report to a file.
// Format can be "human" or "json". No file is created for an empty diff.
func WriteDiffReport(report *models.BackupReport, path string, format string) error {
	if report.Diff == nil || report.Diff.IsEmpty() {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create diff report: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		err = writeDiffJSON(report, file)
	default:
		err = writeDiffHuman(report, file)
	}
	if err != nil {
		return fmt.Errorf("failed to write diff report: %w", err)
	}
	return file.Close()
}

func writeDiffHuman(report *models.BackupReport, w io.Writer) error {
	fmt.Fprintf(w, "Diff Report\n")
	fmt.Fprintf(w, "===========\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Source: %s\n", report.SourcePath)
	fmt.Fprintf(w, "Destination: %s\n", report.DestPath)
	fmt.Fprintf(w, "Dry Run: %v\n\n", report.DryRun)
	fmt.Fprintf(w, "Total Operations: %d\n\n", report.Diff.Len())

	sections := []struct {
		label string
		paths []string
	}{
		{"Create", report.Diff.Create},
		{"Update", report.Diff.Update},
		{"Delete", report.Diff.Delete},
	}

	for _, s := range sections {
		if len(s.paths) == 0 {
			continue
		}
		label := fmt.Sprintf("%s (%d files)", s.label, len(s.paths))
		fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, p := range s.paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
		fmt.Fprintln(w)
	}

	if len(report.Errors) > 0 {
		label := fmt.Sprintf("Errors (%d)", len(report.Errors))
		fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", e.Operation, e.FilePath, e.Error)
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

func writeDiffJSON(report *models.BackupReport, w io.Writer) error {
	doc := struct {
		Generated   string             `json:"generated"`
		Source      string             `json:"source"`
		Destination string             `json:"destination"`
		DryRun      bool               `json:"dry_run"`
		TotalCount  int                `json:"total_count"`
		Diff        *models.DiffResult `json:"diff"`
		Errors      []JSONErrorData    `json:"errors,omitempty"`
	}{
		Generated:   time.Now().Format(time.RFC3339),
		Source:      report.SourcePath,
		Destination: report.DestPath,
		DryRun:      report.DryRun,
		TotalCount:  report.Diff.Len(),
		Diff:        report.Diff,
		Errors:      toJSONErrors(report.Errors),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}
