package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/sdejongh/tibu/pkg/models"
)

// palette colors action markers
type palette struct {
	create *color.Color
	update *color.Color
	remove *color.Color
	fail   *color.Color
	bold   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		create: color.New(color.FgGreen),
		update: color.New(color.FgYellow),
		remove: color.New(color.FgRed),
		fail:   color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.create, p.update, p.remove, p.fail, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// marker returns the colored one-character action prefix
func (p palette) marker(action models.Action) string {
	switch action {
	case models.ActionCreate:
		return p.create.Sprint("+")
	case models.ActionUpdate:
		return p.update.Sprint("~")
	case models.ActionDelete:
		return p.remove.Sprint("-")
	default:
		return " "
	}
}

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer io.Writer
	colors palette
	total  int
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(useColor bool) *HumanFormatter {
	return &HumanFormatter{colors: newPalette(useColor)}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, diff *models.DiffResult) error {
	f.writer = writer
	f.total = diff.Len()

	if writer != nil {
		fmt.Fprintf(writer, "Planned: %d to create, %d to update, %d to delete\n",
			len(diff.Create), len(diff.Update), len(diff.Delete))
	}
	return nil
}

// Progress reports progress during apply
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case UpdateFileComplete:
		if update.Action == models.ActionDelete {
			fmt.Fprintf(f.writer, "[%d/%d] %s %s\n", update.Current, update.Total,
				f.colors.marker(update.Action), update.FilePath)
		} else {
			fmt.Fprintf(f.writer, "[%d/%d] %s %s (%s)\n", update.Current, update.Total,
				f.colors.marker(update.Action), update.FilePath, formatBytes(update.Bytes))
		}

	case UpdateFileError:
		fmt.Fprintf(f.writer, "[%d/%d] %s %s: %v\n", update.Current, update.Total,
			f.colors.fail.Sprint("!"), update.FilePath, update.Error)

	case UpdatePrune:
		if update.Error != nil {
			fmt.Fprintf(f.writer, "  %s could not prune %s/: %v\n",
				f.colors.fail.Sprint("!"), update.FilePath, update.Error)
		}
	}

	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report *models.BackupReport) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	w := f.writer

	if report.DryRun && report.Diff != nil {
		writePlan(w, f.colors, report.Diff)
	}

	fmt.Fprintln(w)
	if report.DryRun {
		fmt.Fprintf(w, "Dry run completed in %s\n\n", report.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Backup completed in %s\n\n", report.Duration.Round(time.Millisecond))
	}

	writeSummaryTable(w, report)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Status: %s\n", f.colors.bold.Sprint(report.Status))

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", f.colors.fail.Sprint("!"), e.FilePath, e.Error)
		}
	}
	if len(report.PruneErrors) > 0 {
		fmt.Fprintf(w, "\nDirectories left in place:\n")
		for _, e := range report.PruneErrors {
			fmt.Fprintf(w, "  %s/: %s\n", e.FilePath, e.Error)
		}
	}

	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s %v\n", f.colors.fail.Sprint("Error:"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// writePlan lists every planned operation with its marker
func writePlan(w io.Writer, colors palette, diff *models.DiffResult) {
	groups := []struct {
		action models.Action
		paths  []string
	}{
		{models.ActionCreate, diff.Create},
		{models.ActionUpdate, diff.Update},
		{models.ActionDelete, diff.Delete},
	}
	for _, g := range groups {
		for _, p := range g.paths {
			fmt.Fprintf(w, "%s %s\n", colors.marker(g.action), p)
		}
	}
}

func writeSummaryTable(w io.Writer, report *models.BackupReport) {
	s := report.Stats

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Source files", strconv.Itoa(s.SourceFilesScanned)})
	table.Append([]string{"Destination files", strconv.Itoa(s.DestFilesScanned)})
	table.Append([]string{"Created", strconv.Itoa(s.FilesCreated)})
	table.Append([]string{"Updated", strconv.Itoa(s.FilesUpdated)})
	table.Append([]string{"Deleted", strconv.Itoa(s.FilesDeleted)})
	table.Append([]string{"Unchanged", strconv.Itoa(s.FilesUnchanged)})
	table.Append([]string{"Errored", strconv.Itoa(s.FilesErrored)})
	table.Append([]string{"Dirs created", strconv.Itoa(s.DirsCreated)})
	table.Append([]string{"Dirs pruned", strconv.Itoa(s.DirsPruned)})
	table.Append([]string{"Transferred", formatBytes(s.BytesTransferred)})

	if report.Duration.Seconds() > 0 && s.BytesTransferred > 0 {
		speed := float64(s.BytesTransferred) / report.Duration.Seconds()
		table.Append([]string{"Average speed", formatBytes(int64(speed)) + "/s"})
	}

	table.Render()
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
