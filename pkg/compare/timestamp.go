package compare

import (
	"fmt"
	"time"

	"github.com/sdejongh/tibu/pkg/storage"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

// TimestampComparator compares files by modification time only.
// A file needs an update when the source is strictly newer than the
// destination by more than Tolerance; equal times are unchanged.
type TimestampComparator struct {
	Tolerance time.Duration
}

// NewTimestampComparator creates an exact (zero tolerance) comparator
func NewTimestampComparator() *TimestampComparator {
	return &TimestampComparator{}
}

// Compare compares the modification times of two files
func (c *TimestampComparator) Compare(source, dest *storage.FileInfo) *Comparison {
	if source.ModTime.Sub(dest.ModTime) > c.Tolerance {
		return &Comparison{
			Path:   source.RelativePath,
			Result: Newer,
			Reason: fmt.Sprintf("source is newer (source: %s, dest: %s)",
				source.ModTime.UTC().Format(timeLayout), dest.ModTime.UTC().Format(timeLayout)),
		}
	}

	return &Comparison{
		Path:   source.RelativePath,
		Result: Same,
		Reason: "destination is not older than source",
	}
}

// Name returns the comparator name
func (c *TimestampComparator) Name() string {
	return "timestamp"
}
