package compare

import (
	"github.com/sdejongh/tibu/pkg/storage"
)

// Result represents the outcome of comparing two files
type Result string

const (
	// Same indicates the destination copy is current
	Same Result = "same"
	// Newer indicates the source file must be copied over the destination
	Newer Result = "newer"
)

// Comparison holds the result of comparing two files
type Comparison struct {
	Path   string
	Result Result
	Reason string
}

// NeedsUpdate reports whether the destination must be overwritten
func (c *Comparison) NeedsUpdate() bool {
	return c.Result == Newer
}

// Comparator decides whether a file present in both trees needs an update.
// Both infos are read live by the caller; comparators never touch the disk.
type Comparator interface {
	Compare(source, dest *storage.FileInfo) *Comparison

	// Name returns the name of the comparison method
	Name() string
}
