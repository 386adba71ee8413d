package models

import (
	"sort"
)

// DiffResult classifies the files of a source and destination tree.
// A path present in both trees that does not need an update appears in none
// of the three lists.
type DiffResult struct {
	// Create holds paths present in source and absent in destination
	Create []string `json:"create" yaml:"create"`
	// Update holds paths present in both trees where source is strictly newer
	Update []string `json:"update" yaml:"update"`
	// Delete holds paths present in destination and absent in source
	Delete []string `json:"delete" yaml:"delete"`
}

// NewDiffResult returns a diff with empty, non-nil lists
func NewDiffResult() *DiffResult {
	return &DiffResult{
		Create: []string{},
		Update: []string{},
		Delete: []string{},
	}
}

// Len returns the number of operations in the diff
func (d *DiffResult) Len() int {
	return len(d.Create) + len(d.Update) + len(d.Delete)
}

// IsEmpty reports whether the diff requires no operation
func (d *DiffResult) IsEmpty() bool {
	return d.Len() == 0
}

// Sort orders every list lexically
func (d *DiffResult) Sort() {
	sort.Strings(d.Create)
	sort.Strings(d.Update)
	sort.Strings(d.Delete)
}

// ActionFor returns the action planned for path, or ActionSkip
func (d *DiffResult) ActionFor(path string) Action {
	for _, p := range d.Create {
		if p == path {
			return ActionCreate
		}
	}
	for _, p := range d.Update {
		if p == path {
			return ActionUpdate
		}
	}
	for _, p := range d.Delete {
		if p == path {
			return ActionDelete
		}
	}
	return ActionSkip
}
