package backup

import (
	"path"
	"strings"
)

// Excluder decides whether a relative path is left out of a backup.
// Patterns support:
//   - Basename globs: *.tmp, *.log
//   - Directory patterns: .git/, node_modules/
//   - Path globs: build/*, docs/*.md
//   - Any-depth globs: **/cache, **/*.bak
type Excluder struct {
	patterns []string
}

// NewExcluder returns an excluder for the non-empty patterns
func NewExcluder(patterns []string) *Excluder {
	e := &Excluder{}
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p != "" {
			e.patterns = append(e.patterns, p)
		}
	}
	return e
}

// Empty reports whether the excluder has no patterns
func (e *Excluder) Empty() bool {
	return e == nil || len(e.patterns) == 0
}

// Match reports whether rel (slash-separated) is excluded
func (e *Excluder) Match(rel string) bool {
	if e.Empty() {
		return false
	}

	base := path.Base(rel)
	for _, pattern := range e.patterns {
		if matchPattern(pattern, rel, base) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, rel, base string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/"); ok {
		return rel == dir ||
			strings.HasPrefix(rel, dir+"/") ||
			strings.Contains(rel, "/"+dir+"/") ||
			strings.HasSuffix(rel, "/"+dir)
	}

	if tail, ok := strings.CutPrefix(pattern, "**/"); ok {
		if glob(tail, base) || rel == tail || strings.HasSuffix(rel, "/"+tail) {
			return true
		}
		for _, part := range strings.Split(rel, "/") {
			if glob(tail, part) {
				return true
			}
		}
		return false
	}

	if strings.Contains(pattern, "/") {
		return glob(pattern, rel) || strings.HasSuffix(rel, "/"+pattern)
	}
	return glob(pattern, base)
}

func glob(pattern, name string) bool {
	ok, _ := path.Match(pattern, name)
	return ok
}
