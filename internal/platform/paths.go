package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath normalizes a path for the current platform
func NormalizePath(path string) string {
	normalized := filepath.Clean(path)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// RelSlash returns target relative to root using forward slashes.
// The root itself maps to ".". Trailing separators on root are irrelevant.
func RelSlash(root, target string) (string, error) {
	rel, err := filepath.Rel(NormalizePath(root), NormalizePath(target))
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Path: target, Message: "path is outside of " + root}
	}
	return filepath.ToSlash(rel), nil
}

// FromSlash joins a slash-separated relative path onto root
func FromSlash(root, rel string) string {
	if rel == "" || rel == "." {
		return NormalizePath(root)
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Depth returns the number of segments in a slash-separated relative path
func Depth(rel string) int {
	if rel == "" || rel == "." {
		return 0
	}
	return strings.Count(strings.Trim(rel, "/"), "/") + 1
}

// IsNested reports whether child lies strictly inside parent.
// Both paths must be absolute.
func IsNested(parent, child string) bool {
	parent = NormalizePath(parent)
	child = NormalizePath(child)
	if parent == child {
		return false
	}
	return strings.HasPrefix(child, strings.TrimSuffix(parent, string(filepath.Separator))+string(filepath.Separator))
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) && !IsUNCPath(path) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
