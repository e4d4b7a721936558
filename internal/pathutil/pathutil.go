// Package pathutil provides path helpers for locating configuration files.
// It includes home directory expansion, a boundary check that keeps
// relative profile paths inside their base directory, and candidate file
// lookup.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideBoundary is returned when a path escapes its base directory.
var ErrOutsideBoundary = errors.New("pathutil: path escapes base directory")

// ---------------------------------------------------------------------------
// Home Expansion
// ---------------------------------------------------------------------------

// ExpandHome replaces a leading "~" or "~/" with home. Other paths are
// returned unchanged; "~user" forms are not expanded.
func ExpandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// ---------------------------------------------------------------------------
// Boundary Check
// ---------------------------------------------------------------------------

// IsOutsideBoundary reports whether target is neither base itself nor a
// descendant of base. Both paths are cleaned; no symlinks are resolved.
//
// Examples:
//   - base /p, target /p/x.default : returns false
//   - base /p, target /p/../etc    : returns true
//   - base /p, target /px          : returns true
func IsOutsideBoundary(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)
	if target == base {
		return false
	}
	if base == string(filepath.Separator) {
		return !strings.HasPrefix(target, base)
	}
	return !strings.HasPrefix(target, base+string(filepath.Separator))
}

// JoinWithinBoundary joins rel onto base and verifies the result stays inside
// base, following symlinks when the result exists. Absolute rel values and
// null bytes are rejected.
func JoinWithinBoundary(base, rel string) (string, error) {
	if ContainsNullByte(rel) || ContainsNullByte(base) {
		return "", fmt.Errorf("pathutil: null byte in path %q", StripNullBytes(rel))
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrOutsideBoundary, rel)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("pathutil: cannot resolve base: %w", err)
	}
	joined := filepath.Join(absBase, rel)
	if IsOutsideBoundary(absBase, joined) {
		return "", fmt.Errorf("%w: %q", ErrOutsideBoundary, rel)
	}

	// Compare resolved forms when both exist, so a symlinked base still works
	// but a symlink inside it cannot lead out.
	resolvedBase, errBase := filepath.EvalSymlinks(absBase)
	resolved, errTarget := filepath.EvalSymlinks(joined)
	if errBase == nil && errTarget == nil && IsOutsideBoundary(resolvedBase, resolved) {
		return "", fmt.Errorf("%w: %q resolves to %q", ErrOutsideBoundary, rel, resolved)
	}
	return joined, nil
}

// ---------------------------------------------------------------------------
// Path Helpers
// ---------------------------------------------------------------------------

// FirstExisting returns the first candidate that names an existing regular
// file, or "" if none does. Empty candidates are skipped.
func FirstExisting(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

// ContainsNullByte returns true if the string contains a null byte.
func ContainsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00')
}

// StripNullBytes removes all null bytes from a string.
func StripNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
