// Package security guards the paths the command line tools write to.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedDirs is returned when an output path escapes every
// allowed directory.
var ErrOutsideAllowedDirs = errors.New("output path outside allowed directories")

// DefaultOutputDirs returns the directories reports and run databases may be
// written to: the temp directory and the working directory.
func DefaultOutputDirs() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{os.TempDir(), cwd}, nil
}

// ValidateOutputPath checks that path resolves inside one of dirs once
// symlinks are followed. The file itself need not exist yet.
func ValidateOutputPath(path string, dirs ...string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("%w: none configured", ErrOutsideAllowedDirs)
	}
	target, err := canonical(path)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if root, err = filepath.EvalSymlinks(root); err != nil {
			continue
		}
		if within(root, target) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in %v", ErrOutsideAllowedDirs, path, dirs)
}

// ValidateDefaultOutputPath is ValidateOutputPath against DefaultOutputDirs.
func ValidateDefaultOutputPath(path string) error {
	dirs, err := DefaultOutputDirs()
	if err != nil {
		return err
	}
	return ValidateOutputPath(path, dirs...)
}

// canonical resolves symlinks in the deepest existing ancestor of path so a
// link pointing elsewhere cannot smuggle a new file out of its directory.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	existing, rest := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
