package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// Locator implements ports.LogLocator by walking directory trees
type Locator struct{}

// Ensure Locator implements LogLocator
var _ ports.LogLocator = (*Locator)(nil)

// NewLocator creates a new filesystem locator
func NewLocator() *Locator {
	return &Locator{}
}

// ExpandHome expands a leading ~ to the user's home directory
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return path
}

// walk visits every regular file below dir, skipping hidden directories
func walk(dir string, fn func(path string, d fs.DirEntry)) error {
	dir = ExpandHome(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			fn(path, d)
		}
		return nil
	})
}

// DetectionLogs finds each named detection log anywhere below dir. When a
// name occurs more than once the lexically first path wins.
func (l *Locator) DetectionLogs(dir string, names []string) (map[string]string, []string, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	found := make(map[string]string)
	err := walk(dir, func(path string, d fs.DirEntry) {
		name := d.Name()
		if !wanted[name] {
			return
		}
		if _, ok := found[name]; !ok {
			found[name] = path
		}
	})
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, n := range names {
		if _, ok := found[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	return found, missing, nil
}

// ImageLogs returns every image log below dir in path order
func (l *Locator) ImageLogs(dir string) ([]string, error) {
	var paths []string
	err := walk(dir, func(path string, d fs.DirEntry) {
		if strings.EqualFold(filepath.Ext(d.Name()), domain.ImageLogExt) {
			paths = append(paths, path)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
