package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover lists the scenario files in root and in its direct subdirectories, sorted.
// Deeper directories are not visited.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario root: %w", err)
	}

	files := []string{}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		if !entry.IsDir() {
			if entry.Type().IsRegular() {
				files = append(files, path)
			}
			continue
		}

		children, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		for _, child := range children {
			if child.Type().IsRegular() {
				files = append(files, filepath.Join(path, child.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
