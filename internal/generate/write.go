package generate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/st3v3nmw/raftcheck/internal/registry"
	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

// Write recreates dir and writes one scenario file per generated scenario of the given
// families (all registered families when none are given). It returns the written paths.
func Write(dir string, sw registry.Sweep, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		keys = registry.Keys()
	}

	var named []registry.Named
	for _, key := range keys {
		family, err := registry.GetFamily(key)
		if err != nil {
			return nil, err
		}
		named = append(named, family.Fn(sw)...)
	}

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	seen := make(map[string]bool, len(named))
	paths := make([]string, 0, len(named))
	for _, n := range named {
		if seen[n.Filename] {
			return nil, fmt.Errorf("duplicate scenario file name %s", n.Filename)
		}
		seen[n.Filename] = true

		path := filepath.Join(dir, n.Filename)
		if err := scenario.WriteFile(path, n.Scenario); err != nil {
			return nil, fmt.Errorf("%s: %w", n.Filename, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
