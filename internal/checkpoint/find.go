package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindLatest globs dir for "State,-L<maxLen>-*.json" and returns the most
// recently modified match's parsed State and suffix. It returns
// os.ErrNotExist if none exists.
func FindLatest(dir string, maxLen int) (State, string, error) {
	prefix := fmt.Sprintf("State,-L%d-", maxLen)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, "", os.ErrNotExist
		}

		return State{}, "", fmt.Errorf("checkpoint: read dir: %w", err)
	}

	type candidate struct {
		name    string
		modTime int64
	}

	var candidates []candidate

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		candidates = append(candidates, candidate{name: e.Name(), modTime: info.ModTime().UnixNano()})
	}

	if len(candidates) == 0 {
		return State{}, "", os.ErrNotExist
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime > candidates[j].modTime })

	best := candidates[0]
	suffix := strings.TrimSuffix(strings.TrimPrefix(best.name, prefix), ".json")

	state, err := Load(filepath.Join(dir, best.name))
	if err != nil {
		return State{}, "", err
	}

	return state, suffix, nil
}
