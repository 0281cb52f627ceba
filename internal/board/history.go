package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// History keeps the last snapshot on disk so transitions survive restarts.
type History struct {
	path string
}

// NewHistory stores snapshots at path (usually .workbench/state/board.json).
func NewHistory(path string) *History {
	return &History{path: path}
}

// Path returns the backing file.
func (h *History) Path() string {
	return h.path
}

// Load returns the stored snapshot. A missing file yields an empty
// snapshot and ok=false.
func (h *History) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("board: read history: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("board: parse history %s: %w", h.path, err)
	}
	return snap, true, nil
}

// Save writes the snapshot through a temp file and rename, so a crash never
// leaves a half-written history behind.
func (h *History) Save(snap Snapshot) error {
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("board: ensure state dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("board: encode history: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".board-*.json")
	if err != nil {
		return fmt.Errorf("board: create temp history: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("board: write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("board: close history: %w", err)
	}
	if err := os.Rename(tmpName, h.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("board: replace history: %w", err)
	}
	return nil
}
