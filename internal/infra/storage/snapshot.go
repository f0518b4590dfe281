package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"market_sim/internal/execution"
	"market_sim/internal/news"
	"market_sim/internal/regime"
)

// Snapshot is a point-in-time capture of the game taken after each
// session, so a restart resumes at the next trading day.
type Snapshot struct {
	Seq       uint64             `json:"seq"` // last journaled sequence number
	TsUnix    int64              `json:"ts"`
	Seed      uint64             `json:"seed"`
	Day       int                `json:"day"` // trading days completed
	Date      string             `json:"date"`
	LastClose int64              `json:"last_close"`
	Level     int                `json:"level"`
	Regime    regime.State       `json:"regime"`
	Trading   execution.Snapshot `json:"trading"`
	News      news.Snapshot      `json:"news"`
}

// SnapshotManager handles saving and loading snapshots.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a new snapshot manager.
// dir: directory to store snapshot files.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if snap.TsUnix == 0 {
		snap.TsUnix = time.Now().Unix()
	}

	filename := fmt.Sprintf("snapshot_%d_%d.json", snap.Seq, snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write then rename so a crash never leaves a truncated latest snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	slog.Info("Snapshot saved",
		slog.Uint64("seq", snap.Seq),
		slog.Int("day", snap.Day),
		slog.String("path", path))

	return nil
}

type snapFile struct {
	path string
	seq  uint64
	ts   int64
}

func (sm *SnapshotManager) list() ([]snapFile, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return nil, err
	}

	var files []snapFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var f snapFile
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &f.seq, &f.ts); err != nil {
			continue // Not a snapshot file
		}
		if filepath.Ext(entry.Name()) != ".json" {
			continue // half-written .tmp
		}
		f.path = filepath.Join(sm.dir, entry.Name())
		files = append(files, f)
	}

	// Newest first
	slices.SortFunc(files, func(a, b snapFile) int {
		if c := cmp.Compare(b.seq, a.seq); c != 0 {
			return c
		}
		return cmp.Compare(b.ts, a.ts)
	})
	return files, nil
}

// LoadLatest loads the most recent snapshot from disk.
// Returns nil if no snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	files, err := sm.list()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No snapshots yet
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	latestPath := files[0].path
	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded",
		slog.Uint64("seq", snap.Seq),
		slog.Int("day", snap.Day),
		slog.String("path", latestPath))

	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the latest N.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	files, err := sm.list()
	if err != nil {
		return err
	}
	if len(files) <= keepCount {
		return nil
	}

	for _, f := range files[keepCount:] {
		if err := os.Remove(f.path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", f.path))
		} else {
			slog.Info("Removed old snapshot", slog.String("path", f.path))
		}
	}

	return nil
}
