package storage

import (
	"os"
	"path/filepath"
	"testing"

	"market_sim/internal/domain"
	"market_sim/internal/execution"
	"market_sim/internal/news"
	"market_sim/internal/regime"
)

func TestSnapshot_SaveAndLoad(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	snap := &Snapshot{
		Seq:       100,
		Seed:      42,
		Day:       3,
		Date:      "2024-01-04",
		LastClose: 30500,
		Regime:    regime.State{CurrentRegime: domain.RegimeBullish, CurrentQuarter: 1},
		Trading: execution.Snapshot{
			Balance:   700000,
			Positions: []domain.Position{{ID: 1, Direction: domain.Long, Shares: 10, EntryPrice: 30000, Leverage: 1, Margin: 300000}},
			NextID:    2,
		},
		News: news.Snapshot{Active: &news.WeeklyModifier{Headlines: []string{"w"}, DriftBias: 0.1}},
	}

	if err := sm.Save(snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if loaded.Seq != 100 || loaded.Day != 3 {
		t.Errorf("Expected seq 100 day 3, got %d %d", loaded.Seq, loaded.Day)
	}
	if loaded.Regime.CurrentRegime != domain.RegimeBullish {
		t.Errorf("Expected BULLISH, got %v", loaded.Regime.CurrentRegime)
	}
	if len(loaded.Trading.Positions) != 1 || loaded.Trading.Positions[0].Margin != 300000 {
		t.Errorf("Trading state mismatch: %+v", loaded.Trading)
	}
	if loaded.News.Active == nil || len(loaded.News.Active.Headlines) != 1 {
		t.Errorf("News state mismatch: %+v", loaded.News)
	}
}

func TestSnapshot_LoadLatest_MultipleSnapshots(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	for _, seq := range []uint64{10, 50, 30} {
		if err := sm.Save(&Snapshot{Seq: seq, TsUnix: 1}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded.Seq != 50 {
		t.Errorf("Expected latest seq 50, got %d", loaded.Seq)
	}
}

func TestSnapshot_LoadLatest_Empty(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "missing"))

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for missing directory")
	}
}

func TestSnapshot_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for seq := uint64(1); seq <= 5; seq++ {
		sm.Save(&Snapshot{Seq: seq, TsUnix: 1})
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	files, _ := sm.list()
	if len(files) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(files))
	}
	if files[0].seq != 5 || files[1].seq != 4 {
		t.Errorf("Expected seq 5 and 4 kept, got %d and %d", files[0].seq, files[1].seq)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("Cleanup should not touch unrelated files")
	}
}
