package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"market_sim/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	s := &Storage{db: db}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestSaveAndQueryDaily(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for i, d := range []int{3, 1, 2} {
		rec := &domain.DailyRecord{
			SessionID: string(rune('a' + i)),
			Date:      day(d),
			Open:      30000,
			Close:     int64(30000 + d*100),
		}
		if err := s.SaveDaily(ctx, rec); err != nil {
			t.Fatalf("SaveDaily failed: %v", err)
		}
	}

	recs, err := s.DailyBetween(ctx, day(1), day(3))
	if err != nil {
		t.Fatalf("DailyBetween failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Close != 30100 || recs[1].Close != 30200 {
		t.Errorf("expected date order, got %d then %d", recs[0].Close, recs[1].Close)
	}
}

func TestSaveDaily_ReplacesSameSession(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	s.SaveDaily(ctx, &domain.DailyRecord{SessionID: "dup", Date: day(5), Close: 1})
	if err := s.SaveDaily(ctx, &domain.DailyRecord{SessionID: "dup", Date: day(5), Close: 2}); err != nil {
		t.Fatalf("SaveDaily failed: %v", err)
	}

	recs, _ := s.DailyBetween(ctx, day(1), day(31))
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Close != 2 {
		t.Errorf("expected close 2, got %d", recs[0].Close)
	}
}

func TestMonthlyAndYearly(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	s.SaveMonthly(ctx, &domain.MonthlyRecord{Year: 2024, Month: 2, Close: 2})
	s.SaveMonthly(ctx, &domain.MonthlyRecord{Year: 2024, Month: 1, Close: 1})
	s.SaveMonthly(ctx, &domain.MonthlyRecord{Year: 2024, Month: 1, Close: 11})

	months, err := s.Monthly(ctx, 2024)
	if err != nil {
		t.Fatalf("Monthly failed: %v", err)
	}
	if len(months) != 2 || months[0].Close != 11 {
		t.Errorf("expected updated January first, got %+v", months)
	}

	y, err := s.Yearly(ctx, 2024)
	if err != nil || y != nil {
		t.Errorf("expected nil year before save, got %v %v", y, err)
	}
	s.SaveYearly(ctx, &domain.YearlyRecord{Year: 2024, Days: 40})
	y, _ = s.Yearly(ctx, 2024)
	if y == nil || y.Days != 40 {
		t.Errorf("expected 40 days, got %v", y)
	}
}

func TestConfigOperations(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.GetConfig(ctx, "level"); !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}

	s.SetConfig(ctx, "level", "2")
	s.SetConfig(ctx, "level", "3")
	v, err := s.GetConfig(ctx, "level")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if v != "3" {
		t.Errorf("expected '3', got '%s'", v)
	}

	m, _ := s.LoadConfigMap(ctx)
	if len(m) != 1 {
		t.Errorf("expected 1 setting, got %d", len(m))
	}
}
