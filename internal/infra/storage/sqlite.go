package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"market_sim/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists session history and settings through gorm.
// It implements domain.HistoryRepository and domain.SettingsRepository.
type Storage struct {
	db *gorm.DB
}

var (
	_ domain.HistoryRepository  = (*Storage)(nil)
	_ domain.SettingsRepository = (*Storage)(nil)
)

// NewStorage opens (or creates) the history database. An empty path
// resolves to the per-user data directory.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		p, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = p
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.DailyRecord{},
		&domain.MonthlyRecord{},
		&domain.YearlyRecord{},
		&domain.AppConfig{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "MarketSim", "data", "history.db"), nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// History Operations
// ======================================================================================

// SaveDaily inserts a session record, replacing one with the same session id.
func (s *Storage) SaveDaily(ctx context.Context, rec *domain.DailyRecord) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

// DailyBetween returns records with from <= date < to, in date order.
func (s *Storage) DailyBetween(ctx context.Context, from, to time.Time) ([]domain.DailyRecord, error) {
	var recs []domain.DailyRecord
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date ASC").
		Find(&recs).Error
	return recs, err
}

// SaveMonthly upserts a month aggregate.
func (s *Storage) SaveMonthly(ctx context.Context, rec *domain.MonthlyRecord) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

// Monthly returns the month aggregates of a year in month order.
func (s *Storage) Monthly(ctx context.Context, year int) ([]domain.MonthlyRecord, error) {
	var recs []domain.MonthlyRecord
	err := s.db.WithContext(ctx).
		Where("year = ?", year).
		Order("month ASC").
		Find(&recs).Error
	return recs, err
}

// SaveYearly upserts a year aggregate.
func (s *Storage) SaveYearly(ctx context.Context, rec *domain.YearlyRecord) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

// Yearly retrieves one year aggregate, or nil when absent.
func (s *Storage) Yearly(ctx context.Context, year int) (*domain.YearlyRecord, error) {
	var rec domain.YearlyRecord
	err := s.db.WithContext(ctx).First(&rec, "year = ?", year).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &rec, err
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SetConfig saves a user setting.
func (s *Storage) SetConfig(ctx context.Context, key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.WithContext(ctx).Save(&config).Error
}

// GetConfig loads one setting. A missing key returns domain.ErrConfigNotFound.
func (s *Storage) GetConfig(ctx context.Context, key string) (string, error) {
	var cfg domain.AppConfig
	err := s.db.WithContext(ctx).First(&cfg, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("config %q: %w", key, domain.ErrConfigNotFound)
	}
	return cfg.Value, err
}

// LoadConfigMap loads all user settings as a map
func (s *Storage) LoadConfigMap(ctx context.Context) (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.WithContext(ctx).Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
