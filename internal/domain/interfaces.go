package domain

import (
	"context"
	"time"
)

// TickSink receives every emitted tick (websocket feed, read model).
type TickSink interface {
	PublishTick(t Tick)
}

// HistoryRepository persists aggregated session history.
type HistoryRepository interface {
	SaveDaily(ctx context.Context, rec *DailyRecord) error
	DailyBetween(ctx context.Context, from, to time.Time) ([]DailyRecord, error)
	SaveMonthly(ctx context.Context, rec *MonthlyRecord) error
	Monthly(ctx context.Context, year int) ([]MonthlyRecord, error)
	SaveYearly(ctx context.Context, rec *YearlyRecord) error
}

// SettingsRepository stores key-value settings.
type SettingsRepository interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}
