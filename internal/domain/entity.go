package domain

import (
	"time"
)

// DailyRecord is the aggregated result of one trading session.
type DailyRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"uniqueIndex;size:36" json:"session_id"`
	Date        time.Time `gorm:"index" json:"date"`
	Regime      string    `json:"regime"`
	Open        int64     `json:"open"`
	High        int64     `json:"high"`
	Low         int64     `json:"low"`
	Close       int64     `json:"close"`
	Volume      int64     `json:"volume"`
	Ticks       int64     `json:"ticks"`
	NewsFired   int       `json:"news_fired"`
	Trades      int       `json:"trades"`
	Wins        int       `json:"wins"`
	RealizedPnL int64     `json:"realized_pnl"`
	EndBalance  int64     `json:"end_balance"`
	CreatedAt   time.Time `json:"created_at"`
}

// MonthlyRecord aggregates the daily records of one calendar month.
type MonthlyRecord struct {
	Year        int    `gorm:"primaryKey;autoIncrement:false" json:"year"`
	Month       int    `gorm:"primaryKey;autoIncrement:false" json:"month"`
	Anomaly     string `json:"anomaly"`
	Open        int64  `json:"open"`
	High        int64  `json:"high"`
	Low         int64  `json:"low"`
	Close       int64  `json:"close"`
	Volume      int64  `json:"volume"`
	Days        int    `json:"days"`
	Trades      int    `json:"trades"`
	RealizedPnL int64  `json:"realized_pnl"`
}

// YearlyRecord aggregates the monthly records of one year.
type YearlyRecord struct {
	Year        int   `gorm:"primaryKey;autoIncrement:false" json:"year"`
	Open        int64 `json:"open"`
	High        int64 `json:"high"`
	Low         int64 `json:"low"`
	Close       int64 `json:"close"`
	Volume      int64 `json:"volume"`
	Days        int   `json:"days"`
	Trades      int   `json:"trades"`
	RealizedPnL int64 `json:"realized_pnl"`
}

// AppConfig represents persisted key-value settings (player level, last seed).
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AggregateMonth folds daily records (in date order) into a month record.
func AggregateMonth(year, month int, anomaly string, days []DailyRecord) MonthlyRecord {
	m := MonthlyRecord{Year: year, Month: month, Anomaly: anomaly}
	for i, d := range days {
		if i == 0 {
			m.Open, m.High, m.Low = d.Open, d.High, d.Low
		}
		m.High = max(m.High, d.High)
		m.Low = min(m.Low, d.Low)
		m.Close = d.Close
		m.Volume += d.Volume
		m.Trades += d.Trades
		m.RealizedPnL += d.RealizedPnL
		m.Days++
	}
	return m
}

// AggregateYear folds month records (in month order) into a year record.
func AggregateYear(year int, months []MonthlyRecord) YearlyRecord {
	y := YearlyRecord{Year: year}
	for i, m := range months {
		if i == 0 {
			y.Open, y.High, y.Low = m.Open, m.High, m.Low
		}
		y.High = max(y.High, m.High)
		y.Low = min(y.Low, m.Low)
		y.Close = m.Close
		y.Volume += m.Volume
		y.Trades += m.Trades
		y.RealizedPnL += m.RealizedPnL
		y.Days += m.Days
	}
	return y
}
