package domain

import "testing"

func TestAggregateMonth(t *testing.T) {
	days := []DailyRecord{
		{Open: 30000, High: 30500, Low: 29800, Close: 30200, Volume: 100, Trades: 2, RealizedPnL: 500},
		{Open: 30200, High: 31000, Low: 30100, Close: 30900, Volume: 150, Trades: 1, RealizedPnL: -200},
		{Open: 30900, High: 30950, Low: 29500, Close: 29600, Volume: 90},
	}
	m := AggregateMonth(2026, 3, "spring-rally", days)

	if m.Open != 30000 || m.Close != 29600 {
		t.Errorf("Expected open/close 30000/29600, got %d/%d", m.Open, m.Close)
	}
	if m.High != 31000 || m.Low != 29500 {
		t.Errorf("Expected high/low 31000/29500, got %d/%d", m.High, m.Low)
	}
	if m.Volume != 340 || m.Trades != 3 || m.RealizedPnL != 300 || m.Days != 3 {
		t.Errorf("Unexpected totals: %+v", m)
	}

	y := AggregateYear(2026, []MonthlyRecord{m})
	if y.Days != 3 || y.High != 31000 || y.Close != 29600 {
		t.Errorf("Unexpected year: %+v", y)
	}
}

func TestAggregateMonth_Empty(t *testing.T) {
	m := AggregateMonth(2026, 1, "", nil)
	if m.Days != 0 || m.Open != 0 {
		t.Errorf("Expected empty record, got %+v", m)
	}
}
