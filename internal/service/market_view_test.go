package service

import (
	"sync"
	"testing"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"

	"github.com/shopspring/decimal"
)

func TestMarketView_PublishTick(t *testing.T) {
	v := NewMarketView(8)
	v.OpenSession("s1", "2024-01-02", "BULLISH", 30000, 29500)

	v.PublishTick(domain.Tick{Price: 30100, High: 30150, Low: 30000, Volume: 100, Timestamp: 541, Zone: domain.ZoneOpen})
	v.PublishTick(domain.Tick{Price: 29900, High: 30000, Low: 29850, Volume: 50, Timestamp: 542, Zone: domain.ZoneOpen})

	q := v.Quote()
	if q.Price != 29900 {
		t.Errorf("Expected price 29900, got %d", q.Price)
	}
	if q.High != 30150 || q.Low != 29850 {
		t.Errorf("Expected high 30150 low 29850, got %d %d", q.High, q.Low)
	}
	if q.Volume != 150 {
		t.Errorf("Expected volume 150, got %d", q.Volume)
	}
	if !q.ChangeRate.Equal(decimal.RequireFromString("-0.33")) {
		t.Errorf("Expected -0.33, got %s", q.ChangeRate)
	}
	if q.ChangeDirection() != "negative" {
		t.Errorf("Expected negative, got %s", q.ChangeDirection())
	}
	if q.Clock != "09:02" {
		t.Errorf("Expected 09:02, got %s", q.Clock)
	}
	if !v.GapPct().Equal(decimal.RequireFromString("1.69")) {
		t.Errorf("Expected gap 1.69, got %s", v.GapPct())
	}
	if q.Direction != "negative" || q.Breakout != "normal" {
		t.Errorf("Expected negative/normal, got %s/%s", q.Direction, q.Breakout)
	}

	v.PublishTick(domain.Tick{Price: 29800, High: 29850, Low: 29800, Volume: 10, Timestamp: 543, Zone: domain.ZoneOpen})
	if q := v.Quote(); q.Breakout != "low" {
		t.Errorf("Expected breakout low at a new session low, got %s", q.Breakout)
	}
	v.PublishTick(domain.Tick{Price: 30200, High: 30200, Low: 30100, Volume: 10, Timestamp: 544, Zone: domain.ZoneOpen})
	if q := v.Quote(); q.Breakout != "high" || q.Direction != "positive" {
		t.Errorf("Expected high/positive, got %s/%s", q.Breakout, q.Direction)
	}
}

func TestMarketView_RecentWraps(t *testing.T) {
	v := NewMarketView(4)
	v.OpenSession("s1", "", "", 30000, 30000)

	for i := 1; i <= 6; i++ {
		v.PublishTick(domain.Tick{Price: quant.Price(30000 + i*10), High: 30100, Low: 29900})
	}

	got := v.Recent(10)
	if len(got) != 4 {
		t.Fatalf("Expected 4 ticks, got %d", len(got))
	}
	if got[0].Price != 30030 || got[3].Price != 30060 {
		t.Errorf("Expected 30030..30060, got %d..%d", got[0].Price, got[3].Price)
	}

	got = v.Recent(2)
	if got[0].Price != 30050 || got[1].Price != 30060 {
		t.Errorf("Expected last two ticks, got %v", got)
	}
}

func TestMarketView_OpenSessionResets(t *testing.T) {
	v := NewMarketView(4)
	v.OpenSession("s1", "", "", 30000, 30000)
	v.PublishTick(domain.Tick{Price: 30100, High: 30100, Low: 30000, Volume: 10})
	v.AddHeadline("h1")

	v.OpenSession("s2", "", "", 31000, 30100)
	if len(v.Recent(4)) != 0 {
		t.Error("Expected empty tape after new session")
	}
	if len(v.Headlines()) != 0 {
		t.Error("Expected no headlines after new session")
	}
	if q := v.Quote(); q.Volume != 0 || q.Open != 31000 {
		t.Errorf("Expected fresh quote, got %+v", q)
	}
	if id, _, _ := v.Session(); id != "s2" {
		t.Errorf("Expected s2, got %s", id)
	}
}

func TestMarketView_AccountCopies(t *testing.T) {
	v := NewMarketView(4)
	sl := quant.Price(29000)
	v.UpdateAccount(Account{
		Balance:    700000,
		Equity:     1000000,
		Unrealized: 1000,
		Effective:  701000,
		Positions:  []domain.Position{{ID: 1, StopLoss: &sl}},
	})

	a := v.Account()
	if a.Equity != 1000000 || a.Effective != 701000 {
		t.Errorf("Expected equity 1000000 effective 701000, got %d %d", a.Equity, a.Effective)
	}
	*a.Positions[0].StopLoss = 1
	if *v.Account().Positions[0].StopLoss != 29000 {
		t.Error("Account must return copies")
	}
}

func TestMarketView_ConcurrentAccess(t *testing.T) {
	v := NewMarketView(64)
	v.OpenSession("s1", "", "", 30000, 30000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			v.PublishTick(domain.Tick{Price: 30000, High: 30000, Low: 30000, Volume: 1})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = v.Quote()
			_ = v.Recent(10)
		}
	}()
	wg.Wait()

	if v.Quote().Volume != 1000 {
		t.Errorf("Expected volume 1000, got %d", v.Quote().Volume)
	}
}
