package news

var bullishHeadlines = []string{
	"Earnings beat lifts guidance for the full year",
	"Major pension fund discloses a new stake",
	"Regulator clears long-awaited product approval",
	"Analysts upgrade the sector to overweight",
	"Surprise buyback program announced",
}

var bearishHeadlines = []string{
	"Profit warning issued ahead of quarter close",
	"Key supplier halts shipments after plant fire",
	"Regulator opens inquiry into accounting practices",
	"Credit agency puts rating on negative watch",
	"CEO departs unexpectedly, interim head named",
}

var neutralHeadlines = []string{
	"Company schedules investor day for next month",
	"Board reshuffle leaves strategy unchanged",
	"Index rebalance adds modest passive flows",
	"Trade data in line with expectations",
}

var weekendHeadlines = []string{
	"Central bank signals a change in policy tone",
	"Geopolitical tensions ease over the weekend",
	"Overseas markets close sharply on Friday",
	"Government floats new industry subsidy",
	"Commodity prices swing on supply news",
}

const followUpPrefix = "Follow-up: "

func pickHeadline(impact float64, idx int) string {
	var pool []string
	switch {
	case impact > 0.15:
		pool = bullishHeadlines
	case impact < -0.15:
		pool = bearishHeadlines
	default:
		pool = neutralHeadlines
	}
	return pool[idx%len(pool)]
}
