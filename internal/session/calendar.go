package session

import "time"

const dateLayout = "2006-01-02"

// Calendar walks trading days Monday to Friday. Holidays are not modelled.
type Calendar struct {
	date time.Time
}

// NewCalendar starts at the first trading day on or after start.
func NewCalendar(start time.Time) *Calendar {
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for isWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return &Calendar{date: d}
}

// Date returns the current trading day.
func (c *Calendar) Date() time.Time { return c.date }

// String formats the current day as YYYY-MM-DD.
func (c *Calendar) String() string { return c.date.Format(dateLayout) }

// Next returns the trading day after the current one without moving.
func (c *Calendar) Next() time.Time {
	d := c.date.AddDate(0, 0, 1)
	for isWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Advance moves to the next trading day.
func (c *Calendar) Advance() time.Time {
	c.date = c.Next()
	return c.date
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SameWeek reports whether a and b share an ISO week.
func SameWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

// QuarterOf returns the calendar quarter (1-4) of d.
func QuarterOf(d time.Time) int {
	return (int(d.Month())-1)/3 + 1
}

// SameQuarter reports whether a and b fall in the same calendar quarter.
func SameQuarter(a, b time.Time) bool {
	return a.Year() == b.Year() && QuarterOf(a) == QuarterOf(b)
}

func monthBounds(d time.Time) (from, to time.Time) {
	from = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return from, to
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
