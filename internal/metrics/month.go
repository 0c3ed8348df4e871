package metrics

import (
	"fmt"
	"time"
)

// Month is a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// Start returns the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// MonthlyCount is one bucket of a monthly event series.
type MonthlyCount struct {
	Month Month `json:"month" yaml:"month"`
	Count int   `json:"count" yaml:"count"`
}

// IssueMonth is one created-month cohort of issues.
type IssueMonth struct {
	Month      Month `json:"month" yaml:"month"`
	Total      int   `json:"total" yaml:"total"`
	Resolved   int   `json:"resolved" yaml:"resolved"`
	Unresolved int   `json:"unresolved" yaml:"unresolved"`
}

// monthSpan returns every month from the earliest to the latest key, inclusive.
func monthSpan[V any](buckets map[Month]V) []Month {
	if len(buckets) == 0 {
		return nil
	}
	var first, last Month
	seen := false
	for m := range buckets {
		if !seen || m.Before(first) {
			first = m
		}
		if !seen || last.Before(m) {
			last = m
		}
		seen = true
	}
	months := []Month{first}
	for m := first; m != last; {
		m = m.Next()
		months = append(months, m)
	}
	return months
}

// fillCounts turns sparse month counts into a continuous ascending series.
func fillCounts(counts map[Month]int) []MonthlyCount {
	months := monthSpan(counts)
	series := make([]MonthlyCount, 0, len(months))
	for _, m := range months {
		series = append(series, MonthlyCount{Month: m, Count: counts[m]})
	}
	return series
}
