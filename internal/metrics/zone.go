package metrics

import (
	"time"

	"github.com/naka-gawa/repo-insights/internal/domain"
)

// zoneGuard holds the zone kind, naive or aware, that a computation works
// on. Timestamps of the other kind are rejected.
type zoneGuard struct {
	naive bool
}

// newZoneGuard picks the kind carried by most usable timestamps. A tie goes
// to aware, so the choice does not depend on record order.
func newZoneGuard(stamps []domain.Timestamp) zoneGuard {
	var naive, aware int
	for _, ts := range stamps {
		if _, err := ts.Time(); err != nil {
			continue
		}
		if ts.IsNaive() {
			naive++
		} else {
			aware++
		}
	}
	return zoneGuard{naive: naive > aware}
}

func (z zoneGuard) instant(record, id, field string, ts domain.Timestamp) (time.Time, error) {
	t, err := ts.Time()
	if err != nil {
		return time.Time{}, &TimestampError{Record: record, ID: id, Field: field, Err: err}
	}
	if ts.IsNaive() != z.naive {
		return time.Time{}, &TimestampError{Record: record, ID: id, Field: field, Err: ErrMixedZones}
	}
	return t, nil
}

// interval is a start with an optional end, as carried by issues and
// pull requests.
type interval struct {
	start time.Time
	end   time.Time
	ended bool
}

// whole days between start and end, truncated.
func (iv interval) days() float64 {
	return float64(iv.end.Sub(iv.start) / (24 * time.Hour))
}

// span reads a start/end pair. An unusable start or end drops the record
// (ok is false). An end before the start leaves the record open and is
// reported as a problem.
func (z zoneGuard) span(record, id, startField string, start domain.Timestamp, endField string, end domain.Timestamp) (interval, bool, error) {
	s, err := z.instant(record, id, startField, start)
	if err != nil {
		return interval{}, false, err
	}
	iv := interval{start: s}
	if !end.IsSet() {
		return iv, true, nil
	}
	e, err := z.instant(record, id, endField, end)
	if err != nil {
		return interval{}, false, err
	}
	if e.Before(s) {
		return iv, true, &TimestampError{Record: record, ID: id, Field: endField, Err: ErrInvertedRange}
	}
	iv.end, iv.ended = e, true
	return iv, true, nil
}
