package domain

import (
	"fmt"
	"strings"
	"time"
)

// Sentinels written by the data collaborators in place of an absent timestamp.
const (
	NotClosed = "Not Closed"
	NotMerged = "Not Merged"
)

type timestampState uint8

const (
	timestampAbsent timestampState = iota
	timestampAware
	timestampNaive
	timestampInvalid
)

// awareLayouts are accepted formats that carry a zone offset.
var awareLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// naiveLayouts are accepted formats that carry no zone information.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is an optional point in time. The zero value is absent.
// Aware timestamps are normalized to UTC; naive ones are read as UTC but
// remember that the source carried no zone.
type Timestamp struct {
	t     time.Time
	raw   string
	state timestampState
}

// At returns an aware timestamp normalized to UTC.
func At(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{t: t.UTC(), state: timestampAware}
}

// Naive returns a timestamp whose wall clock is interpreted as UTC.
func Naive(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return Timestamp{t: time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC), state: timestampNaive}
}

// ParseTimestamp never fails: unparseable text yields an invalid timestamp
// that keeps the raw value so it can be persisted and reported verbatim.
func ParseTimestamp(s string) Timestamp {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "", "null", "none", "nat", strings.ToLower(NotClosed), strings.ToLower(NotMerged):
		return Timestamp{}
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return At(t)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return Naive(t)
		}
	}
	return Timestamp{raw: v, state: timestampInvalid}
}

// IsSet reports whether the timestamp carries any value, valid or not.
func (ts Timestamp) IsSet() bool { return ts.state != timestampAbsent }

// IsNaive reports whether the source lacked zone information.
func (ts Timestamp) IsNaive() bool { return ts.state == timestampNaive }

// Time returns the UTC instant. It fails for absent and invalid timestamps.
func (ts Timestamp) Time() (time.Time, error) {
	switch ts.state {
	case timestampAware, timestampNaive:
		return ts.t, nil
	case timestampInvalid:
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", ts.raw)
	default:
		return time.Time{}, ErrTimestampAbsent
	}
}

// Format renders the timestamp for persistence. Absent timestamps render
// as the given sentinel.
func (ts Timestamp) Format(absent string) string {
	switch ts.state {
	case timestampAware:
		return ts.t.Format(time.RFC3339)
	case timestampNaive:
		return ts.t.Format("2006-01-02T15:04:05")
	case timestampInvalid:
		return ts.raw
	default:
		return absent
	}
}

func (ts Timestamp) String() string { return ts.Format("") }

// MarshalText lets timestamps appear in JSON and YAML renderings.
func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}
