package protocol

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the on-disk format for ticket and event timestamps (local time).
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a second-resolution local time serialized as TimestampLayout.
// A value that is missing or cannot be parsed decodes to the zero Timestamp
// rather than failing the whole record. An unparsable value is kept verbatim
// and written back unchanged.
type Timestamp struct {
	time.Time
	raw string // original JSON of a value that did not parse
}

// NewTimestamp truncates t to whole seconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

// String formats the timestamp, or "" for the zero value.
func (ts Timestamp) String() string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(TimestampLayout)
}

// SortKey is the Unix time used for ordering; zero timestamps sort at the epoch.
func (ts Timestamp) SortKey() int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.Unix()
}

// Equal reports whether both timestamps hold the same instant and, when
// unparsed, the same stored value.
func (ts Timestamp) Equal(o Timestamp) bool {
	return ts.Time.Equal(o.Time) && ts.raw == o.raw
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() && ts.raw != "" {
		return []byte(ts.raw), nil
	}
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Non-string values (numbers, null) are treated as missing.
		ts.raw = string(data)
		return nil
	}
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		ts.raw = string(data)
		return nil
	}
	ts.Time = t
	return nil
}
