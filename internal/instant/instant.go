package instant

import (
	"encoding/json"
	"time"
)

// Instant is a millisecond-resolution point in time.
// The zero value is the invalid instant.
type Instant struct {
	ms    int64
	valid bool
}

// Invalid is returned for timestamps that could not be parsed.
var Invalid = Instant{}

// layouts accepted by Parse, tried in order
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FromTime truncates t to millisecond resolution.
func FromTime(t time.Time) Instant {
	if t.IsZero() {
		return Invalid
	}
	return Instant{ms: t.UnixMilli(), valid: true}
}

// FromUnixMilli builds an Instant from milliseconds since the Unix epoch.
func FromUnixMilli(ms int64) Instant {
	return Instant{ms: ms, valid: true}
}

// Parse reads a date-time text. Malformed text yields Invalid, never an error.
// Text without a zone is read as UTC.
func Parse(s string) Instant {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t)
		}
	}
	return Invalid
}

func (i Instant) Valid() bool {
	return i.valid
}

// UnixMilli returns 0 for an invalid instant; check Valid first.
func (i Instant) UnixMilli() int64 {
	return i.ms
}

func (i Instant) Time() time.Time {
	if !i.valid {
		return time.Time{}
	}
	return time.UnixMilli(i.ms).UTC()
}

// Before reports whether i is strictly earlier than o.
// It is false when either instant is invalid.
func (i Instant) Before(o Instant) bool {
	return i.valid && o.valid && i.ms < o.ms
}

// Sub returns i - o in milliseconds. ok is false when either side is invalid.
func (i Instant) Sub(o Instant) (ms int64, ok bool) {
	if !i.valid || !o.valid {
		return 0, false
	}
	return i.ms - o.ms, true
}

// Add shifts a valid instant by ms milliseconds.
func (i Instant) Add(ms int64) Instant {
	if !i.valid {
		return i
	}
	return Instant{ms: i.ms + ms, valid: true}
}

func (i Instant) String() string {
	if !i.valid {
		return "invalid"
	}
	return i.Time().Format("2006-01-02T15:04:05.000Z07:00")
}

// MarshalJSON writes unix milliseconds, or null for an invalid instant.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.ms)
}
