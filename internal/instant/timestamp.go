package instant

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Timestamp is a timestamp field as it arrives from the log source: either
// date-time text or an already canonical Instant.
type Timestamp struct {
	text    string
	instant Instant
	isText  bool
}

// Text wraps unparsed date-time text.
func Text(s string) Timestamp {
	return Timestamp{text: s, isText: true}
}

// At wraps an already canonical instant.
func At(i Instant) Timestamp {
	return Timestamp{instant: i}
}

// Normalize parses textual timestamps and returns canonical ones unchanged.
// Normalize(Normalize(ts)) == Normalize(ts).
func Normalize(ts Timestamp) Timestamp {
	if !ts.isText {
		return ts
	}
	return At(Parse(ts.text))
}

// IsText reports whether ts still holds unparsed text.
func (ts Timestamp) IsText() bool {
	return ts.isText
}

// Instant returns the normalized instant of ts.
func (ts Timestamp) Instant() Instant {
	return Normalize(ts).instant
}

func (ts Timestamp) String() string {
	if ts.isText {
		return ts.text
	}
	return ts.instant.String()
}

// UnmarshalJSON accepts a date-time string or a number of unix milliseconds.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = At(Invalid)
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = Text(s)
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp must be text or unix milliseconds: %w", err)
	}
	*ts = At(FromUnixMilli(int64(ms)))
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.isText {
		return json.Marshal(ts.text)
	}
	return ts.instant.MarshalJSON()
}

// FromValue converts a decoded JSON value (string or float64 unix millis)
// into a Timestamp. Anything else is treated as an invalid instant.
func FromValue(v interface{}) Timestamp {
	switch t := v.(type) {
	case string:
		return Text(t)
	case float64:
		return At(FromUnixMilli(int64(t)))
	case int64:
		return At(FromUnixMilli(t))
	case Instant:
		return At(t)
	case Timestamp:
		return t
	}
	return At(Invalid)
}
