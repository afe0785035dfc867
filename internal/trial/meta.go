package trial

import (
	"encoding/json"

	"github.com/gosight/gazetrace/internal/instant"
)

// Meta is an entry of the trial list.
type Meta struct {
	ID          string            `json:"_id"`
	Test        string            `json:"test"`
	Participant string            `json:"participant"`
	Timestamp   instant.Timestamp `json:"timestamp"`
}

// MetaExt is the extended metadata of a single trial.
type MetaExt struct {
	Meta
	StartTime    instant.Timestamp `json:"startTime"`
	EndTime      instant.Timestamp `json:"endTime"`
	ScreenWidth  int               `json:"screenWidth,omitempty"`
	ScreenHeight int               `json:"screenHeight,omitempty"`
}

// UnmarshalJSON reads the trial id from "_id", falling back to "id".
func (m *Meta) UnmarshalJSON(data []byte) error {
	type plain Meta
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*m = Meta(aux.plain)
	if m.ID == "" {
		m.ID = aux.AltID
	}
	return nil
}

// UnmarshalJSON decodes the embedded Meta with its id fallback, then the
// extended fields.
func (m *MetaExt) UnmarshalJSON(data []byte) error {
	var ext struct {
		StartTime    instant.Timestamp `json:"startTime"`
		EndTime      instant.Timestamp `json:"endTime"`
		ScreenWidth  int               `json:"screenWidth"`
		ScreenHeight int               `json:"screenHeight"`
	}
	if err := json.Unmarshal(data, &m.Meta); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}

	m.StartTime = ext.StartTime
	m.EndTime = ext.EndTime
	m.ScreenWidth = ext.ScreenWidth
	m.ScreenHeight = ext.ScreenHeight
	return nil
}

// Normalize returns a copy of m with a canonical timestamp.
func (m Meta) Normalize() Meta {
	m.Timestamp = instant.Normalize(m.Timestamp)
	return m
}

// Normalize returns a copy of m with canonical timestamps.
func (m MetaExt) Normalize() MetaExt {
	m.Meta = m.Meta.Normalize()
	m.StartTime = instant.Normalize(m.StartTime)
	m.EndTime = instant.Normalize(m.EndTime)
	return m
}

// Start is the session start instant the timeline is anchored to.
func (m MetaExt) Start() instant.Instant {
	return m.StartTime.Instant()
}

// DurationMillis returns EndTime - StartTime, or false if either is unparseable.
func (m MetaExt) DurationMillis() (int64, bool) {
	return m.EndTime.Instant().Sub(m.StartTime.Instant())
}

// NormalizeList returns normalized copies of the trial list.
func NormalizeList(list []Meta) []Meta {
	out := make([]Meta, len(list))
	for i, m := range list {
		out[i] = m.Normalize()
	}
	return out
}
