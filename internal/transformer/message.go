package transformer

import (
	"errors"
	"fmt"

	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/gaze"
	"github.com/gosight/gazetrace/internal/instant"
	"github.com/gosight/gazetrace/internal/trial"
)

// MessageKind tells what a trial message carries.
type MessageKind string

const (
	KindMeta     MessageKind = "meta"
	KindEvent    MessageKind = "event"
	KindFixation MessageKind = "fixation"
	KindEnd      MessageKind = "end"
)

var (
	ErrMissingTrialID = errors.New("message has no trial_id")
	ErrUnknownKind    = errors.New("unknown message kind")
)

// Message is one decoded record of the trial stream.
// Exactly one of Meta, Event and Fixation is set, except for KindEnd.
type Message struct {
	TrialID  string
	Kind     MessageKind
	Meta     *trial.MetaExt
	Event    *events.Record
	Fixation *gaze.RawFixation
}

// TransformMessage decodes a raw JSON message from Kafka.
// Envelope: {"trial_id": "...", "kind": "meta|event|fixation|end", "payload": {...}}
func TransformMessage(raw map[string]interface{}) (*Message, error) {
	msg := &Message{
		TrialID: getString(raw, "trial_id"),
		Kind:    MessageKind(getString(raw, "kind")),
	}
	if msg.TrialID == "" {
		return nil, ErrMissingTrialID
	}

	payload, _ := raw["payload"].(map[string]interface{})
	if payload == nil {
		payload = map[string]interface{}{}
	}

	switch msg.Kind {
	case KindMeta:
		meta := ParseMeta(payload)
		if meta.ID == "" {
			meta.ID = msg.TrialID
		}
		msg.Meta = &meta
	case KindEvent:
		record := ParseRecord(payload)
		msg.Event = &record
	case KindFixation:
		fix := ParseFixation(payload)
		msg.Fixation = &fix
	case KindEnd:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}

	return msg, nil
}

// ParseRecord decodes an event log record.
func ParseRecord(raw map[string]interface{}) events.Record {
	return events.Record{
		Type:      getString(raw, "type"),
		Timestamp: instant.FromValue(raw["timestamp"]),
		Target:    getString(raw, "target"),
		Variable:  getString(raw, "variable"),
		Value:     events.ScalarOf(raw["value"]),
		Enable:    events.ScalarOf(raw["enable"]),
		Index:     int(getFloat64(raw, "index")),
		Position:  getFloat64(raw, "position"),
	}
}

// ParseFixation decodes a fixation. The timestamp is either a plain value or
// the tracker's {"LocalTimeStamp": ...} object; it is normalized here.
func ParseFixation(raw map[string]interface{}) gaze.RawFixation {
	ts := raw["timestamp"]
	if obj, ok := ts.(map[string]interface{}); ok {
		ts = obj["LocalTimeStamp"]
	}

	return gaze.RawFixation{
		Timestamp:                 instant.FromValue(ts).Instant(),
		X:                         getFloat64(raw, "x"),
		Y:                         getFloat64(raw, "y"),
		Duration:                  getFloat64(raw, "duration"),
		SaccadicAmplitude:         getFloat64(raw, "saccadicAmplitude"),
		AbsoluteSaccadicDirection: getFloat64(raw, "absoluteSaccadicDirection"),
		RelativeSaccadicDirection: getFloat64(raw, "relativeSaccadicDirection"),
	}
}

// ParseMeta decodes extended trial metadata.
func ParseMeta(raw map[string]interface{}) trial.MetaExt {
	id := getString(raw, "_id")
	if id == "" {
		id = getString(raw, "id")
	}

	return trial.MetaExt{
		Meta: trial.Meta{
			ID:          id,
			Test:        getString(raw, "test"),
			Participant: getString(raw, "participant"),
			Timestamp:   instant.FromValue(raw["timestamp"]),
		},
		StartTime:    instant.FromValue(raw["startTime"]),
		EndTime:      instant.FromValue(raw["endTime"]),
		ScreenWidth:  int(getFloat64(raw, "screenWidth")),
		ScreenHeight: int(getFloat64(raw, "screenHeight")),
	}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat64(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
