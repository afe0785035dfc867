package timeline

import (
	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/instant"
)

// TimedEvent is an event placed on the trial timeline.
// Unresolved events carry no usable offset and must not be drawn at zero.
type TimedEvent struct {
	OffsetMillis int64         `json:"timestamp"`
	Name         string        `json:"name"`
	Value        events.Scalar `json:"value"`
	Unresolved   bool          `json:"unresolved,omitempty"`
}

// Project rewrites event instants as signed offsets from start, keeping order.
func Project(evts []events.Event, start instant.Instant) []TimedEvent {
	out := make([]TimedEvent, len(evts))
	for i, e := range evts {
		out[i] = projectOne(e, start)
	}
	return out
}

func projectOne(e events.Event, start instant.Instant) TimedEvent {
	var te TimedEvent

	switch ev := e.(type) {
	case events.Navigation:
		te = TimedEvent{Name: ev.Target, Value: events.String("")}
	case events.DataChange:
		te = TimedEvent{Name: ev.Variable, Value: ev.Value}
	case events.UIAdjustment:
		te = TimedEvent{Name: ev.Target, Value: ev.Enabled}
	case events.Clicked:
		te = TimedEvent{Name: "click", Value: events.Number(float64(ev.Index))}
	case events.Scroll:
		te = TimedEvent{Name: "scroll", Value: events.Number(ev.Position)}
	}

	offset, ok := e.At().Sub(start)
	te.OffsetMillis = offset
	te.Unresolved = !ok
	return te
}
