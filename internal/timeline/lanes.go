package timeline

import (
	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/instant"
)

// Lane names used by the user-events chart.
const (
	LaneNavigate = "navigate"
	LaneData     = "data"
	LaneUI       = "ui"
	LaneClicks   = "clicks"
	LaneScrolls  = "scrolls"
)

// Lanes maps a lane name to its timeline events.
type Lanes map[string][]TimedEvent

// VeroEvents groups the instrumentation events of the visualization under test.
type VeroEvents struct {
	Nav  []TimedEvent `json:"nav"`
	Data []TimedEvent `json:"data"`
	UI   []TimedEvent `json:"ui"`
}

func Vero(records []events.Record, start instant.Instant) VeroEvents {
	streams := events.Classify(records, events.KindNavigation, events.KindDataChange, events.KindUIAdjustment)
	return VeroEvents{
		Nav:  Project(streams[events.KindNavigation], start),
		Data: Project(streams[events.KindDataChange], start),
		UI:   Project(streams[events.KindUIAdjustment], start),
	}
}

func Clicks(records []events.Record, start instant.Instant) []TimedEvent {
	return Project(events.Classify(records, events.KindClicked)[events.KindClicked], start)
}

func Scrolls(records []events.Record, start instant.Instant) []TimedEvent {
	return Project(events.Classify(records, events.KindScroll)[events.KindScroll], start)
}

// Build projects every category into its named lane.
func Build(records []events.Record, start instant.Instant) Lanes {
	vero := Vero(records, start)
	return Lanes{
		LaneNavigate: vero.Nav,
		LaneData:     vero.Data,
		LaneUI:       vero.UI,
		LaneClicks:   Clicks(records, start),
		LaneScrolls:  Scrolls(records, start),
	}
}

// Unresolved counts events across all lanes that could not be placed.
func (l Lanes) Unresolved() int {
	n := 0
	for _, lane := range l {
		for _, e := range lane {
			if e.Unresolved {
				n++
			}
		}
	}
	return n
}
