package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/instant"
)

var start = instant.FromUnixMilli(1_000_000)

func rec(kind events.Kind, offset int64) events.Record {
	return events.Record{Type: string(kind), Timestamp: instant.At(start.Add(offset))}
}

func TestProject_Sign(t *testing.T) {
	evts := []events.Event{
		events.Clicked{Timestamp: start.Add(-500), Index: 1},
		events.Clicked{Timestamp: start.Add(500), Index: 2},
	}

	out := Project(evts, start)

	require.Len(t, out, 2)
	assert.Equal(t, int64(-500), out[0].OffsetMillis)
	assert.Equal(t, int64(500), out[1].OffsetMillis)
	assert.False(t, out[0].Unresolved)
}

func TestProject_Payloads(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  TimedEvent
	}{
		{
			name:  "navigation",
			event: events.Navigation{Timestamp: start, Target: "overview"},
			want:  TimedEvent{Name: "overview", Value: events.String("")},
		},
		{
			name:  "data change",
			event: events.DataChange{Timestamp: start, Variable: "year", Value: events.Number(2001)},
			want:  TimedEvent{Name: "year", Value: events.Number(2001)},
		},
		{
			name:  "ui adjustment",
			event: events.UIAdjustment{Timestamp: start, Target: "labels", Enabled: events.Bool(true)},
			want:  TimedEvent{Name: "labels", Value: events.Bool(true)},
		},
		{
			name:  "click",
			event: events.Clicked{Timestamp: start, Index: 7},
			want:  TimedEvent{Name: "click", Value: events.Number(7)},
		},
		{
			name:  "scroll",
			event: events.Scroll{Timestamp: start, Position: 340},
			want:  TimedEvent{Name: "scroll", Value: events.Number(340)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Project([]events.Event{tt.event}, start)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0])
		})
	}
}

func TestProject_PreservesOrder(t *testing.T) {
	evts := []events.Event{
		events.Scroll{Timestamp: start.Add(30), Position: 3},
		events.Scroll{Timestamp: start.Add(10), Position: 1},
		events.Scroll{Timestamp: start.Add(20), Position: 2},
	}

	out := Project(evts, start)

	require.Len(t, out, 3)
	for i, want := range []int64{30, 10, 20} {
		assert.Equal(t, want, out[i].OffsetMillis)
	}
}

func TestProject_InvalidInstants(t *testing.T) {
	out := Project([]events.Event{events.Clicked{Timestamp: instant.Invalid}}, start)
	require.Len(t, out, 1)
	assert.True(t, out[0].Unresolved)
	assert.Equal(t, int64(0), out[0].OffsetMillis)

	out = Project([]events.Event{events.Clicked{Timestamp: start}}, instant.Invalid)
	assert.True(t, out[0].Unresolved)
}

func TestBuild(t *testing.T) {
	records := []events.Record{
		rec(events.KindNavigation, 100),
		rec(events.KindScroll, 200),
		rec(events.KindClicked, -50),
		rec("keyDown", 10),
		rec(events.KindScroll, 300),
		{Type: string(events.KindClicked), Timestamp: instant.Text("garbage")},
	}

	lanes := Build(records, start)

	require.Len(t, lanes, 5)
	assert.Len(t, lanes[LaneNavigate], 1)
	assert.Empty(t, lanes[LaneData])
	assert.Empty(t, lanes[LaneUI])
	assert.Len(t, lanes[LaneClicks], 2)
	assert.Len(t, lanes[LaneScrolls], 2)
	assert.Equal(t, int64(-50), lanes[LaneClicks][0].OffsetMillis)
	assert.Equal(t, 1, lanes.Unresolved())
}

func TestVeroClicksScrolls(t *testing.T) {
	records := []events.Record{
		rec(events.KindNavigation, 1),
		rec(events.KindDataChange, 2),
		rec(events.KindUIAdjustment, 3),
		rec(events.KindClicked, 4),
		rec(events.KindScroll, 5),
	}

	vero := Vero(records, start)
	assert.Len(t, vero.Nav, 1)
	assert.Len(t, vero.Data, 1)
	assert.Len(t, vero.UI, 1)

	clicks := Clicks(records, start)
	require.Len(t, clicks, 1)
	assert.Equal(t, "click", clicks[0].Name)

	scrolls := Scrolls(records, start)
	require.Len(t, scrolls, 1)
	assert.Equal(t, int64(5), scrolls[0].OffsetMillis)
}
