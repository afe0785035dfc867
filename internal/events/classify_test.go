package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosight/gazetrace/internal/instant"
)

func at(ms int64) instant.Timestamp {
	return instant.At(instant.FromUnixMilli(ms))
}

func sampleLog() []Record {
	return []Record{
		{Type: "veroNavigation", Timestamp: at(10), Target: "home"},
		{Type: "scroll", Timestamp: at(20), Position: 120},
		{Type: "veroNavigationData", Timestamp: at(30), Variable: "zoom", Value: Number(3)},
		{Type: "mouseMove", Timestamp: at(35)},
		{Type: "clicked", Timestamp: at(40), Index: 2},
		{Type: "uiAdjustment", Timestamp: at(50), Target: "legend", Enable: String("on")},
		{Type: "scroll", Timestamp: at(60), Position: 300},
	}
}

func TestClassify_AllCategories(t *testing.T) {
	streams := Classify(sampleLog())

	require.Len(t, streams, 5)
	assert.Len(t, streams[KindNavigation], 1)
	assert.Len(t, streams[KindDataChange], 1)
	assert.Len(t, streams[KindUIAdjustment], 1)
	assert.Len(t, streams[KindClicked], 1)
	assert.Len(t, streams[KindScroll], 2)
}

func TestClassify_Partition(t *testing.T) {
	records := sampleLog()
	streams := Classify(records)

	total := 0
	for kind, evts := range streams {
		for _, e := range evts {
			assert.Equal(t, kind, e.Kind())
		}
		total += len(evts)
	}
	// the mouseMove record belongs to no category
	assert.Equal(t, len(records)-1, total)
}

func TestClassify_ScrollPayload(t *testing.T) {
	ts := at(1000)
	streams := Classify([]Record{{Type: "scroll", Timestamp: ts, Position: 120}})

	require.Len(t, streams[KindScroll], 1)
	assert.Equal(t, Scroll{Timestamp: ts.Instant(), Position: 120}, streams[KindScroll][0])
	for _, kind := range []Kind{KindNavigation, KindDataChange, KindUIAdjustment, KindClicked} {
		assert.Empty(t, streams[kind])
	}
}

func TestClassify_Subset(t *testing.T) {
	streams := Classify(sampleLog(), KindClicked, KindClicked, Kind("bogus"))

	require.Len(t, streams, 1)
	assert.Equal(t, []Event{Clicked{Timestamp: at(40).Instant(), Index: 2}}, streams[KindClicked])
}

func TestClassify_PreservesOrder(t *testing.T) {
	scrolls := Scrolls(sampleLog())

	require.Len(t, scrolls, 2)
	assert.Equal(t, float64(120), scrolls[0].Position)
	assert.Equal(t, float64(300), scrolls[1].Position)
}

func TestClassify_Empty(t *testing.T) {
	streams := Classify(nil)
	for _, kind := range Kinds {
		assert.NotNil(t, streams[kind])
		assert.Empty(t, streams[kind])
	}
}

func TestTypedExtractors(t *testing.T) {
	records := sampleLog()

	assert.Equal(t, "home", Navigations(records)[0].Target)
	assert.Equal(t, "zoom", DataChanges(records)[0].Variable)
	assert.Equal(t, "on", UIAdjustments(records)[0].Enabled.String())
	assert.Equal(t, 2, Clicks(records)[0].Index)
}

func TestFromRecord_TextTimestamp(t *testing.T) {
	e, ok := FromRecord(Record{Type: "clicked", Timestamp: instant.Text("2019-03-01T10:00:00Z")})
	require.True(t, ok)
	assert.Equal(t, int64(1551434400000), e.At().UnixMilli())

	_, ok = FromRecord(Record{Type: "keyPress"})
	assert.False(t, ok)
}

func TestRecord_NormalizeIsPure(t *testing.T) {
	original := Record{Type: "scroll", Timestamp: instant.Text("2019-03-01T10:00:00Z")}
	normalized := original.Normalize()

	assert.True(t, original.Timestamp.IsText())
	assert.False(t, normalized.Timestamp.IsText())
	assert.Equal(t, normalized, normalized.Normalize())
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	raw := `[
		{"type":"uiAdjustment","timestamp":"2019-03-01T10:00:00Z","target":"grid","enable":true},
		{"type":"veroNavigationData","timestamp":1551434400000,"variable":"x","value":"12"}
	]`

	var records []Record
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	require.Len(t, records, 2)

	assert.Equal(t, ScalarBool, records[0].Enable.Kind())
	assert.Equal(t, "true", records[0].Enable.String())
	assert.Equal(t, ScalarString, records[1].Value.Kind())
	assert.Equal(t, records[0].Timestamp.Instant(), records[1].Timestamp.Instant())
}

func TestScalar_JSON(t *testing.T) {
	data, err := json.Marshal([]Scalar{String("a"), Number(1.5), Bool(false), {}})
	require.NoError(t, err)
	assert.JSONEq(t, `["a",1.5,false,null]`, string(data))
}
