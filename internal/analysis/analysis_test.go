package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/gaze"
	"github.com/gosight/gazetrace/internal/instant"
	"github.com/gosight/gazetrace/internal/timeline"
	"github.com/gosight/gazetrace/internal/trial"
)

func sampleInput() Input {
	start := instant.FromUnixMilli(1551434400000)

	return Input{
		Meta: trial.MetaExt{
			Meta:      trial.Meta{ID: "t-1"},
			StartTime: instant.Text("2019-03-01T10:00:00Z"),
		},
		Events: []events.Record{
			{Type: "veroNavigation", Timestamp: instant.Text("2019-03-01T10:00:01Z"), Target: "map"},
			{Type: "scroll", Timestamp: instant.At(start.Add(1500)), Position: 200},
			{Type: "clicked", Timestamp: instant.At(start.Add(-250)), Index: 3},
		},
		Fixations: []gaze.RawFixation{
			{Timestamp: start.Add(1000), X: 10, Y: 10, Duration: 200, SaccadicAmplitude: 4},
			{Timestamp: start.Add(1500), X: 20, Y: 20, Duration: 300, SaccadicAmplitude: 2},
			{Timestamp: start.Add(2000), X: 30, Y: 30, Duration: 400, SaccadicAmplitude: 6},
		},
	}
}

func TestAnalyze(t *testing.T) {
	res := Analyze(sampleInput(), Options{CheckOrder: true})

	assert.Equal(t, "t-1", res.TrialID)
	require.Len(t, res.Fixations, 3)
	assert.Equal(t, float64(10), res.Fixations[0].Y)
	assert.Equal(t, float64(20), res.Fixations[1].Y, "coincident scroll must not apply")
	assert.Equal(t, float64(230), res.Fixations[2].Y)

	require.Len(t, res.Saccades, 3)
	assert.Equal(t, float64(300), res.AverageDuration)
	assert.Equal(t, float64(4), res.AverageAmplitude)

	require.Len(t, res.Lanes[timeline.LaneNavigate], 1)
	assert.Equal(t, int64(1000), res.Lanes[timeline.LaneNavigate][0].OffsetMillis)
	assert.Equal(t, int64(-250), res.Lanes[timeline.LaneClicks][0].OffsetMillis)
	assert.Empty(t, res.Warnings)
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	in := sampleInput()
	Analyze(in, Options{})

	assert.True(t, in.Meta.StartTime.IsText())
	assert.True(t, in.Events[0].Timestamp.IsText())
}

func TestAnalyze_Warnings(t *testing.T) {
	in := sampleInput()
	in.Meta.StartTime = instant.Text("whenever")
	in.Fixations[0], in.Fixations[2] = in.Fixations[2], in.Fixations[0]

	res := Analyze(in, Options{CheckOrder: true})

	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "whenever")
	assert.Contains(t, res.Warnings[1], gaze.ErrOutOfOrder.Error())
	for _, lane := range res.Lanes {
		for _, e := range lane {
			assert.True(t, e.Unresolved)
		}
	}
}

func TestAnalyze_Empty(t *testing.T) {
	res := Analyze(Input{Meta: trial.MetaExt{StartTime: instant.At(instant.FromUnixMilli(0))}}, Options{})

	assert.Empty(t, res.Fixations)
	assert.Equal(t, float64(0), res.AverageDuration)
	assert.Equal(t, float64(0), res.AverageAmplitude)
	assert.Empty(t, res.Warnings)
}

func TestAnalyzeAll(t *testing.T) {
	inputs := make([]Input, 8)
	for i := range inputs {
		inputs[i] = sampleInput()
		inputs[i].Meta.ID = string(rune('a' + i))
	}

	results, err := AnalyzeAll(context.Background(), inputs, Options{}, 3)

	require.NoError(t, err)
	require.Len(t, results, len(inputs))
	for i, res := range results {
		assert.Equal(t, inputs[i].Meta.ID, res.TrialID)
	}
}

func TestAnalyzeAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AnalyzeAll(ctx, []Input{sampleInput()}, Options{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_InvalidFixationTimestamp(t *testing.T) {
	in := sampleInput()
	in.Fixations[1].Timestamp = instant.Invalid

	for _, opts := range []Options{{}, {CheckOrder: true}} {
		res := Analyze(in, opts)

		require.Len(t, res.Warnings, 1, "check_order=%v", opts.CheckOrder)
		assert.Equal(t, "1 fixations have an invalid timestamp", res.Warnings[0])
		assert.False(t, res.Fixations[1].Timestamp.Valid())
		assert.Equal(t, float64(20), res.Fixations[1].Y)
		assert.Equal(t, float64(230), res.Fixations[2].Y)
	}
}

func TestAnalyze_InvalidScrollTimestamp(t *testing.T) {
	in := sampleInput()
	in.Events[1].Timestamp = instant.Text("later")

	res := Analyze(in, Options{CheckOrder: true})

	assert.Equal(t, []string{
		"1 events have an invalid timestamp",
		"1 scroll events have an invalid timestamp and were not applied",
	}, res.Warnings)
	assert.Equal(t, float64(30), res.Fixations[2].Y)
}
