// Package analysis turns the raw records of one trial into the structures
// consumed by rendering and export.
package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/gaze"
	"github.com/gosight/gazetrace/internal/timeline"
	"github.com/gosight/gazetrace/internal/trial"
)

// Input is everything known about one trial.
type Input struct {
	Meta      trial.MetaExt
	Events    []events.Record
	Fixations []gaze.RawFixation
}

// Options tunes Analyze.
type Options struct {
	// CheckOrder validates stream ordering and reports violations as warnings.
	CheckOrder bool
}

// Result is the analysed trial.
type Result struct {
	TrialID          string                     `json:"trial_id"`
	Fixations        []gaze.CompensatedFixation `json:"fixations"`
	Saccades         []gaze.Saccade             `json:"saccades"`
	Lanes            timeline.Lanes             `json:"events"`
	AverageDuration  float64                    `json:"average_duration"`
	AverageAmplitude float64                    `json:"average_amplitude"`
	Warnings         []string                   `json:"warnings,omitempty"`
}

// Analyze runs the full transform for one trial. It never fails: unusable
// timestamps are reported in Result.Warnings.
func Analyze(in Input, opts Options) Result {
	meta := in.Meta.Normalize()
	records := events.NormalizeAll(in.Events)
	start := meta.Start()

	scrolls := events.Scrolls(records)
	fixations := gaze.Compensate(in.Fixations, scrolls)
	saccades := gaze.Saccades(in.Fixations)

	res := Result{
		TrialID:          meta.ID,
		Fixations:        fixations,
		Saccades:         saccades,
		Lanes:            timeline.Build(records, start),
		AverageDuration:  gaze.AverageDuration(fixations),
		AverageAmplitude: gaze.AverageAmplitude(saccades),
	}

	if !start.Valid() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("start time %q is not a valid date-time", in.Meta.StartTime.String()))
	}
	if n := res.Lanes.Unresolved(); n > 0 && start.Valid() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d events have an invalid timestamp", n))
	}
	if n := invalidFixations(in.Fixations); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d fixations have an invalid timestamp", n))
	}
	if n := invalidScrolls(scrolls); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d scroll events have an invalid timestamp and were not applied", n))
	}
	if opts.CheckOrder {
		// Invalid timestamps are reported above.
		if err := gaze.CheckOrder(validFixations(in.Fixations), validScrolls(scrolls)); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}

	return res
}

func invalidFixations(fixations []gaze.RawFixation) int {
	return len(fixations) - len(validFixations(fixations))
}

func invalidScrolls(scrolls []events.Scroll) int {
	return len(scrolls) - len(validScrolls(scrolls))
}

func validFixations(fixations []gaze.RawFixation) []gaze.RawFixation {
	out := make([]gaze.RawFixation, 0, len(fixations))
	for _, f := range fixations {
		if f.Timestamp.Valid() {
			out = append(out, f)
		}
	}
	return out
}

func validScrolls(scrolls []events.Scroll) []events.Scroll {
	out := make([]events.Scroll, 0, len(scrolls))
	for _, s := range scrolls {
		if s.Timestamp.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// AnalyzeAll analyses independent trials on up to workers goroutines.
// Results keep the order of inputs.
func AnalyzeAll(ctx context.Context, inputs []Input, opts Options, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Analyze(inputs[i], opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
