package storage

import (
	"time"

	"github.com/gosight/gazetrace/internal/analysis"
	"github.com/gosight/gazetrace/internal/timeline"
	"github.com/gosight/gazetrace/internal/trial"
)

// laneOrder fixes the row order of lanes so that runs are reproducible.
var laneOrder = []string{
	timeline.LaneNavigate,
	timeline.LaneData,
	timeline.LaneUI,
	timeline.LaneClicks,
	timeline.LaneScrolls,
}

// Rows is a trial analysis flattened into table rows.
type Rows struct {
	Fixations []FixationRow
	Saccades  []SaccadeRow
	Timeline  []TimelineRow
	Trial     TrialRow
}

// FromResult flattens an analysis result. Rows whose timestamp or offset is
// unusable keep zero values and are marked Unresolved.
func FromResult(runID string, meta trial.MetaExt, res analysis.Result, analyzedAt time.Time) Rows {
	meta = meta.Normalize()
	start := meta.Start()

	rows := Rows{
		Fixations: make([]FixationRow, 0, len(res.Fixations)),
		Saccades:  make([]SaccadeRow, 0, len(res.Saccades)),
	}

	for i, f := range res.Fixations {
		offset, ok := f.Timestamp.Sub(start)
		rows.Fixations = append(rows.Fixations, FixationRow{
			RunID:      runID,
			TrialID:    res.TrialID,
			Seq:        uint32(i),
			Timestamp:  f.Timestamp.Time(),
			OffsetMs:   offset,
			X:          f.X,
			Y:          f.Y,
			DurationMs: f.Duration,
			Unresolved: flag(!ok),
		})
	}

	for i, s := range res.Saccades {
		rows.Saccades = append(rows.Saccades, SaccadeRow{
			RunID:         runID,
			TrialID:       res.TrialID,
			Seq:           uint32(i),
			Timestamp:     s.Timestamp.Time(),
			Amplitude:     s.Amplitude,
			AbsoluteAngle: s.AbsoluteAngle,
			RelativeAngle: s.RelativeAngle,
			Unresolved:    flag(!s.Timestamp.Valid()),
		})
	}

	for _, lane := range laneOrder {
		for i, e := range res.Lanes[lane] {
			rows.Timeline = append(rows.Timeline, TimelineRow{
				RunID:      runID,
				TrialID:    res.TrialID,
				Lane:       lane,
				Seq:        uint32(i),
				OffsetMs:   e.OffsetMillis,
				Name:       e.Name,
				Value:      e.Value.String(),
				Unresolved: flag(e.Unresolved),
			})
		}
	}

	duration, _ := meta.DurationMillis()
	rows.Trial = TrialRow{
		RunID:            runID,
		TrialID:          res.TrialID,
		Test:             meta.Test,
		Participant:      meta.Participant,
		StartedAt:        start.Time(),
		EndedAt:          meta.EndTime.Instant().Time(),
		DurationMs:       duration,
		FixationsCount:   uint32(len(res.Fixations)),
		ClicksCount:      uint32(len(res.Lanes[timeline.LaneClicks])),
		ScrollsCount:     uint32(len(res.Lanes[timeline.LaneScrolls])),
		AverageDuration:  res.AverageDuration,
		AverageAmplitude: res.AverageAmplitude,
		Warnings:         append([]string{}, res.Warnings...),
		AnalyzedAt:       analyzedAt,
	}
	for _, lane := range laneOrder {
		rows.Trial.EventsCount += uint32(len(res.Lanes[lane]))
	}

	return rows
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
