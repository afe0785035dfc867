package gaze

import (
	"github.com/gosight/gazetrace/internal/instant"
)

// RawFixation is a fixation as exported by the eye tracker, in screen coordinates.
type RawFixation struct {
	Timestamp                 instant.Instant `json:"timestamp"`
	X                         float64         `json:"x"`
	Y                         float64         `json:"y"`
	Duration                  float64         `json:"duration"`
	SaccadicAmplitude         float64         `json:"saccadicAmplitude"`
	AbsoluteSaccadicDirection float64         `json:"absoluteSaccadicDirection"`
	RelativeSaccadicDirection float64         `json:"relativeSaccadicDirection"`
}

// CompensatedFixation is a fixation in page coordinates: Y includes the
// scroll offset in effect when the fixation started.
type CompensatedFixation struct {
	Timestamp instant.Instant `json:"timestamp"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Duration  float64         `json:"duration"`
}

// Saccade describes the eye movement that led to a fixation.
type Saccade struct {
	Timestamp     instant.Instant `json:"timestamp"`
	Amplitude     float64         `json:"amplitude"`
	AbsoluteAngle float64         `json:"absoluteAngle"`
	RelativeAngle float64         `json:"relativeAngle"`
}

// Saccades reprojects the saccadic fields of each fixation, one to one.
func Saccades(fixations []RawFixation) []Saccade {
	out := make([]Saccade, len(fixations))
	for i, fix := range fixations {
		out[i] = Saccade{
			Timestamp:     fix.Timestamp,
			Amplitude:     fix.SaccadicAmplitude,
			AbsoluteAngle: fix.AbsoluteSaccadicDirection,
			RelativeAngle: fix.RelativeSaccadicDirection,
		}
	}
	return out
}
