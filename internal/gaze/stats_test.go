package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageDuration(t *testing.T) {
	assert.Equal(t, float64(0), AverageDuration(nil))
	assert.Equal(t, float64(0), AverageDuration([]CompensatedFixation{}))
	assert.Equal(t, float64(15), AverageDuration([]CompensatedFixation{{Duration: 10}, {Duration: 20}}))
}

func TestAverageAmplitude(t *testing.T) {
	assert.Equal(t, float64(0), AverageAmplitude(nil))
	assert.InDelta(t, 2.0, AverageAmplitude([]Saccade{{Amplitude: 1}, {Amplitude: 2}, {Amplitude: 3}}), 1e-9)
}
