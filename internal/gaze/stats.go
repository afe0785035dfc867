package gaze

// AverageDuration returns the mean fixation duration, or 0 for no fixations.
func AverageDuration(fixations []CompensatedFixation) float64 {
	return mean(fixations, func(f CompensatedFixation) float64 { return f.Duration })
}

// AverageAmplitude returns the mean saccade amplitude, or 0 for no saccades.
func AverageAmplitude(saccades []Saccade) float64 {
	return mean(saccades, func(s Saccade) float64 { return s.Amplitude })
}

func mean[T any](items []T, field func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += field(item)
	}
	return sum / float64(len(items))
}
