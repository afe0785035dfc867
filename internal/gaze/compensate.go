package gaze

import (
	"errors"
	"fmt"

	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/instant"
)

var (
	ErrOutOfOrder       = errors.New("stream is not ordered by timestamp")
	ErrInvalidTimestamp = errors.New("stream contains an invalid timestamp")
)

// sweep is the carry-over state of Compensate: the scroll position in effect
// and the index of the next scroll event not yet applied.
type sweep struct {
	offset float64
	cursor int
}

// applies reports whether a scroll event is already in effect for a fixation
// starting at t. Coincident timestamps do not apply.
func applies(scroll events.Scroll, t instant.Instant) bool {
	return scroll.Timestamp.Before(t)
}

// advance consumes every scroll event that precedes t.
// Scroll events with an invalid timestamp are consumed without effect.
func (s *sweep) advance(scrolls []events.Scroll, t instant.Instant) {
	if !t.Valid() {
		return
	}
	for s.cursor < len(scrolls) {
		next := scrolls[s.cursor]
		if next.Timestamp.Valid() {
			if !applies(next, t) {
				return
			}
			s.offset = next.Position
		}
		s.cursor++
	}
}

// Compensate shifts each fixation's Y by the scroll position in effect at its
// timestamp, in a single forward pass over both streams.
//
// Both fixations and scrolls must be ordered by timestamp; nothing is sorted
// here and out-of-order input silently produces wrong offsets. Use CheckOrder
// to validate untrusted streams first.
func Compensate(fixations []RawFixation, scrolls []events.Scroll) []CompensatedFixation {
	out := make([]CompensatedFixation, len(fixations))

	var s sweep
	for i, fix := range fixations {
		s.advance(scrolls, fix.Timestamp)
		out[i] = CompensatedFixation{
			Timestamp: fix.Timestamp,
			X:         fix.X,
			Y:         fix.Y + s.offset,
			Duration:  fix.Duration,
		}
	}
	return out
}

// CheckOrder verifies the Compensate precondition on both streams.
func CheckOrder(fixations []RawFixation, scrolls []events.Scroll) error {
	prev := instant.Invalid
	for i, fix := range fixations {
		if err := checkStep(prev, fix.Timestamp); err != nil {
			return fmt.Errorf("fixation %d: %w", i, err)
		}
		prev = fix.Timestamp
	}

	prev = instant.Invalid
	for i, scroll := range scrolls {
		if err := checkStep(prev, scroll.Timestamp); err != nil {
			return fmt.Errorf("scroll event %d: %w", i, err)
		}
		prev = scroll.Timestamp
	}
	return nil
}

func checkStep(prev, cur instant.Instant) error {
	if !cur.Valid() {
		return ErrInvalidTimestamp
	}
	if cur.Before(prev) {
		return ErrOutOfOrder
	}
	return nil
}
