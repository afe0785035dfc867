package events

import (
	"github.com/gosight/gazetrace/internal/instant"
)

// Kind is the discriminant of a log record.
type Kind string

const (
	KindNavigation   Kind = "veroNavigation"
	KindDataChange   Kind = "veroNavigationData"
	KindUIAdjustment Kind = "uiAdjustment"
	KindClicked      Kind = "clicked"
	KindScroll       Kind = "scroll"
)

// Kinds lists every known category in a stable order.
var Kinds = []Kind{KindNavigation, KindDataChange, KindUIAdjustment, KindClicked, KindScroll}

// Known reports whether k is one of the classified categories.
func (k Kind) Known() bool {
	switch k {
	case KindNavigation, KindDataChange, KindUIAdjustment, KindClicked, KindScroll:
		return true
	}
	return false
}

// Record is a single entry of a trial event log, as supplied by the data service.
type Record struct {
	Type      string            `json:"type"`
	Timestamp instant.Timestamp `json:"timestamp"`
	Target    string            `json:"target,omitempty"`
	Variable  string            `json:"variable,omitempty"`
	Value     Scalar            `json:"value,omitzero"`
	Enable    Scalar            `json:"enable,omitzero"`
	Index     int               `json:"index,omitempty"`
	Position  float64           `json:"position,omitempty"`
}

// Normalize returns a copy of r with a canonical timestamp.
func (r Record) Normalize() Record {
	r.Timestamp = instant.Normalize(r.Timestamp)
	return r
}

// NormalizeAll returns normalized copies of records; the input is not modified.
func NormalizeAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Normalize()
	}
	return out
}

// Event is one of Navigation, DataChange, UIAdjustment, Clicked or Scroll.
type Event interface {
	Kind() Kind
	At() instant.Instant
	event()
}

type Navigation struct {
	Timestamp instant.Instant `json:"timestamp"`
	Target    string          `json:"target"`
}

type DataChange struct {
	Timestamp instant.Instant `json:"timestamp"`
	Variable  string          `json:"variable"`
	Value     Scalar          `json:"value"`
}

type UIAdjustment struct {
	Timestamp instant.Instant `json:"timestamp"`
	Target    string          `json:"target"`
	Enabled   Scalar          `json:"enabled"`
}

type Clicked struct {
	Timestamp instant.Instant `json:"timestamp"`
	Index     int             `json:"index"`
}

type Scroll struct {
	Timestamp instant.Instant `json:"timestamp"`
	Position  float64         `json:"position"`
}

func (Navigation) Kind() Kind   { return KindNavigation }
func (DataChange) Kind() Kind   { return KindDataChange }
func (UIAdjustment) Kind() Kind { return KindUIAdjustment }
func (Clicked) Kind() Kind      { return KindClicked }
func (Scroll) Kind() Kind       { return KindScroll }

func (e Navigation) At() instant.Instant   { return e.Timestamp }
func (e DataChange) At() instant.Instant   { return e.Timestamp }
func (e UIAdjustment) At() instant.Instant { return e.Timestamp }
func (e Clicked) At() instant.Instant      { return e.Timestamp }
func (e Scroll) At() instant.Instant       { return e.Timestamp }

func (Navigation) event()   {}
func (DataChange) event()   {}
func (UIAdjustment) event() {}
func (Clicked) event()      {}
func (Scroll) event()       {}

// FromRecord maps r to its category payload. ok is false for unknown discriminants.
func FromRecord(r Record) (e Event, ok bool) {
	at := r.Timestamp.Instant()

	switch Kind(r.Type) {
	case KindNavigation:
		return Navigation{Timestamp: at, Target: r.Target}, true
	case KindDataChange:
		return DataChange{Timestamp: at, Variable: r.Variable, Value: r.Value}, true
	case KindUIAdjustment:
		return UIAdjustment{Timestamp: at, Target: r.Target, Enabled: r.Enable}, true
	case KindClicked:
		return Clicked{Timestamp: at, Index: r.Index}, true
	case KindScroll:
		return Scroll{Timestamp: at, Position: r.Position}, true
	}
	return nil, false
}
