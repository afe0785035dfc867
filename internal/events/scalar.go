package events

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ScalarKind tells which native type a Scalar holds.
type ScalarKind uint8

const (
	ScalarNone ScalarKind = iota
	ScalarString
	ScalarNumber
	ScalarBool
)

// Scalar is a string, number or bool payload value. Instrumentation events
// do not agree on a single type for values, so the native kind is kept.
type Scalar struct {
	kind ScalarKind
	s    string
	n    float64
	b    bool
}

func String(s string) Scalar  { return Scalar{kind: ScalarString, s: s} }
func Number(n float64) Scalar { return Scalar{kind: ScalarNumber, n: n} }
func Bool(b bool) Scalar      { return Scalar{kind: ScalarBool, b: b} }

// ScalarOf converts a decoded JSON value. Unsupported types give the empty Scalar.
func ScalarOf(v interface{}) Scalar {
	switch t := v.(type) {
	case string:
		return String(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case bool:
		return Bool(t)
	case Scalar:
		return t
	}
	return Scalar{}
}

func (s Scalar) Kind() ScalarKind { return s.kind }
func (s Scalar) IsZero() bool     { return s.kind == ScalarNone }

// String renders the value the way it is shown in tooltips.
func (s Scalar) String() string {
	switch s.kind {
	case ScalarString:
		return s.s
	case ScalarNumber:
		return strconv.FormatFloat(s.n, 'f', -1, 64)
	case ScalarBool:
		return strconv.FormatBool(s.b)
	}
	return ""
}

// Interface returns the native Go value, or nil for the empty Scalar.
func (s Scalar) Interface() interface{} {
	switch s.kind {
	case ScalarString:
		return s.s
	case ScalarNumber:
		return s.n
	case ScalarBool:
		return s.b
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Interface())
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Scalar{}
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ScalarOf(v)
	return nil
}
