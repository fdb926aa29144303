// Package features implements the audio feature extraction pipeline and the
// bounded stream buffer that decouples extraction timing from render timing.
package features

import (
	"time"
)

// Value is a single feature value: either a scalar or a numeric array.
// A Value with a non-nil Vector is an array value; Scalar is ignored then.
// The vector field is never omitted: an empty array must still decode as an
// array, not collapse into a scalar zero.
type Value struct {
	Scalar float64   `json:"scalar,omitempty"`
	Vector []float64 `json:"vector"`
}

// ScalarValue wraps a scalar feature value.
func ScalarValue(v float64) Value {
	return Value{Scalar: v}
}

// VectorValue wraps an array feature value.
func VectorValue(v []float64) Value {
	return Value{Vector: v}
}

// IsVector reports whether the value carries an array.
func (v Value) IsVector() bool {
	return v.Vector != nil
}

// Mean collapses the value to a single scalar: the scalar itself, or the
// arithmetic mean of the array. Components use this when they only need a
// magnitude.
func (v Value) Mean() float64 {
	if !v.IsVector() {
		return v.Scalar
	}
	if len(v.Vector) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v.Vector {
		sum += x
	}
	return sum / float64(len(v.Vector))
}

// Vector is a merged set of named feature values for one audio window.
// Keys are unique per extraction cycle; on a collision the later extractor's
// value wins.
type Vector struct {
	Values    map[string]Value `json:"values"`
	Timestamp time.Duration    `json:"timestamp"` // source timestamp of the window
	FrameSeq  uint64           `json:"frame_seq"` // identifier of the source frame
}

// Scalar returns the collapsed scalar for a key, or the fallback when the
// key is absent.
func (v *Vector) Scalar(key string, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	val, ok := v.Values[key]
	if !ok {
		return fallback
	}
	return val.Mean()
}

// Array returns the array value for a key, or nil when the key is absent or
// scalar.
func (v *Vector) Array(key string) []float64 {
	if v == nil {
		return nil
	}
	val, ok := v.Values[key]
	if !ok || !val.IsVector() {
		return nil
	}
	return val.Vector
}

// Has reports whether the key is present.
func (v *Vector) Has(key string) bool {
	if v == nil {
		return false
	}
	_, ok := v.Values[key]
	return ok
}
