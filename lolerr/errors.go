// Package lolerr defines the error kinds shared by the codecs and the
// animation pipeline.
package lolerr

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidFormat is returned when a magic or version field is not accepted.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrTruncatedInput is returned when the input ends before a record is complete.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrInconsistentTopology is returned for parent cycles and out of range parents.
	ErrInconsistentTopology = errors.New("inconsistent topology")
	// ErrInconsistentFrames is returned when animation bones disagree on frame count.
	ErrInconsistentFrames = errors.New("inconsistent frame count")
	// ErrDegenerateInfluence is returned when a vertex's weights sum to zero
	// or skinning produces a non-finite position or normal.
	ErrDegenerateInfluence = errors.New("degenerate influence")
	// ErrAnomalousIndex is returned when an influence index maps to no bone.
	ErrAnomalousIndex = errors.New("anomalous bone index")
)

// AnomalyError is a per-vertex problem that lenient conversion recovers from.
// Fallback names the value substituted when the conversion continues.
type AnomalyError struct {
	Kind      error
	Vertex    int // -1 if not tied to a vertex
	Influence int // -1 if not tied to an influence slot
	Raw       int
	Fallback  string
}

func (e *AnomalyError) Error() string {
	if e.Vertex < 0 {
		return fmt.Sprintf("%v: raw=%d, fallback to %s", e.Kind, e.Raw, e.Fallback)
	}
	if e.Influence < 0 {
		return fmt.Sprintf("%v: vertex %d, fallback to %s", e.Kind, e.Vertex, e.Fallback)
	}
	return fmt.Sprintf("%v: vertex %d influence %d raw=%d, fallback to %s", e.Kind, e.Vertex, e.Influence, e.Raw, e.Fallback)
}

func (e *AnomalyError) Unwrap() error {
	return e.Kind
}

// Is reports whether err is of the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
