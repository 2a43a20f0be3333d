// Package animation stores the keyframe timeline of an animated scene.
//
// An Animation is the single unit of mutation. Every edit builds a new
// immutable Snapshot and publishes it atomically, so readers (path sampling,
// rendering) can run concurrently with the editor without ever observing a
// half-applied change.
package animation

import (
	"errors"
	"fmt"

	"github.com/ivlev/keyframer/internal/vector"
)

var (
	ErrInvalidFrame       = errors.New("invalid frame")
	ErrKindMismatch       = errors.New("value kind does not match parameter")
	ErrDuplicateParameter = errors.New("duplicate parameter id")
	ErrKeyFrameNotFound   = errors.New("key frame not found")
	ErrNilParameter       = errors.New("nil parameter")
)

// Parameter is a named animatable channel of a scene entity.
// It is a lookup key into the timeline and holds no values itself.
type Parameter struct {
	ID    string
	Name  string
	Owner string // owning entity, e.g. "camera"
	Kind  vector.Kind

	// Angular parameters hold degrees and interpolate along the shorter arc.
	Angular bool

	// Default is used by scene entities while the parameter has no control
	// points. The interpolator never falls back to it.
	Default vector.Vector
}

func (p *Parameter) String() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func (p *Parameter) check(v vector.Vector) error {
	if v == nil || v.Kind() != p.Kind {
		var got vector.Kind
		if v != nil {
			got = v.Kind()
		}
		return fmt.Errorf("%w: %s expects %v, got %v", ErrKindMismatch, p.ID, p.Kind, got)
	}
	return nil
}

// ParameterValue is one parameter's authored value at one key frame.
type ParameterValue struct {
	Value vector.Vector
	Owner *Parameter
}

// ControlPoint is a frame at which a parameter has an explicit value.
type ControlPoint struct {
	Frame int
	Value vector.Vector
}
