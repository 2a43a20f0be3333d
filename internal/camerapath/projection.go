package camerapath

import (
	"fmt"

	"github.com/ivlev/keyframer/internal/vector"
)

// Projection combines one value per tracked parameter, in tracking order,
// into the position drawn for a sampled frame. The values slice is reused
// between calls and must not be retained.
type Projection func(values []vector.Vector) (vector.Vector, error)

// Identity projects a single tracked parameter onto itself.
func Identity(values []vector.Vector) (vector.Vector, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("identity projection needs 1 value, got %d", len(values))
	}
	return values[0], nil
}

// Concat joins the components of all values into one vector of up to three
// components, e.g. latitude, longitude and elevation scalars into a Vec3.
func Concat(values []vector.Vector) (vector.Vector, error) {
	var c []float64
	for _, v := range values {
		c = append(c, v.Components()...)
	}
	switch len(c) {
	case 1:
		return vector.New(vector.KindScalar, c)
	case 2:
		return vector.New(vector.KindVec2, c)
	case 3:
		return vector.New(vector.KindVec3, c)
	}
	return nil, fmt.Errorf("cannot concat %d components into a vector", len(c))
}

// Then applies f to the position produced by p.
func Then(p Projection, f func(vector.Vector) (vector.Vector, error)) Projection {
	return func(values []vector.Vector) (vector.Vector, error) {
		v, err := p(values)
		if err != nil {
			return nil, err
		}
		return f(v)
	}
}
