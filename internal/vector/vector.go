// Package vector implements the immutable value types animated by the engine.
package vector

import (
	"fmt"
	"math"
)

// Kind identifies the dimensionality of a Vector.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindVec2
	KindVec3
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Dim returns the number of components of vectors of this kind.
func (k Kind) Dim() int {
	switch k {
	case KindScalar:
		return 1
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	}
	return 0
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "scalar":
		return KindScalar, nil
	case "vec2":
		return KindVec2, nil
	case "vec3":
		return KindVec3, nil
	}
	return 0, fmt.Errorf("unknown vector kind: %s", s)
}

// Vector is an immutable value that can be interpolated.
// Arithmetic between vectors of different kinds panics.
type Vector interface {
	Kind() Kind
	Add(w Vector) Vector
	Scale(s float64) Vector
	DistanceTo(w Vector) float64
	Components() []float64
}

// Scalar is a one-component vector.
type Scalar float64

// Vec2 is a two-component vector, e.g. latitude/longitude.
type Vec2 struct{ X, Y float64 }

// Vec3 is a three-component vector, e.g. latitude/longitude/elevation.
type Vec3 struct{ X, Y, Z float64 }

func (Scalar) Kind() Kind { return KindScalar }
func (Vec2) Kind() Kind   { return KindVec2 }
func (Vec3) Kind() Kind   { return KindVec3 }

func (v Scalar) Add(w Vector) Vector { return v + must[Scalar](w) }
func (v Vec2) Add(w Vector) Vector {
	u := must[Vec2](w)
	return Vec2{v.X + u.X, v.Y + u.Y}
}
func (v Vec3) Add(w Vector) Vector {
	u := must[Vec3](w)
	return Vec3{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

func (v Scalar) Scale(s float64) Vector { return Scalar(float64(v) * s) }
func (v Vec2) Scale(s float64) Vector   { return Vec2{v.X * s, v.Y * s} }
func (v Vec3) Scale(s float64) Vector   { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Scalar) DistanceTo(w Vector) float64 { return math.Abs(float64(must[Scalar](w) - v)) }
func (v Vec2) DistanceTo(w Vector) float64 {
	u := must[Vec2](w)
	return math.Hypot(u.X-v.X, u.Y-v.Y)
}
func (v Vec3) DistanceTo(w Vector) float64 {
	u := must[Vec3](w)
	dx, dy, dz := u.X-v.X, u.Y-v.Y, u.Z-v.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Scalar) Components() []float64 { return []float64{float64(v)} }
func (v Vec2) Components() []float64   { return []float64{v.X, v.Y} }
func (v Vec3) Components() []float64   { return []float64{v.X, v.Y, v.Z} }

func must[T Vector](w Vector) T {
	u, ok := w.(T)
	if !ok {
		var zero T
		if w == nil {
			panic(fmt.Sprintf("vector: %v combined with nil vector", zero.Kind()))
		}
		panic(fmt.Sprintf("vector: kind mismatch: %v and %v", zero.Kind(), w.Kind()))
	}
	return u
}

// New builds a vector of kind k from its components.
func New(k Kind, c []float64) (Vector, error) {
	if k.Dim() == 0 {
		return nil, fmt.Errorf("unknown vector kind: %v", k)
	}
	if len(c) != k.Dim() {
		return nil, fmt.Errorf("%v needs %d components, got %d", k, k.Dim(), len(c))
	}
	switch k {
	case KindScalar:
		return Scalar(c[0]), nil
	case KindVec2:
		return Vec2{c[0], c[1]}, nil
	default:
		return Vec3{c[0], c[1], c[2]}, nil
	}
}

// Zero returns the zero vector of kind k.
func Zero(k Kind) Vector {
	v, err := New(k, make([]float64, k.Dim()))
	if err != nil {
		panic(err)
	}
	return v
}

// Sub returns v - w.
func Sub(v, w Vector) Vector {
	return v.Add(w.Scale(-1))
}

// Lerp returns v + (w - v)·t.
func Lerp(v, w Vector, t float64) Vector {
	if t == 0 {
		return v
	}
	return v.Add(Sub(w, v).Scale(t))
}

// Map applies f to every component of v.
func Map(v Vector, f func(i int, x float64) float64) Vector {
	c := v.Components()
	for i := range c {
		c[i] = f(i, c[i])
	}
	u, err := New(v.Kind(), c)
	if err != nil {
		panic(err)
	}
	return u
}
