package interp

import (
	"math"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/vector"
)

// segment holds the control points around the span [f1, f2]. The outer
// neighbours are absent at the ends of the track. For angular parameters
// every value is unwrapped relative to its predecessor so the curve follows
// the shorter arc.
type segment struct {
	f0, f1, f2, f3 float64
	v0, v1, v2, v3 vector.Vector
}

func newSegment(cps []animation.ControlPoint, a int, angular bool) segment {
	b := a + 1
	s := segment{
		f1: float64(cps[a].Frame),
		f2: float64(cps[b].Frame),
		v1: cps[a].Value,
		v2: cps[b].Value,
	}
	if angular {
		s.v2 = unwrap(s.v2, s.v1)
	}
	if a > 0 {
		s.f0, s.v0 = float64(cps[a-1].Frame), cps[a-1].Value
		if angular {
			s.v0 = unwrap(s.v0, s.v1)
		}
	}
	if b+1 < len(cps) {
		s.f3, s.v3 = float64(cps[b+1].Frame), cps[b+1].Value
		if angular {
			s.v3 = unwrap(s.v3, s.v2)
		}
	}
	return s
}

// tangents returns the per-frame tangents at both ends of the segment.
func (s segment) tangents(mode Mode) (m1, m2 vector.Vector) {
	d := secant(s.v1, s.v2, s.f2-s.f1)

	if mode == Monotone {
		m1, m2 = d, d
		if s.v0 != nil {
			m1 = harmonicTangent(secant(s.v0, s.v1, s.f1-s.f0), d, s.f1-s.f0, s.f2-s.f1)
		}
		if s.v3 != nil {
			m2 = harmonicTangent(d, secant(s.v2, s.v3, s.f3-s.f2), s.f2-s.f1, s.f3-s.f2)
		}
		return m1, m2
	}

	// Central differences inside the track, one-sided at its ends
	m1, m2 = d, d
	if s.v0 != nil {
		m1 = secant(s.v0, s.v2, s.f2-s.f0)
	}
	if s.v3 != nil {
		m2 = secant(s.v1, s.v3, s.f3-s.f1)
	}
	return m1, m2
}

func secant(v, w vector.Vector, h float64) vector.Vector {
	return vector.Sub(w, v).Scale(1 / h)
}

// harmonicTangent is the Fritsch-Butland tangent at a point with incoming
// secant dl over hl frames and outgoing secant dr over hr frames. It is zero
// at local extrema, which keeps every segment monotone.
func harmonicTangent(dl, dr vector.Vector, hl, hr float64) vector.Vector {
	r := dr.Components()
	return vector.Map(dl, func(i int, l float64) float64 {
		if l*r[i] <= 0 {
			return 0
		}
		w1 := 2*hr + hl
		w2 := hr + 2*hl
		return (w1 + w2) / (w1/l + w2/r[i])
	})
}

// unwrap shifts every component of v by whole turns so that it lies within
// half a turn of ref.
func unwrap(v, ref vector.Vector) vector.Vector {
	r := ref.Components()
	return vector.Map(v, func(i int, x float64) float64 {
		return x - 360*math.Round((x-r[i])/360)
	})
}

// normalizeDegrees maps x into [-180, 180).
func normalizeDegrees(x float64) float64 {
	return x - 360*math.Floor((x+180)/360)
}
