// Package interp computes parameter values between key frames.
package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/vector"
)

// ErrNoKeyFrames is returned when a parameter has no control points yet.
var ErrNoKeyFrames = errors.New("no key frames for parameter")

// Mode selects the curve used between control points.
type Mode int

const (
	// Hermite is a cubic Hermite curve with central-difference tangents
	// (non-uniform Catmull-Rom). It is C1 and passes through every point.
	Hermite Mode = iota
	// Linear joins control points with straight segments.
	Linear
	// Monotone is a Hermite curve with Fritsch-Butland tangents; it never
	// overshoots the control values of a segment.
	Monotone
)

func (m Mode) String() string {
	switch m {
	case Hermite:
		return "hermite"
	case Linear:
		return "linear"
	case Monotone:
		return "monotone"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "hermite", "":
		return Hermite, nil
	case "linear":
		return Linear, nil
	case "monotone":
		return Monotone, nil
	}
	return 0, fmt.Errorf("unknown interpolation mode: %s", s)
}

// Context evaluates parameters of an animation at arbitrary frames.
// Without WithCache it is stateless and safe for concurrent use.
type Context struct {
	mode  Mode
	cache *frameCache
}

type Option func(*Context)

func WithMode(m Mode) Option {
	return func(c *Context) { c.mode = m }
}

// WithCache memoises values per (parameter, frame) for the revision being
// evaluated. The cache is discarded as soon as a newer revision is queried.
func WithCache() Option {
	return func(c *Context) { c.cache = &frameCache{} }
}

func NewContext(opts ...Option) *Context {
	c := &Context{mode: Hermite}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) Mode() Mode { return c.mode }

// ValueAtFrame returns the value of p at frame.
func (c *Context) ValueAtFrame(tl animation.Timeline, p *animation.Parameter, frame int) (vector.Vector, error) {
	if p == nil {
		return nil, animation.ErrNilParameter
	}
	if frame < 0 {
		return nil, fmt.Errorf("%w: %d", animation.ErrInvalidFrame, frame)
	}

	snap := tl.Snapshot()
	if c.cache != nil {
		if v, ok := c.cache.get(snap, p.ID, frame); ok {
			return v, nil
		}
	}

	v, err := c.evaluate(snap.ControlPoints(p), p, float64(frame))
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.put(snap, p.ID, frame, v)
	}
	return v, nil
}

// ValueAtTime returns the value of p at a playback time, which may fall
// between two frames.
func (c *Context) ValueAtTime(tl animation.Timeline, p *animation.Parameter, seconds float64, fps int) (vector.Vector, error) {
	if p == nil {
		return nil, animation.ErrNilParameter
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate: %d", fps)
	}
	x := seconds * float64(fps)
	if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("%w: %v", animation.ErrInvalidFrame, x)
	}
	return c.evaluate(tl.Snapshot().ControlPoints(p), p, x)
}

func (c *Context) evaluate(cps []animation.ControlPoint, p *animation.Parameter, x float64) (vector.Vector, error) {
	n := len(cps)
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyFrames, p.ID)
	}

	// Constant extrapolation outside the authored range
	if x <= float64(cps[0].Frame) {
		return cps[0].Value, nil
	}
	if x >= float64(cps[n-1].Frame) {
		return cps[n-1].Value, nil
	}

	b := sort.Search(n, func(i int) bool { return float64(cps[i].Frame) > x })
	a := b - 1
	if float64(cps[a].Frame) == x {
		return cps[a].Value, nil
	}

	fa, fb := float64(cps[a].Frame), float64(cps[b].Frame)
	if fb <= fa {
		panic(fmt.Sprintf("interp: control points of %s out of order at frames %v and %v", p.ID, fa, fb))
	}
	t := (x - fa) / (fb - fa)

	seg := newSegment(cps, a, p.Angular)

	var v vector.Vector
	if c.mode == Linear || n == 2 {
		v = vector.Lerp(seg.v1, seg.v2, t)
	} else {
		m1, m2 := seg.tangents(c.mode)
		v = hermite(seg.v1, m1, seg.v2, m2, fb-fa, t)
		if c.mode == Monotone {
			v = clampToSegment(v, seg.v1, seg.v2)
		}
	}

	if p.Angular {
		v = vector.Map(v, func(_ int, x float64) float64 { return normalizeDegrees(x) })
	}
	return v, nil
}

// clampToSegment keeps rounding in the Hermite basis from stepping past the
// segment's end values.
func clampToSegment(v, v1, v2 vector.Vector) vector.Vector {
	a, b := v1.Components(), v2.Components()
	return vector.Map(v, func(i int, x float64) float64 {
		return math.Max(math.Min(a[i], b[i]), math.Min(x, math.Max(a[i], b[i])))
	})
}

// hermite evaluates the cubic Hermite basis on a segment of length h whose
// end tangents m1 and m2 are expressed per frame.
func hermite(v1, m1, v2, m2 vector.Vector, h, t float64) vector.Vector {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	return v1.Scale(h00).
		Add(m1.Scale(h10 * h)).
		Add(v2.Scale(h01)).
		Add(m2.Scale(h11 * h))
}
