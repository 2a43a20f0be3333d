// Package camera defines the animatable globe camera and its trajectories.
package camera

import (
	"errors"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/camerapath"
	"github.com/ivlev/keyframer/internal/interp"
	"github.com/ivlev/keyframer/internal/vector"
)

// Position is a geographic position in degrees and metres.
type Position struct {
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	Elevation float64 `yaml:"elevation"`
}

func (p Position) Vec3() vector.Vec3 {
	return vector.Vec3{X: p.Lat, Y: p.Lon, Z: p.Elevation}
}

// State is the camera at one moment.
type State struct {
	Eye         Position `yaml:"eye"`
	Lookat      Position `yaml:"lookat"`
	Roll        float64  `yaml:"roll"`
	FieldOfView float64  `yaml:"fov"`
}

// DefaultState looks straight down at 0,0 from ten thousand kilometres.
func DefaultState() State {
	return State{
		Eye:         Position{Elevation: 1e7},
		FieldOfView: 45,
	}
}

// Camera owns the animatable parameters of a globe camera.
type Camera struct {
	Name string

	EyeLat, EyeLon, EyeElevation          *animation.Parameter
	LookatLat, LookatLon, LookatElevation *animation.Parameter
	Roll, FieldOfView                     *animation.Parameter
}

func New(name string) *Camera {
	def := DefaultState()
	param := func(id, display string, angular bool, v float64) *animation.Parameter {
		return &animation.Parameter{
			ID:      name + "." + id,
			Name:    display,
			Owner:   name,
			Kind:    vector.KindScalar,
			Angular: angular,
			Default: vector.Scalar(v),
		}
	}

	return &Camera{
		Name:            name,
		EyeLat:          param("eye.lat", "Eye latitude", false, def.Eye.Lat),
		EyeLon:          param("eye.lon", "Eye longitude", true, def.Eye.Lon),
		EyeElevation:    param("eye.elevation", "Eye elevation", false, def.Eye.Elevation),
		LookatLat:       param("lookat.lat", "Look-at latitude", false, def.Lookat.Lat),
		LookatLon:       param("lookat.lon", "Look-at longitude", true, def.Lookat.Lon),
		LookatElevation: param("lookat.elevation", "Look-at elevation", false, def.Lookat.Elevation),
		Roll:            param("roll", "Roll", true, def.Roll),
		FieldOfView:     param("fov", "Field of view", false, def.FieldOfView),
	}
}

type binding struct {
	param *animation.Parameter
	field *float64
}

func (c *Camera) bind(s *State) []binding {
	return []binding{
		{c.EyeLat, &s.Eye.Lat},
		{c.EyeLon, &s.Eye.Lon},
		{c.EyeElevation, &s.Eye.Elevation},
		{c.LookatLat, &s.Lookat.Lat},
		{c.LookatLon, &s.Lookat.Lon},
		{c.LookatElevation, &s.Lookat.Elevation},
		{c.Roll, &s.Roll},
		{c.FieldOfView, &s.FieldOfView},
	}
}

// Parameters returns every animatable parameter of the camera.
func (c *Camera) Parameters() []*animation.Parameter {
	var s State
	bs := c.bind(&s)
	out := make([]*animation.Parameter, len(bs))
	for i, b := range bs {
		out[i] = b.param
	}
	return out
}

// Register adds the camera parameters to a.
func (c *Camera) Register(a *animation.Animation) error {
	return a.Update(func(tx *animation.Tx) error {
		for _, p := range c.Parameters() {
			if err := tx.Register(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// KeyState arms every camera parameter at frame with the values of s.
func (c *Camera) KeyState(a *animation.Animation, frame int, s State) error {
	return a.Update(func(tx *animation.Tx) error {
		return c.Key(tx, frame, s)
	})
}

// Key is KeyState inside an existing transaction.
func (c *Camera) Key(tx *animation.Tx, frame int, s State) error {
	for _, b := range c.bind(&s) {
		if err := tx.AddOrReplaceValue(b.param, frame, vector.Scalar(*b.field)); err != nil {
			return err
		}
	}
	return nil
}

// StateAtFrame evaluates the camera at frame. Parameters without control
// points take their default value.
func (c *Camera) StateAtFrame(ic *interp.Context, tl animation.Timeline, frame int) (State, error) {
	var s State
	snap := tl.Snapshot()
	for _, b := range c.bind(&s) {
		v, err := ic.ValueAtFrame(snap, b.param, frame)
		if errors.Is(err, interp.ErrNoKeyFrames) && b.param.Default != nil {
			v, err = b.param.Default, nil
		}
		if err != nil {
			return State{}, err
		}
		*b.field = float64(v.(vector.Scalar))
	}
	return s, nil
}

// Apply moves current to frame. Disabled parameters and parameters without
// control points keep their current value.
func (c *Camera) Apply(ic *interp.Context, tl animation.Timeline, frame int, current State) (State, error) {
	snap := tl.Snapshot()
	s := current
	for _, b := range c.bind(&s) {
		if !snap.Enabled(b.param) || len(snap.ControlPoints(b.param)) == 0 {
			continue
		}
		v, err := ic.ValueAtFrame(snap, b.param, frame)
		if err != nil {
			return current, err
		}
		*b.field = float64(v.(vector.Scalar))
	}
	return s, nil
}

// LookatPath samples the look-at position. With a nil globe positions are
// geographic (lat, lon, elevation); otherwise they are world points.
func (c *Camera) LookatPath(globe *Globe, opts ...camerapath.Option) *camerapath.Sampler {
	return camerapath.New(c.Name+".lookat"+globe.suffix(),
		[]*animation.Parameter{c.LookatLat, c.LookatLon, c.LookatElevation},
		globe.projection(), append(opts[:len(opts):len(opts)], camerapath.WithVariant(globe.variant()))...)
}

// EyePath samples the eye position, see LookatPath.
func (c *Camera) EyePath(globe *Globe, opts ...camerapath.Option) *camerapath.Sampler {
	return camerapath.New(c.Name+".eye"+globe.suffix(),
		[]*animation.Parameter{c.EyeLat, c.EyeLon, c.EyeElevation},
		globe.projection(), append(opts[:len(opts):len(opts)], camerapath.WithVariant(globe.variant()))...)
}
