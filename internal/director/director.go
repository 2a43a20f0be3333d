package director

import (
	"fmt"
	"math"

	"github.com/sgostarter/i/l"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/camera"
)

// Waypoint is a place the camera visits during a fly-through
type Waypoint struct {
	Name   string          `yaml:"name"`
	Lookat camera.Position `yaml:"lookat"`
	Range  float64         `yaml:"range"` // Eye distance above the look-at point (metres)
}

// Director generates camera fly-through key frames from waypoints
type Director struct {
	FPS           float64
	MinDwell      float64 // Minimum time per waypoint (seconds)
	MaxDwell      float64 // Maximum time per waypoint (seconds)
	MinRange      float64 // Closest eye distance (metres)
	MaxRange      float64 // Farthest eye distance (metres)
	OverviewRange float64 // Eye distance of the intro and outro shots

	logger l.Wrapper
}

// NewDirector creates a new Director with default settings
func NewDirector(fps float64, logger l.Wrapper) *Director {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}
	return &Director{
		FPS:           fps,
		MinDwell:      1.0,
		MaxDwell:      3.0,
		MinRange:      500,
		MaxRange:      2e6,
		OverviewRange: 5e6,
		logger:        logger.WithFields(l.StringField(l.ClsKey, "director")),
	}
}

// Generate creates a project holding a fly-through of cam over waypoints
func (d *Director) Generate(name string, cam *camera.Camera, waypoints []Waypoint, totalDuration float64) (*Project, error) {
	a := animation.New()
	if err := cam.Register(a); err != nil {
		return nil, err
	}
	if _, err := d.FlyThrough(a, cam, waypoints, totalDuration); err != nil {
		return nil, err
	}
	return Encode(a, name, d.FPS), nil
}

// FlyThrough keys cam on a in one update: an overview shot, every waypoint
// in order, and the overview again. It returns the frames that were keyed.
func (d *Director) FlyThrough(a *animation.Animation, cam *camera.Camera, waypoints []Waypoint, totalDuration float64) ([]int, error) {
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("no waypoints")
	}
	if d.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %v", d.FPS)
	}

	dwellTime := d.calculateDwellTime(totalDuration, len(waypoints))
	states := d.generateStates(waypoints)

	frames := make([]int, 0, len(states))
	times := make([]float64, 0, len(states))
	times = append(times, 0.0)
	currentTime := 1.0 // 1s intro
	for range waypoints {
		times = append(times, currentTime)
		currentTime += dwellTime
	}
	times = append(times, currentTime)

	err := a.Update(func(tx *animation.Tx) error {
		for i, s := range states {
			frame := int(math.Round(times[i] * d.FPS))
			if n := len(frames); n > 0 && frame <= frames[n-1] {
				frame = frames[n-1] + 1
			}
			if err := cam.Key(tx, frame, s); err != nil {
				return err
			}
			frames = append(frames, frame)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(l.IntField("waypoints", len(waypoints)), l.IntField("lastFrame", frames[len(frames)-1])).
		Debug("fly-through keyed")
	return frames, nil
}

// calculateDwellTime determines how long to stay at each waypoint
func (d *Director) calculateDwellTime(totalDuration float64, count int) float64 {
	// Reserve time for intro/outro (overview)
	introOutroDuration := 2.0
	availableDuration := totalDuration - introOutroDuration

	if availableDuration <= 0 {
		availableDuration = totalDuration
	}

	dwellTime := availableDuration / float64(count)

	if dwellTime < d.MinDwell {
		dwellTime = d.MinDwell
	}
	if dwellTime > d.MaxDwell {
		dwellTime = d.MaxDwell
	}

	return dwellTime
}

func (d *Director) generateStates(waypoints []Waypoint) []camera.State {
	center := d.calculateCenter(waypoints)
	overview := d.stateAt(center, d.OverviewRange)

	states := []camera.State{overview}
	for _, w := range waypoints {
		states = append(states, d.stateAt(w.Lookat, d.calculateRange(w.Range)))
	}
	return append(states, overview)
}

// stateAt looks straight down at lookat from rng metres above it
func (d *Director) stateAt(lookat camera.Position, rng float64) camera.State {
	s := camera.DefaultState()
	s.Lookat = lookat
	s.Eye = camera.Position{
		Lat:       lookat.Lat,
		Lon:       lookat.Lon,
		Elevation: lookat.Elevation + rng,
	}
	return s
}

// calculateRange clamps the requested eye distance
func (d *Director) calculateRange(rng float64) float64 {
	if rng <= 0 {
		return d.MaxRange
	}
	return math.Max(d.MinRange, math.Min(rng, d.MaxRange))
}

// calculateCenter averages the waypoints on the sphere so that longitudes
// on both sides of the antimeridian meet in the middle
func (d *Director) calculateCenter(waypoints []Waypoint) camera.Position {
	var lat, sinLon, cosLon float64
	for _, w := range waypoints {
		lat += w.Lookat.Lat
		rad := w.Lookat.Lon * math.Pi / 180
		sinLon += math.Sin(rad)
		cosLon += math.Cos(rad)
	}
	n := float64(len(waypoints))
	return camera.Position{
		Lat: lat / n,
		Lon: math.Atan2(sinLon, cosLon) * 180 / math.Pi,
	}
}
