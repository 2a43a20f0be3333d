package camera

import (
	"fmt"
	"math"

	"github.com/ivlev/keyframer/internal/camerapath"
	"github.com/ivlev/keyframer/internal/vector"
)

// Globe converts geographic positions to world points.
type Globe struct {
	Radius float64
	// VerticalExaggeration scales elevations, 1 when zero.
	VerticalExaggeration float64
}

// Earth is a spherical globe with the WGS84 equatorial radius.
var Earth = Globe{Radius: 6378137}

// ComputePoint returns the world point of p. The y axis points to the north
// pole and the z axis through latitude 0, longitude 0.
func (g Globe) ComputePoint(p Position) vector.Vec3 {
	exaggeration := g.VerticalExaggeration
	if exaggeration == 0 {
		exaggeration = 1
	}
	r := g.Radius + p.Elevation*exaggeration
	lat := p.Lat * math.Pi / 180
	lon := p.Lon * math.Pi / 180
	cosLat := math.Cos(lat)

	return vector.Vec3{
		X: r * cosLat * math.Sin(lon),
		Y: r * math.Sin(lat),
		Z: r * cosLat * math.Cos(lon),
	}
}

func (g *Globe) projection() camerapath.Projection {
	if g == nil {
		return camerapath.Concat
	}
	globe := *g
	return camerapath.Then(camerapath.Concat, func(v vector.Vector) (vector.Vector, error) {
		c := v.Components()
		return globe.ComputePoint(Position{Lat: c[0], Lon: c[1], Elevation: c[2]}), nil
	})
}

func (g *Globe) suffix() string {
	if g == nil {
		return ""
	}
	return ".world"
}

// variant identifies the projection in path cache keys.
func (g *Globe) variant() string {
	if g == nil {
		return "geo"
	}
	return fmt.Sprintf("globe:%g:%g", g.Radius, g.VerticalExaggeration)
}
