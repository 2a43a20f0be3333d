package engine

import (
	"github.com/ivlev/keyframer/internal/camera"
	"github.com/ivlev/keyframer/internal/director"
)

// DefaultWaypoints is the tour written by -generate
var DefaultWaypoints = []director.Waypoint{
	{Name: "Moscow", Lookat: camera.Position{Lat: 55.7558, Lon: 37.6173}, Range: 60000},
	{Name: "Saint Petersburg", Lookat: camera.Position{Lat: 59.9343, Lon: 30.3351}, Range: 40000},
	{Name: "Kazan", Lookat: camera.Position{Lat: 55.7961, Lon: 49.1064}, Range: 30000},
	{Name: "Vladivostok", Lookat: camera.Position{Lat: 43.1155, Lon: 131.8855}, Range: 50000},
}
