package renderer

import (
	"fmt"
	"math"
	"strings"

	"github.com/ivlev/keyframer/internal/camerapath"
)

// PiecewiseExpression exports one component of a sampled path as an FFmpeg
// expression of the output frame number "on". Between samples the value is
// linear; before the first and after the last sample it is held.
func PiecewiseExpression(path *camerapath.Path, component int) (string, error) {
	if path == nil || path.Len() == 0 {
		return "", fmt.Errorf("empty path")
	}
	values := make([]float64, path.Len())
	for i, pos := range path.Positions {
		c := pos.Components()
		if component < 0 || component >= len(c) {
			return "", fmt.Errorf("path %s has no component %d", path.Name, component)
		}
		values[i] = c[component]
	}
	return buildExpression(path.Frames, values), nil
}

// GenerateZoomPanFilter creates an FFmpeg zoompan filter that flies over an
// equirectangular map image of mapW x mapH pixels following a geographic eye
// path (lat, lon, elevation). refElevation is the elevation that shows the
// whole map.
func GenerateZoomPanFilter(eye *camerapath.Path, mapW, mapH, width, height int, fps float64, refElevation float64) (string, error) {
	if eye == nil || eye.Len() == 0 {
		return "", fmt.Errorf("empty path")
	}

	n := eye.Len()
	zooms := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, pos := range eye.Positions {
		c := pos.Components()
		if len(c) < 3 {
			return "", fmt.Errorf("path %s is not a geographic path", eye.Name)
		}
		zooms[i] = calculateZoom(c[2], refElevation)
		xs[i] = panOffset((c[1]+180)/360*float64(mapW), float64(mapW), zooms[i])
		ys[i] = panOffset((90-c[0])/180*float64(mapH), float64(mapH), zooms[i])
	}

	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=1:s=%dx%d:fps=%g",
		buildExpression(eye.Frames, zooms),
		buildExpression(eye.Frames, xs),
		buildExpression(eye.Frames, ys),
		width, height, fps), nil
}

// calculateZoom maps eye elevation to a zoompan zoom factor
func calculateZoom(elevation, refElevation float64) float64 {
	if elevation <= 0 || refElevation <= 0 {
		return 10.0
	}
	zoom := refElevation / elevation

	// zoompan accepts 1..10
	return math.Max(1.0, math.Min(zoom, 10.0))
}

// panOffset keeps center in the middle of the visible window
func panOffset(center, dimension, zoom float64) float64 {
	window := dimension / zoom
	return math.Max(0, math.Min(center-window/2, dimension-window))
}

// buildExpression creates a piecewise linear expression. Samples are joined
// by nested ifs: if(lte(on,f1),v0+(on-f0)/(f1-f0)*(v1-v0),if(...,vn)).
func buildExpression(frames []int, values []float64) string {
	if len(values) == 1 {
		return fmt.Sprintf("%.6f", values[0])
	}

	var expr strings.Builder
	opened := len(values) - 1
	if frames[0] > 0 {
		fmt.Fprintf(&expr, "if(lt(on,%d),%.6f,", frames[0], values[0])
		opened++
	}
	for i := 0; i < len(values)-1; i++ {
		startFrame, endFrame := frames[i], frames[i+1]
		fmt.Fprintf(&expr, "if(lte(on,%d),%.6f+(on-%d)/%d*(%.6f-%.6f),",
			endFrame, values[i], startFrame, endFrame-startFrame, values[i+1], values[i])
	}
	fmt.Fprintf(&expr, "%.6f", values[len(values)-1])
	expr.WriteString(strings.Repeat(")", opened))

	return expr.String()
}
