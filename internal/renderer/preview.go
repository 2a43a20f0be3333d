package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/keyframer/internal/camerapath"
	"github.com/ivlev/keyframer/internal/system"
	kvector "github.com/ivlev/keyframer/internal/vector"
)

// Style describes how one path is drawn
type Style struct {
	Color        color.RGBA
	MarkerColor  color.RGBA
	LineWidth    float64
	MarkerRadius float64
}

var DefaultStyles = []Style{
	{Color: color.RGBA{0x29, 0x80, 0xb9, 0xff}, MarkerColor: color.RGBA{0xe7, 0x4c, 0x3c, 0xff}, LineWidth: 2, MarkerRadius: 5},
	{Color: color.RGBA{0x27, 0xae, 0x60, 0xff}, MarkerColor: color.RGBA{0xf3, 0x9c, 0x12, 0xff}, LineWidth: 2, MarkerRadius: 5},
	{Color: color.RGBA{0x8e, 0x44, 0xad, 0xff}, MarkerColor: color.RGBA{0xd3, 0x54, 0x00, 0xff}, LineWidth: 2, MarkerRadius: 5},
}

// Preview rasterizes sampled paths into a top-down image
type Preview struct {
	Width, Height int
	Margin        float64
	Background    color.RGBA
	Styles        []Style

	// Axes selects the components drawn horizontally and vertically.
	// Scalar paths are always drawn as value over frame.
	Axes [2]int

	// Legend prints path names in the top-left corner
	Legend bool
}

func NewPreview(width, height int) *Preview {
	return &Preview{
		Width:      width,
		Height:     height,
		Margin:     24,
		Background: color.RGBA{0x10, 0x14, 0x1c, 0xff},
		Styles:     DefaultStyles,
		Axes:       [2]int{0, 1},
		Legend:     true,
	}
}

// Render draws every path with its key frame markers. The image comes from
// the shared pool; hand it back with Release when done.
func (p *Preview) Render(paths []*camerapath.Path) (*image.RGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", p.Width, p.Height)
	}

	vp, err := p.viewport(paths)
	if err != nil {
		return nil, err
	}

	dst := system.GetImage(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)

	z := vector.NewRasterizer(p.Width, p.Height)
	for i, path := range paths {
		style := p.style(i)

		z.Reset(p.Width, p.Height)
		z.DrawOp = draw.Over
		for j := 1; j < path.Len(); j++ {
			x0, y0 := vp.point(p.components(path, j-1))
			x1, y1 := vp.point(p.components(path, j))
			strokeSegment(z, x0, y0, x1, y1, style.LineWidth)
		}
		z.Draw(dst, dst.Bounds(), image.NewUniform(style.Color), image.Point{})

		z.Reset(p.Width, p.Height)
		z.DrawOp = draw.Over
		for _, j := range path.KeyFrameIndices() {
			x, y := vp.point(p.components(path, j))
			circle(z, x, y, style.MarkerRadius)
		}
		z.Draw(dst, dst.Bounds(), image.NewUniform(style.MarkerColor), image.Point{})
	}

	if p.Legend {
		p.drawLegend(dst, paths)
	}
	return dst, nil
}

// Release returns a rendered image to the pool
func (p *Preview) Release(img *image.RGBA) {
	system.PutImage(img)
}

// WritePNG encodes img as PNG
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func (p *Preview) style(i int) Style {
	if len(p.Styles) == 0 {
		return DefaultStyles[i%len(DefaultStyles)]
	}
	return p.Styles[i%len(p.Styles)]
}

// components returns the horizontal and vertical coordinate of sample i
func (p *Preview) components(path *camerapath.Path, i int) (float64, float64) {
	pos := path.Positions[i]
	if pos.Kind() == kvector.KindScalar {
		return float64(path.Frames[i]), pos.Components()[0]
	}
	c := pos.Components()
	return c[p.Axes[0]%len(c)], c[p.Axes[1]%len(c)]
}

type viewport struct {
	minX, minY float64
	scale      float64
	offX, offY float64
	height     float64
}

// viewport fits the bounding box of all paths into the image keeping the
// aspect ratio. The vertical axis points up.
func (p *Preview) viewport(paths []*camerapath.Path) (*viewport, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, path := range paths {
		for i := 0; i < path.Len(); i++ {
			x, y := p.components(path, i)
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	if math.IsInf(minX, 1) {
		return nil, fmt.Errorf("nothing to draw")
	}

	dx, dy := maxX-minX, maxY-minY
	if dx == 0 {
		dx = 1
		minX -= 0.5
	}
	if dy == 0 {
		dy = 1
		minY -= 0.5
	}

	availW := math.Max(float64(p.Width)-2*p.Margin, 1)
	availH := math.Max(float64(p.Height)-2*p.Margin, 1)
	scale := math.Min(availW/dx, availH/dy)

	return &viewport{
		minX:   minX,
		minY:   minY,
		scale:  scale,
		offX:   (float64(p.Width) - dx*scale) / 2,
		offY:   (float64(p.Height) - dy*scale) / 2,
		height: float64(p.Height),
	}, nil
}

func (v *viewport) point(x, y float64) (float32, float32) {
	px := v.offX + (x-v.minX)*v.scale
	py := v.height - (v.offY + (y-v.minY)*v.scale)
	return float32(px), float32(py)
}

// strokeSegment adds a quad of width w around the segment
func strokeSegment(z *vector.Rasterizer, x0, y0, x1, y1 float32, w float64) {
	dx, dy := float64(x1-x0), float64(y1-y0)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx := float32(-dy / length * w / 2)
	ny := float32(dx / length * w / 2)

	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}

// circle adds a circle approximated by four cubic arcs
func circle(z *vector.Rasterizer, cx, cy float32, r float64) {
	const k = 0.5522847498
	rr := float32(r)
	kr := float32(r * k)

	z.MoveTo(cx+rr, cy)
	z.CubeTo(cx+rr, cy+kr, cx+kr, cy+rr, cx, cy+rr)
	z.CubeTo(cx-kr, cy+rr, cx-rr, cy+kr, cx-rr, cy)
	z.CubeTo(cx-rr, cy-kr, cx-kr, cy-rr, cx, cy-rr)
	z.CubeTo(cx+kr, cy-rr, cx+rr, cy-kr, cx+rr, cy)
	z.ClosePath()
}

func (p *Preview) drawLegend(dst *image.RGBA, paths []*camerapath.Path) {
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height

	for i, path := range paths {
		drawer := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(p.style(i).Color),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.I(8), Y: fixed.I(8) + lineHeight*fixed.Int26_6(i+1)},
		}
		drawer.DrawString(fmt.Sprintf("%s (%d)", path.Name, path.Len()))
	}
}
