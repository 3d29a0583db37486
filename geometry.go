package docstamp

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Point is a position in canvas pixel space. Y grows downwards.
type Point struct {
	X, Y float64
}

// arcStepDeg is the angular sampling step used to flatten arcs.
const arcStepDeg = 2.0

// Canvas is a raster surface with anti-aliased drawing primitives.
// Primitives only draw; they never inspect existing pixels to make a
// decision, so the caller owns the painting order.
type Canvas struct {
	img *image.RGBA
	ras *vector.Rasterizer
}

// NewCanvas creates a fully transparent canvas of w x h pixels.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		ras: vector.NewRasterizer(w, h),
	}
}

// Image returns the canvas pixels.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Bounds returns the canvas bounds.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// span is a [start, end) interval along a path.
type span struct {
	start, end float64
}

// dashSpans splits a path of length total into "on" spans of length dash
// separated by gaps, starting "on" at 0. The last span is truncated at
// total. A non-positive dash yields nothing and a non-positive gap yields
// one solid span.
func dashSpans(total, dash, gap float64) []span {
	if total <= 0 || dash <= 0 {
		return nil
	}
	if gap <= 0 {
		return []span{{0, total}}
	}
	var spans []span
	for pos := 0.0; pos < total; pos += dash + gap {
		spans = append(spans, span{pos, math.Min(pos+dash, total)})
	}
	return spans
}

// DashedLine strokes the straight path p1->p2 as alternating dashes and
// gaps. Degenerate paths draw nothing.
func (c *Canvas) DashedLine(p1, p2 Point, dash, gap float64, col color.Color, width float64) {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	ux, uy := dx/length, dy/length
	for _, s := range dashSpans(length, dash, gap) {
		a := Point{p1.X + ux*s.start, p1.Y + uy*s.start}
		b := Point{p1.X + ux*s.end, p1.Y + uy*s.end}
		c.strokeSegment(a, b, col, width)
	}
}

// arcDashes returns, for every dash of an arc running from startDeg to
// endDeg, the sampled angles of that dash. Samples are taken every step
// degrees from the dash start, and the dash end closes each dash. A dash
// shorter than one step is dropped.
func arcDashes(startDeg, endDeg, dashDeg, gapDeg, step float64) [][]float64 {
	if endDeg <= startDeg || step <= 0 {
		return nil
	}
	var dashes [][]float64
	for _, s := range dashSpans(endDeg-startDeg, dashDeg, gapDeg) {
		a0, a1 := startDeg+s.start, startDeg+s.end
		var angles []float64
		for i := 0; ; i++ {
			a := a0 + float64(i)*step
			if a > a1+1e-9 {
				break
			}
			angles = append(angles, a)
		}
		if len(angles) < 2 {
			continue
		}
		if angles[len(angles)-1] < a1-1e-9 {
			angles = append(angles, a1)
		}
		dashes = append(dashes, angles)
	}
	return dashes
}

// DashedArc strokes the circular arc around center from startDeg to endDeg
// (0° points along +X, angles grow clockwise on screen) with a dash
// pattern expressed in degrees.
func (c *Canvas) DashedArc(center Point, radius, startDeg, endDeg, dashDeg, gapDeg float64, col color.Color, width float64) {
	if radius <= 0 || width <= 0 {
		return
	}
	outer := radius + width/2
	inner := math.Max(radius-width/2, 0)
	for _, angles := range arcDashes(startDeg, endDeg, dashDeg, gapDeg, arcStepDeg) {
		pts := make([]Point, 0, 2*len(angles))
		for _, a := range angles {
			pts = append(pts, polar(center, outer, a))
		}
		for i := len(angles) - 1; i >= 0; i-- {
			pts = append(pts, polar(center, inner, angles[i]))
		}
		c.fillPolygon(pts, col)
	}
}

// RoundedRectFill fills bounds with its corners replaced by quarter
// circles of the given radius: one full-width strip, one full-height strip
// and four corner disks. The radius is clamped to half the shorter side.
func (c *Canvas) RoundedRectFill(bounds image.Rectangle, radius float64, col color.Color) {
	if bounds.Empty() {
		return
	}
	radius = math.Min(radius, float64(min(bounds.Dx(), bounds.Dy()))/2)
	if radius <= 0 {
		draw.Draw(c.img, bounds, image.NewUniform(col), image.Point{}, draw.Over)
		return
	}
	r := int(math.Round(radius))
	src := image.NewUniform(col)
	wide := image.Rect(bounds.Min.X, bounds.Min.Y+r, bounds.Max.X, bounds.Max.Y-r)
	tall := image.Rect(bounds.Min.X+r, bounds.Min.Y, bounds.Max.X-r, bounds.Max.Y)
	draw.Draw(c.img, wide, src, image.Point{}, draw.Over)
	draw.Draw(c.img, tall, src, image.Point{}, draw.Over)

	x0, y0 := float64(bounds.Min.X)+float64(r), float64(bounds.Min.Y)+float64(r)
	x1, y1 := float64(bounds.Max.X)-float64(r), float64(bounds.Max.Y)-float64(r)
	for _, center := range []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}} {
		c.fillDisk(center, float64(r), col)
	}
}

// DashedRoundedRect strokes a dashed rounded rectangle: four straight edges and
// four quarter arcs. The arc dash angles are derived from the edge dash
// lengths so the pattern keeps its rhythm around the corners.
func (c *Canvas) DashedRoundedRect(r image.Rectangle, radius, dash, gap float64, col color.Color, width float64) {
	inset := width / 2
	x0, y0 := float64(r.Min.X)+inset, float64(r.Min.Y)+inset
	x1, y1 := float64(r.Max.X)-inset, float64(r.Max.Y)-inset
	radius = math.Max(math.Min(radius, math.Min(x1-x0, y1-y0)/2), 1)

	toDeg := 180 / (math.Pi * radius)
	dashDeg, gapDeg := dash*toDeg, gap*toDeg

	c.DashedLine(Point{x0 + radius, y0}, Point{x1 - radius, y0}, dash, gap, col, width)
	c.DashedArc(Point{x1 - radius, y0 + radius}, radius, 270, 360, dashDeg, gapDeg, col, width)
	c.DashedLine(Point{x1, y0 + radius}, Point{x1, y1 - radius}, dash, gap, col, width)
	c.DashedArc(Point{x1 - radius, y1 - radius}, radius, 0, 90, dashDeg, gapDeg, col, width)
	c.DashedLine(Point{x1 - radius, y1}, Point{x0 + radius, y1}, dash, gap, col, width)
	c.DashedArc(Point{x0 + radius, y1 - radius}, radius, 90, 180, dashDeg, gapDeg, col, width)
	c.DashedLine(Point{x0, y1 - radius}, Point{x0, y0 + radius}, dash, gap, col, width)
	c.DashedArc(Point{x0 + radius, y0 + radius}, radius, 180, 270, dashDeg, gapDeg, col, width)
}

// DrawImage composites src over the canvas, its top-left at at.
func (c *Canvas) DrawImage(src image.Image, at image.Point) {
	dst := image.Rectangle{Min: at, Max: at.Add(src.Bounds().Size())}
	draw.Draw(c.img, dst, src, src.Bounds().Min, draw.Over)
}

func (c *Canvas) fillDisk(center Point, radius float64, col color.Color) {
	n := int(360 / arcStepDeg)
	pts := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, polar(center, radius, float64(i)*arcStepDeg))
	}
	c.fillPolygon(pts, col)
}

// strokeSegment fills the rectangle of the given width around a->b.
func (c *Canvas) strokeSegment(a, b Point, col color.Color, width float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	c.fillPolygon([]Point{
		{a.X + nx, a.Y + ny},
		{b.X + nx, b.Y + ny},
		{b.X - nx, b.Y - ny},
		{a.X - nx, a.Y - ny},
	}, col)
}

func (c *Canvas) fillPolygon(pts []Point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
	c.ras.DrawOp = draw.Over
	c.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		c.ras.LineTo(float32(p.X), float32(p.Y))
	}
	c.ras.ClosePath()
	c.ras.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

func polar(center Point, radius, deg float64) Point {
	rad := deg * math.Pi / 180
	return Point{center.X + radius*math.Cos(rad), center.Y + radius*math.Sin(rad)}
}
