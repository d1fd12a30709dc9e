package overlay

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"sniptext/src/screenshot"
)

// Render paints the overlay layer into dst. scale maps overlay coordinates to
// dst pixels. The result is dimmed everywhere except inside the union of the
// current drag and every completed selection, and each of those gets a border.
func (o *Overlay) Render(dst *image.RGBA, scale float64) {
	if scale <= 0 {
		scale = 1
	}
	bounds := dst.Bounds()
	xdraw.Draw(dst, bounds, image.NewUniform(DimColor), image.Point{}, xdraw.Src)

	rects := o.visibleRects()
	if len(rects) == 0 {
		return
	}

	scaled := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		px := scaleRect(r, scale).Add(bounds.Min).Intersect(bounds)
		if px.Empty() {
			continue
		}
		scaled = append(scaled, px)
		xdraw.Draw(dst, px, image.Transparent, image.Point{}, xdraw.Src)
	}

	border := int(math.Round(float64(o.borderWidth) * scale))
	if border < 1 {
		border = 1
	}
	pen := image.NewUniform(color.RGBAModel.Convert(o.color))
	for _, px := range scaled {
		drawFrame(dst, px, border, pen)
	}
}

// visibleRects lists completed selections followed by the in-progress drag.
func (o *Overlay) visibleRects() []screenshot.Rect {
	rects := append([]screenshot.Rect(nil), o.completed...)
	if o.dragging {
		if cur := o.current.Normalized(); !cur.Empty() {
			rects = append(rects, cur)
		}
	}
	return rects
}

func scaleRect(r screenshot.Rect, scale float64) image.Rectangle {
	n := r.Normalized()
	return image.Rect(
		int(math.Round(float64(n.X)*scale)),
		int(math.Round(float64(n.Y)*scale)),
		int(math.Round(float64(n.X+n.Width)*scale)),
		int(math.Round(float64(n.Y+n.Height)*scale)),
	)
}

// drawFrame strokes the inside edge of r.
func drawFrame(dst *image.RGBA, r image.Rectangle, width int, pen image.Image) {
	if width*2 >= r.Dx() || width*2 >= r.Dy() {
		xdraw.Draw(dst, r, pen, image.Point{}, xdraw.Src)
		return
	}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y+width, r.Min.X+width, r.Max.Y-width),
		image.Rect(r.Max.X-width, r.Min.Y+width, r.Max.X, r.Max.Y-width),
	}
	for _, e := range edges {
		xdraw.Draw(dst, e, pen, image.Point{}, xdraw.Src)
	}
}
