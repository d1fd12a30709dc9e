package screenshot

import (
	"image"
	"math"
)

// Point is a position in logical (DPI-independent) coordinates unless stated otherwise.
type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned rectangle. Width and Height may be negative while a
// drag is in progress; Normalized fixes that.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RectFromPoints spans origin to p without normalizing.
func RectFromPoints(origin, p Point) Rect {
	return Rect{X: origin.X, Y: origin.Y, Width: p.X - origin.X, Height: p.Y - origin.Y}
}

// Normalized returns the same area with non-negative width and height.
func (r Rect) Normalized() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Max returns the exclusive far corner.
func (r Rect) Max() Point {
	return Point{X: r.X + r.Width, Y: r.Y + r.Height}
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	n := r.Normalized()
	return image.Rect(n.X, n.Y, n.X+n.Width, n.Y+n.Height)
}

// RectFromImage converts an image.Rectangle to a Rect.
func RectFromImage(b image.Rectangle) Rect {
	return Rect{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
}

// ContainsRect reports whether other is non-empty and lies entirely inside r.
func (r Rect) ContainsRect(other Rect) bool {
	if r.Empty() || other.Empty() {
		return false
	}
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// ContainsPoint reports whether p lies inside r (far edges exclusive).
func (r Rect) ContainsPoint(p Point) bool {
	n := r.Normalized()
	return p.X >= n.X && p.Y >= n.Y && p.X < n.X+n.Width && p.Y < n.Y+n.Height
}

// ToPixels scales a logical rectangle by the device pixel ratio. Each field is
// rounded on its own, so X+Width may differ by one pixel from the rounded
// logical far edge. Callers rely on this when deciding which near-boundary
// selections fit the bitmap.
func (r Rect) ToPixels(ratio float64) Rect {
	return Rect{
		X:      roundScaled(r.X, ratio),
		Y:      roundScaled(r.Y, ratio),
		Width:  roundScaled(r.Width, ratio),
		Height: roundScaled(r.Height, ratio),
	}
}

// roundScaled rounds half away from zero.
func roundScaled(v int, ratio float64) int {
	return int(math.Round(float64(v) * ratio))
}
