package screenshot

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

var (
	// ErrDisplayGone is returned by Grab when the display was disconnected after it was chosen.
	ErrDisplayGone = errors.New("display is no longer available")
	// ErrEmptyGrab is returned when the platform hands back a zero-sized bitmap.
	ErrEmptyGrab = errors.New("screen grab returned an empty bitmap")
)

// Frame is a grabbed bitmap in physical pixels together with the ratio that
// maps the display's logical geometry onto it.
type Frame struct {
	Image            *image.RGBA
	DevicePixelRatio float64
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Image == nil || f.Image.Bounds().Empty()
}

// Display is one physical monitor.
type Display interface {
	ID() int
	// Geometry is the display's origin and size in logical units.
	Geometry() Rect
	// Grab captures the whole display.
	Grab() (Frame, error)
}

// DisplayProvider locates displays.
type DisplayProvider interface {
	DisplayUnderPointer() (Display, bool)
	PrimaryDisplay() (Display, bool)
}

// Crop copies r out of img into a new zero-origin bitmap. r must lie within img.
func Crop(img *image.RGBA, r Rect) *image.RGBA {
	src := r.Image().Add(img.Bounds().Min)
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, src.Min, xdraw.Src)
	return dst
}

// Screens is the DisplayProvider backed by the operating system.
type Screens struct {
	// pointer reports the cursor position in the same space as display bounds.
	pointer func() (int, int)
}

// NewScreens returns a provider that uses robotgo for the pointer position.
func NewScreens() *Screens {
	return &Screens{pointer: robotgo.Location}
}

func (s *Screens) DisplayUnderPointer() (Display, bool) {
	if s.pointer == nil {
		return nil, false
	}
	x, y := s.pointer()
	p := Point{X: x, Y: y}
	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		bounds := RectFromImage(screenshot.GetDisplayBounds(i))
		if bounds.ContainsPoint(p) {
			logrus.WithField("component", "screenshot").Debugf("pointer (%d,%d) on display %d %+v", x, y, i, bounds)
			return &screen{index: i, bounds: bounds}, true
		}
	}
	return nil, false
}

func (s *Screens) PrimaryDisplay() (Display, bool) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, false
	}
	return &screen{index: 0, bounds: RectFromImage(screenshot.GetDisplayBounds(0))}, true
}

type screen struct {
	index  int
	bounds Rect
}

func (s *screen) ID() int { return s.index }

func (s *screen) Geometry() Rect { return s.bounds }

func (s *screen) Grab() (Frame, error) {
	if s.index >= screenshot.NumActiveDisplays() {
		return Frame{}, ErrDisplayGone
	}
	img, err := screenshot.CaptureDisplay(s.index)
	if err != nil {
		return Frame{}, fmt.Errorf("capture display %d: %w", s.index, err)
	}
	if img == nil || img.Bounds().Empty() {
		return Frame{}, ErrEmptyGrab
	}
	if img.Bounds().Min != (image.Point{}) {
		img = Crop(img, RectFromImage(img.Bounds()).moveToOrigin())
	}
	ratio := 1.0
	if s.bounds.Width > 0 {
		ratio = float64(img.Bounds().Dx()) / float64(s.bounds.Width)
	}
	return Frame{Image: img, DevicePixelRatio: ratio}, nil
}

func (r Rect) moveToOrigin() Rect {
	return Rect{Width: r.Width, Height: r.Height}
}
