package gui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"sniptext/src/overlay"
	"sniptext/src/screenshot"
	"sniptext/src/session"
)

// Surface hosts an overlay in a borderless full-screen fyne window.
//
// fyne windows cannot be translucent, so the surface paints a frame of the
// display underneath the overlay layer. When the session supplies no frame
// the surface grabs one itself before the window appears.
type Surface struct {
	app     fyne.App
	overlay *overlay.Overlay
	log     *logrus.Entry

	window     fyne.Window
	background *canvas.Image
	layer      *canvas.Raster
	area       *selectionArea
	finish     *widget.Button

	geometry screenshot.Rect
}

// NewOverlayFactory returns the session's overlay factory backed by fyne surfaces.
func NewOverlayFactory(app fyne.App) session.OverlayFactory {
	return func(l overlay.Listener) session.Overlay {
		ov := overlay.New(nil, l)
		ov.Attach(NewSurface(app, ov))
		return ov
	}
}

func NewSurface(app fyne.App, ov *overlay.Overlay) *Surface {
	s := &Surface{
		app:     app,
		overlay: ov,
		log:     logrus.WithField("component", "surface"),
	}

	s.background = canvas.NewImageFromImage(nil)
	s.background.FillMode = canvas.ImageFillStretch
	s.background.ScaleMode = canvas.ImageScaleFastest
	s.layer = canvas.NewRaster(s.render)
	s.layer.ScaleMode = canvas.ImageScaleFastest
	s.area = newSelectionArea(s)
	s.finish = widget.NewButton("Finish", ov.Finish)
	s.finish.Importance = widget.HighImportance
	s.finish.Hide()

	if drv, ok := app.Driver().(desktop.Driver); ok {
		s.window = drv.CreateSplashWindow()
	} else {
		s.window = app.NewWindow("SnipText selection")
	}
	s.window.SetPadded(false)
	s.window.SetContent(container.NewStack(
		s.background,
		s.layer,
		s.area,
		container.NewVBox(container.NewHBox(layout.NewSpacer(), s.finish)),
	))
	s.window.Canvas().SetOnTypedKey(s.typedKey)
	s.window.SetCloseIntercept(func() { ov.KeyPressed(overlay.KeyEscape) })
	return s
}

func (s *Surface) Show(d screenshot.Display, backdrop *image.RGBA) {
	if d != nil {
		s.geometry = d.Geometry()
	}
	if backdrop == nil && d != nil {
		// taken before the window is visible so it never shows the overlay
		if frame, err := d.Grab(); err == nil && !frame.Empty() {
			backdrop = frame.Image
		} else {
			s.log.Warnf("no backdrop for display %d: %v", d.ID(), err)
		}
	}
	if backdrop != nil {
		s.background.Image = backdrop
		s.background.Refresh()
	}
	if s.geometry.Width > 0 && s.geometry.Height > 0 {
		s.window.Resize(fyne.NewSize(float32(s.geometry.Width), float32(s.geometry.Height)))
	}
	s.window.SetFullScreen(true)
	s.window.Show()
	s.window.RequestFocus()
}

func (s *Surface) Hide() { s.window.Hide() }

func (s *Surface) Close() { s.window.Close() }

func (s *Surface) Refresh() { s.layer.Refresh() }

func (s *Surface) SetFinishVisible(visible bool) {
	if visible {
		s.finish.Show()
	} else {
		s.finish.Hide()
	}
}

func (s *Surface) render(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scale := 1.0
	if s.geometry.Width > 0 {
		scale = float64(w) / float64(s.geometry.Width)
	}
	s.overlay.Render(img, scale)
	return img
}

func (s *Surface) typedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyEscape:
		s.overlay.KeyPressed(overlay.KeyEscape)
	case fyne.KeyReturn, fyne.KeyEnter:
		s.overlay.KeyPressed(overlay.KeyEnter)
	}
}

// toLocal maps a position on the surface into the display's logical coordinates.
func (s *Surface) toLocal(pos fyne.Position) screenshot.Point {
	size := s.area.Size()
	if size.Width <= 0 || size.Height <= 0 || s.geometry.Width <= 0 || s.geometry.Height <= 0 {
		return screenshot.Point{X: int(pos.X), Y: int(pos.Y)}
	}
	return screenshot.Point{
		X: int(float64(pos.X) * float64(s.geometry.Width) / float64(size.Width)),
		Y: int(float64(pos.Y) * float64(s.geometry.Height) / float64(size.Height)),
	}
}

// selectionArea is the transparent widget receiving pointer input.
type selectionArea struct {
	widget.BaseWidget
	surface *Surface
}

var (
	_ desktop.Mouseable  = (*selectionArea)(nil)
	_ desktop.Hoverable  = (*selectionArea)(nil)
	_ desktop.Cursorable = (*selectionArea)(nil)
)

func newSelectionArea(s *Surface) *selectionArea {
	a := &selectionArea{surface: s}
	a.ExtendBaseWidget(a)
	return a
}

func (a *selectionArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (a *selectionArea) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

func (a *selectionArea) MouseDown(ev *desktop.MouseEvent) {
	a.surface.overlay.PointerDown(a.surface.toLocal(ev.Position), ev.Button == desktop.MouseButtonPrimary)
}

func (a *selectionArea) MouseUp(ev *desktop.MouseEvent) {
	a.surface.overlay.PointerUp(a.surface.toLocal(ev.Position), ev.Button == desktop.MouseButtonPrimary)
}

func (a *selectionArea) MouseIn(*desktop.MouseEvent) {}

func (a *selectionArea) MouseMoved(ev *desktop.MouseEvent) {
	a.surface.overlay.PointerMove(a.surface.toLocal(ev.Position))
}

func (a *selectionArea) MouseOut() {}
