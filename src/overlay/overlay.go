// Package overlay implements the interactive selection layer drawn over one display.
//
// The Overlay owns the drag state machine and the completed-selection list and
// renders the dimmed layer; a Surface supplied by the GUI layer puts it on
// screen and feeds pointer and keyboard input back in. All methods must be
// called from the UI goroutine.
package overlay

import (
	"image"
	"image/color"

	"github.com/sirupsen/logrus"

	"sniptext/src/screenshot"
)

// Listener receives the overlay's outcome signals.
type Listener interface {
	// SelectionFinished reports a normalized, non-empty rectangle in overlay-local logical coordinates.
	SelectionFinished(r screenshot.Rect)
	SelectionCancelled()
	// FinishRequested is only emitted in multi-selection mode.
	FinishRequested()
}

// Surface is the borderless, always-on-top window hosting an Overlay.
type Surface interface {
	// Show presents the surface over d. backdrop, when non-nil, is a frame of d
	// that the surface may draw underneath the overlay layer.
	Show(d screenshot.Display, backdrop *image.RGBA)
	Hide()
	Close()
	// Refresh asks the surface to render the overlay again.
	Refresh()
	SetFinishVisible(visible bool)
}

// Key is a keyboard key the overlay reacts to.
type Key int

const (
	KeyOther Key = iota
	KeyEscape
	KeyEnter
)

const defaultBorderWidth = 2

// DimColor is painted everywhere outside the selections.
var DimColor = color.NRGBA{A: 120}

type Overlay struct {
	surface  Surface
	listener Listener
	log      *logrus.Entry

	color       color.Color
	borderWidth int
	multi       bool

	dragging  bool
	origin    screenshot.Point
	current   screenshot.Rect
	completed []screenshot.Rect

	visible bool
	closed  bool
}

// New creates an overlay that is not yet visible. surface may be attached later with Attach.
func New(surface Surface, listener Listener) *Overlay {
	return &Overlay{
		surface:     surface,
		listener:    listener,
		log:         logrus.WithField("component", "overlay"),
		color:       color.RGBA{R: 255, A: 255},
		borderWidth: defaultBorderWidth,
	}
}

// Attach sets the hosting surface. Surfaces usually need the overlay to
// exist first, hence the two-step construction.
func (o *Overlay) Attach(surface Surface) {
	o.surface = surface
	if surface != nil {
		surface.SetFinishVisible(o.multi)
	}
}

func (o *Overlay) SetColor(c color.Color) {
	if c == nil {
		return
	}
	o.color = c
}

func (o *Overlay) Color() color.Color { return o.color }

func (o *Overlay) SetBorderWidth(w int) {
	if w < 1 {
		w = 1
	}
	o.borderWidth = w
}

// SetMultiSelectionEnabled switches modes, dropping the current drag and all completed selections.
func (o *Overlay) SetMultiSelectionEnabled(enabled bool) {
	o.multi = enabled
	o.dragging = false
	o.current = screenshot.Rect{}
	o.completed = nil
	if o.surface != nil {
		o.surface.SetFinishVisible(enabled)
	}
	o.refresh()
}

func (o *Overlay) MultiSelectionEnabled() bool { return o.multi }

// Completed returns a copy of the confirmed selections.
func (o *Overlay) Completed() []screenshot.Rect {
	return append([]screenshot.Rect(nil), o.completed...)
}

// RemoveLastSelection drops the most recently completed selection.
func (o *Overlay) RemoveLastSelection() {
	if len(o.completed) == 0 {
		return
	}
	o.completed = o.completed[:len(o.completed)-1]
	o.refresh()
}

func (o *Overlay) Show(d screenshot.Display, backdrop *image.RGBA) {
	if o.closed || o.surface == nil {
		return
	}
	o.visible = true
	o.surface.Show(d, backdrop)
	o.surface.Refresh()
}

func (o *Overlay) Hide() {
	if o.closed || !o.visible {
		return
	}
	o.visible = false
	if o.surface != nil {
		o.surface.Hide()
	}
}

// Close destroys the surface. It is idempotent and emits no signal.
func (o *Overlay) Close() {
	if o.closed {
		return
	}
	o.closed = true
	o.visible = false
	o.dragging = false
	if o.surface != nil {
		o.surface.Close()
	}
}

func (o *Overlay) Update() { o.refresh() }

func (o *Overlay) Visible() bool { return o.visible }

func (o *Overlay) Closed() bool { return o.closed }

func (o *Overlay) Dragging() bool { return o.dragging }

// PointerDown starts a drag. Only the primary button counts.
func (o *Overlay) PointerDown(p screenshot.Point, primary bool) {
	if o.closed || !primary {
		return
	}
	o.origin = p
	o.current = screenshot.Rect{X: p.X, Y: p.Y}
	o.dragging = true
	o.refresh()
}

func (o *Overlay) PointerMove(p screenshot.Point) {
	if o.closed || !o.dragging {
		return
	}
	o.current = screenshot.RectFromPoints(o.origin, p)
	o.refresh()
}

func (o *Overlay) PointerUp(p screenshot.Point, primary bool) {
	if o.closed || !o.dragging || !primary {
		return
	}
	o.dragging = false
	sel := screenshot.RectFromPoints(o.origin, p).Normalized()
	o.current = screenshot.Rect{}

	if !sel.Empty() {
		o.completed = append(o.completed, sel)
		o.log.Debugf("selection finished: %+v (multi=%v)", sel, o.multi)
		o.emitFinished(sel)
		if !o.multi {
			o.Close()
			return
		}
		o.refresh()
		return
	}

	if o.multi {
		o.log.Debug("empty drag ignored in multi-selection mode")
		o.refresh()
		return
	}
	o.log.Debug("empty drag, cancelling")
	o.emitCancelled()
	o.Close()
}

func (o *Overlay) KeyPressed(k Key) {
	if o.closed {
		return
	}
	switch k {
	case KeyEscape:
		o.log.Debug("escape pressed, cancelling")
		o.emitCancelled()
		o.Close()
	case KeyEnter:
		o.Finish()
	}
}

// Finish is the multi-selection "done" affordance. It does nothing in single-selection mode.
func (o *Overlay) Finish() {
	if o.closed || !o.multi {
		return
	}
	o.log.Debugf("finish requested after %d selections", len(o.completed))
	if o.listener != nil {
		o.listener.FinishRequested()
	}
	o.Close()
}

func (o *Overlay) emitFinished(r screenshot.Rect) {
	if o.listener != nil {
		o.listener.SelectionFinished(r)
	}
}

func (o *Overlay) emitCancelled() {
	if o.listener != nil {
		o.listener.SelectionCancelled()
	}
}

func (o *Overlay) refresh() {
	if o.closed || o.surface == nil {
		return
	}
	o.surface.Refresh()
}
