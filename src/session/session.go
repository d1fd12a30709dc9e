// Package session runs one screen-capture lifecycle at a time: it picks a
// display, shows the selection overlay, waits for the compositor to drop the
// overlay, grabs and crops pixels, and reports the outcome to a Target.
//
// A Session is not safe for concurrent use. Every method, overlay signal and
// scheduled callback must run on the UI goroutine.
package session

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/sirupsen/logrus"

	"sniptext/src/overlay"
	"sniptext/src/screenshot"
)

// DefaultCaptureDelay gives the compositor time to remove a hidden overlay from the next frame.
const DefaultCaptureDelay = 180 * time.Millisecond

var (
	ErrNoDisplay          = errors.New("no screen available")
	ErrGrabFailed         = errors.New("failed to capture the screen")
	ErrOutOfBounds        = errors.New("selection is out of bounds")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// IsSilent reports whether a failure is a user cancellation that should not be surfaced.
func IsSilent(err error) bool {
	return errors.Is(err, ErrSelectionCancelled)
}

// Target receives the session's outcomes.
type Target interface {
	OnCaptureReady(img *image.RGBA)
	// OnCaptureFailed reports err; fatal failures end the session.
	OnCaptureFailed(err error, fatal bool)
	// OnMultiCaptureFinished is emitted when the user completes a multi-region session.
	OnMultiCaptureFinished()
}

// Overlay is the part of overlay.Overlay the session drives.
type Overlay interface {
	SetColor(c color.Color)
	SetBorderWidth(w int)
	SetMultiSelectionEnabled(enabled bool)
	Show(d screenshot.Display, backdrop *image.RGBA)
	Hide()
	Close()
	Update()
	RemoveLastSelection()
}

// OverlayFactory creates a fresh overlay reporting to l.
type OverlayFactory func(l overlay.Listener) Overlay

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f on the UI goroutine after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type State int

const (
	StateIdle State = iota
	StateActive
	StateSelectionPending
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateSelectionPending:
		return "selection-pending"
	case StateCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

type Options struct {
	Displays   screenshot.DisplayProvider
	NewOverlay OverlayFactory
	Scheduler  Scheduler
	Target     Target
}

type Session struct {
	displays   screenshot.DisplayProvider
	newOverlay OverlayFactory
	scheduler  Scheduler
	target     Target
	log        *logrus.Entry

	color       color.Color
	borderWidth int
	delay       time.Duration
	multi       bool

	// captureMulti is the mode latched by Start for the capture in progress.
	captureMulti bool
	state        State
	display      screenshot.Display
	overlay      Overlay
	snapshot     screenshot.Frame
	hasSnapshot  bool

	// generation changes on every teardown so stale overlay signals and timers are ignored.
	generation uint64
	pending    []*pendingCapture
	finishing  bool
}

type pendingCapture struct {
	rect  screenshot.Rect
	timer Timer
}

func New(opts Options) (*Session, error) {
	if opts.Displays == nil {
		return nil, errors.New("Displays is required")
	}
	if opts.NewOverlay == nil {
		return nil, errors.New("NewOverlay is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("Scheduler is required")
	}
	if opts.Target == nil {
		return nil, errors.New("Target is required")
	}
	return &Session{
		displays:    opts.Displays,
		newOverlay:  opts.NewOverlay,
		scheduler:   opts.Scheduler,
		target:      opts.Target,
		log:         logrus.WithField("component", "session"),
		color:       color.RGBA{R: 255, A: 255},
		borderWidth: 2,
		delay:       DefaultCaptureDelay,
	}, nil
}

func (s *Session) SetOverlayColor(c color.Color) {
	if c == nil {
		return
	}
	s.color = c
	if s.overlay != nil {
		s.overlay.SetColor(c)
	}
}

func (s *Session) SetOverlayBorderWidth(w int) {
	s.borderWidth = w
	if s.overlay != nil {
		s.overlay.SetBorderWidth(w)
	}
}

func (s *Session) SetCaptureDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.delay = d
}

// SetMultiSelectionEnabled sets the mode used by the next Start. Disabling
// drops any stored snapshot at once; a multi-region capture in progress is
// finished first so the regions already selected are still delivered.
func (s *Session) SetMultiSelectionEnabled(enabled bool) {
	s.multi = enabled
	if enabled {
		return
	}
	if s.Active() && s.captureMulti {
		s.log.Info("multi-region disabled during capture, finishing it")
		s.finishRequested()
	}
	s.dropSnapshot()
}

func (s *Session) MultiSelectionEnabled() bool { return s.multi }

func (s *Session) State() State { return s.state }

// Active reports whether a capture is in progress.
func (s *Session) Active() bool { return s.state != StateIdle }

// Start begins a capture. It does nothing while another capture is active.
func (s *Session) Start() {
	if s.Active() {
		s.log.Debugf("start ignored, session is %s", s.state)
		return
	}
	s.state = StateActive
	s.captureMulti = s.multi

	d, ok := s.displays.DisplayUnderPointer()
	if !ok {
		d, ok = s.displays.PrimaryDisplay()
	}
	if !ok {
		s.fail(ErrNoDisplay, true)
		return
	}
	s.display = d
	s.log.Infof("capture started on display %d %+v (multi=%v)", d.ID(), d.Geometry(), s.captureMulti)
	s.beginOverlay()
}

// Abort ends the current capture without reporting anything.
func (s *Session) Abort() {
	if !s.Active() {
		return
	}
	s.teardown()
	s.state = StateIdle
}

func (s *Session) beginOverlay() {
	s.closeOverlay()
	s.dropSnapshot()

	if s.captureMulti {
		// The snapshot is taken before the overlay exists so it can never contain it.
		frame, err := s.display.Grab()
		if err != nil || frame.Empty() {
			s.fail(grabError(err), true)
			return
		}
		s.snapshot = frame
		s.hasSnapshot = true
		s.log.Debugf("snapshot %dx%d ratio %.2f", frame.Image.Bounds().Dx(), frame.Image.Bounds().Dy(), frame.DevicePixelRatio)
	}

	ov := s.newOverlay(&listener{s: s, generation: s.generation})
	ov.SetColor(s.color)
	ov.SetBorderWidth(s.borderWidth)
	ov.SetMultiSelectionEnabled(s.captureMulti)
	s.overlay = ov
	ov.Show(s.display, s.snapshot.Image)
}

func (s *Session) selectionFinished(r screenshot.Rect) {
	if r.Empty() {
		s.log.Debug("empty selection, ending capture")
		s.teardown()
		s.state = StateIdle
		return
	}

	if !s.captureMulti && s.overlay != nil {
		s.overlay.Hide()
	}

	s.schedule(r)
	s.state = StateSelectionPending
}

func (s *Session) selectionCancelled() {
	s.log.Debug("selection cancelled")
	s.teardown()
	s.state = StateIdle
	s.target.OnCaptureFailed(ErrSelectionCancelled, false)
}

func (s *Session) finishRequested() {
	if !s.captureMulti || !s.Active() {
		return
	}
	// Crops already selected come from the snapshot, so they need no compositor delay.
	s.finishing = true
	for len(s.pending) > 0 && s.state != StateIdle {
		p := s.pending[0]
		s.pending = s.pending[1:]
		p.timer.Stop()
		s.performCapture(p.rect)
	}
	s.finishing = false
	if s.state == StateIdle {
		return
	}
	s.log.Info("multi-region capture finished")
	s.teardown()
	s.state = StateIdle
	s.target.OnMultiCaptureFinished()
}

func (s *Session) schedule(r screenshot.Rect) {
	p := &pendingCapture{rect: r}
	generation := s.generation
	p.timer = s.scheduler.AfterFunc(s.delay, func() {
		if generation != s.generation || !s.removePending(p) {
			return
		}
		s.performCapture(r)
	})
	s.pending = append(s.pending, p)
}

func (s *Session) removePending(p *pendingCapture) bool {
	for i, q := range s.pending {
		if q == p {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) performCapture(logical screenshot.Rect) {
	s.state = StateCapturing

	var source screenshot.Frame
	if s.captureMulti && s.hasSnapshot {
		source = s.snapshot
	} else {
		if s.overlay != nil {
			s.overlay.Hide()
		}
		if s.display == nil {
			s.fail(ErrNoDisplay, true)
			return
		}
		frame, err := s.display.Grab()
		if err != nil || frame.Empty() {
			s.fail(grabError(err), true)
			return
		}
		source = frame
	}

	pixels := logical.ToPixels(source.DevicePixelRatio)
	b := source.Image.Bounds()
	if !(screenshot.Rect{Width: b.Dx(), Height: b.Dy()}).ContainsRect(pixels) {
		s.log.Warnf("selection %+v -> %+v outside %dx%d bitmap", logical, pixels, b.Dx(), b.Dy())
		if s.captureMulti {
			if s.overlay != nil {
				s.overlay.RemoveLastSelection()
			}
			s.settle()
		} else {
			s.teardown()
			s.state = StateIdle
		}
		s.target.OnCaptureFailed(ErrOutOfBounds, false)
		return
	}

	crop := screenshot.Crop(source.Image, pixels)
	s.log.Infof("captured %+v -> %+v (ratio %.2f)", logical, pixels, source.DevicePixelRatio)

	if s.captureMulti {
		s.settle()
		s.target.OnCaptureReady(crop)
		if s.overlay != nil && s.state != StateIdle && !s.finishing {
			s.overlay.Show(s.display, s.snapshot.Image)
			s.overlay.Update()
		}
		return
	}

	s.teardown()
	s.state = StateIdle
	s.target.OnCaptureReady(crop)
}

// settle returns a multi-region session to waiting for input.
func (s *Session) settle() {
	if len(s.pending) > 0 {
		s.state = StateSelectionPending
		return
	}
	s.state = StateActive
}

func (s *Session) fail(err error, fatal bool) {
	s.log.Errorf("capture failed: %v", err)
	s.teardown()
	s.state = StateIdle
	s.target.OnCaptureFailed(err, fatal)
}

// teardown is shared by every exit path.
func (s *Session) teardown() {
	for _, p := range s.pending {
		p.timer.Stop()
	}
	s.pending = nil
	s.generation++
	s.closeOverlay()
	s.dropSnapshot()
	s.display = nil
	s.captureMulti = false
}

func (s *Session) closeOverlay() {
	if s.overlay == nil {
		return
	}
	s.overlay.Close()
	s.overlay = nil
}

func (s *Session) dropSnapshot() {
	s.snapshot = screenshot.Frame{}
	s.hasSnapshot = false
}

func grabError(err error) error {
	switch {
	case err == nil:
		return ErrGrabFailed
	case errors.Is(err, screenshot.ErrDisplayGone):
		return fmt.Errorf("%w: %v", ErrNoDisplay, err)
	default:
		return fmt.Errorf("%w: %v", ErrGrabFailed, err)
	}
}

// listener forwards signals from one overlay instance, dropping them once that instance's session generation has ended.
type listener struct {
	s          *Session
	generation uint64
}

func (l *listener) stale() bool { return l.generation != l.s.generation }

func (l *listener) SelectionFinished(r screenshot.Rect) {
	if l.stale() {
		return
	}
	l.s.selectionFinished(r)
}

func (l *listener) SelectionCancelled() {
	if l.stale() {
		return
	}
	l.s.selectionCancelled()
}

func (l *listener) FinishRequested() {
	if l.stale() {
		return
	}
	l.s.finishRequested()
}
