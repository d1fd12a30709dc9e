package eventloop

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sniptext/src/clipboard"
	"sniptext/src/hotkey"
	"sniptext/src/imagefile"
	"sniptext/src/notification"
	"sniptext/src/screenshot"
	"sniptext/src/session"
	"sniptext/src/settings"
	"sniptext/src/worker"
)

// Dispatch runs f on the UI goroutine.
type Dispatch func(f func())

// Runner recognizes crops off the UI goroutine. worker.Pool is the production Runner.
type Runner interface {
	Submit(img *image.RGBA, cb worker.ResultCallback) bool
}

type Options struct {
	Displays   screenshot.DisplayProvider
	NewOverlay session.OverlayFactory
	Scheduler  session.Scheduler
	Runner     Runner
	Clipboard  clipboard.Sink
	Notifier   notification.Notifier
	Settings   *settings.Manager
	Dispatch   Dispatch
	// Save and Now default to imagefile.Save and time.Now.
	Save func(img image.Image, path string) error
	Now  func() time.Time
}

// Loop is the single-threaded coordinator between the capture session, OCR and the outputs.
// Every method except the hotkey callback runs on the UI goroutine.
type Loop struct {
	session  *session.Session
	runner   Runner
	clip     clipboard.Sink
	notifier notification.Notifier
	settings *settings.Manager
	dispatch Dispatch
	save     func(img image.Image, path string) error
	now      func() time.Time
	log      *logrus.Entry

	// multi-region batch state
	multi     bool
	batch     uint64
	texts     []string
	inflight  int
	finishing bool

	stopHotkey func()
}

func New(opts Options) (*Loop, error) {
	if opts.Runner == nil || opts.Clipboard == nil || opts.Notifier == nil || opts.Settings == nil {
		return nil, errors.New("Runner, Clipboard, Notifier and Settings are required")
	}
	l := &Loop{
		runner:   opts.Runner,
		clip:     opts.Clipboard,
		notifier: opts.Notifier,
		settings: opts.Settings,
		dispatch: opts.Dispatch,
		save:     opts.Save,
		now:      opts.Now,
		log:      logrus.WithField("component", "eventloop"),
	}
	if l.dispatch == nil {
		l.dispatch = func(f func()) { f() }
	}
	if l.save == nil {
		l.save = func(img image.Image, path string) error { return imagefile.Save(img, path, imagefile.PNG) }
	}
	if l.now == nil {
		l.now = time.Now
	}

	s, err := session.New(session.Options{
		Displays:   opts.Displays,
		NewOverlay: opts.NewOverlay,
		Scheduler:  opts.Scheduler,
		Target:     l,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	l.session = s
	return l, nil
}

func (l *Loop) Session() *session.Session { return l.session }

// Trigger starts a capture with the current settings. It does nothing while a capture is active.
func (l *Loop) Trigger() {
	if l.session.Active() {
		l.log.Debug("trigger ignored, capture in progress")
		return
	}
	cur := l.settings.Current()
	l.session.SetOverlayColor(cur.OverlayColor)
	l.session.SetOverlayBorderWidth(cur.BorderWidth)
	l.session.SetCaptureDelay(cur.CaptureDelay)
	l.session.SetMultiSelectionEnabled(cur.MultiRegion)

	l.multi = cur.MultiRegion
	if l.multi {
		l.resetBatch()
	}
	l.session.Start()
}

// SetMultiRegion persists the mode. The session uses it from its next Start;
// disabling finishes a multi-region capture in progress.
func (l *Loop) SetMultiRegion(enabled bool) {
	l.settings.SetMultiRegion(enabled)
	l.session.SetMultiSelectionEnabled(enabled)
}

// ToggleMultiRegion flips the stored mode and returns the new value.
func (l *Loop) ToggleMultiRegion() bool {
	enabled := !l.settings.Current().MultiRegion
	l.SetMultiRegion(enabled)
	return enabled
}

// StartHotkey registers a global hotkey that posts Trigger onto the UI goroutine.
func (l *Loop) StartHotkey(combo string) error {
	if combo == "" {
		return nil
	}
	stop, err := hotkey.Listen(combo, func() {
		l.dispatch(l.Trigger)
	})
	if err != nil {
		return err
	}
	l.stopHotkey = stop
	return nil
}

func (l *Loop) Close() {
	if l.stopHotkey != nil {
		l.stopHotkey()
		l.stopHotkey = nil
	}
	l.session.Abort()
}

// OnCaptureReady implements session.Target.
func (l *Loop) OnCaptureReady(img *image.RGBA) {
	cur := l.settings.Current()
	if cur.SaveScreenshot {
		l.saveImage(img, cur.SaveDir)
	}

	multi, batch := l.multi, l.batch
	if multi {
		l.inflight++
	}
	ok := l.runner.Submit(img, func(text string) {
		l.dispatch(func() { l.recognized(multi, batch, text) })
	})
	if !ok {
		if multi {
			l.inflight--
		}
		l.notifier.Warning("Busy", "Text recognition is still busy, please retry.")
	}
}

// OnCaptureFailed implements session.Target.
func (l *Loop) OnCaptureFailed(err error, fatal bool) {
	if l.multi && (fatal || session.IsSilent(err)) {
		// the batch ends without a finish, so collected text is dropped
		l.discardBatch()
	}
	switch {
	case session.IsSilent(err):
		l.log.Debug("capture cancelled")
	case fatal:
		l.log.Errorf("capture failed: %v", err)
		l.notifier.Error("Capture failed", err.Error())
	default:
		l.log.Warnf("capture failed: %v", err)
		l.notifier.Warning("Capture failed", err.Error())
	}
}

// OnMultiCaptureFinished implements session.Target.
func (l *Loop) OnMultiCaptureFinished() {
	l.finishing = true
	if l.inflight == 0 {
		l.flushBatch()
	}
}

func (l *Loop) recognized(multi bool, batch uint64, text string) {
	if !multi {
		if text == "" {
			l.log.Info("no text recognized")
			return
		}
		l.copy(text)
		return
	}

	if batch != l.batch {
		return
	}
	l.inflight--
	if text != "" {
		l.texts = append(l.texts, text)
	}
	if l.finishing && l.inflight == 0 {
		l.flushBatch()
	}
}

func (l *Loop) flushBatch() {
	text := strings.Join(l.texts, "\n")
	l.log.Infof("multi-region capture produced %d texts", len(l.texts))
	l.resetBatch()
	if text != "" {
		l.copy(text)
	}
}

func (l *Loop) discardBatch() {
	if len(l.texts) > 0 || l.inflight > 0 {
		l.log.Debugf("discarding %d texts and %d pending recognitions", len(l.texts), l.inflight)
	}
	l.resetBatch()
}

// resetBatch starts a new batch; results still in flight for the old one are ignored.
func (l *Loop) resetBatch() {
	l.batch++
	l.texts = nil
	l.inflight = 0
	l.finishing = false
}

func (l *Loop) copy(text string) {
	if err := l.clip.SetText(text); err != nil {
		l.log.Errorf("clipboard write failed: %v", err)
		l.notifier.Error("Clipboard error", err.Error())
		return
	}
	l.log.Infof("copied %d characters", len(text))
	l.notifier.Info("Text copied", text)
}

func (l *Loop) saveImage(img *image.RGBA, dir string) {
	path := imagefile.NextPath(dir, l.now())
	if err := l.save(img, path); err != nil {
		l.log.Errorf("save screenshot: %v", err)
		l.notifier.Error("Save failed", fmt.Sprintf("Could not save screenshot to %s: %v", path, err))
		return
	}
	l.log.Infof("saved screenshot to %s", path)
	l.notifier.Info("Screenshot saved", path)
}
