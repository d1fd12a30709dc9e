// Package settings keeps the user's choices from the main window across runs.
package settings

import (
	"image/color"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sniptext/src/config"
)

const (
	keyOverlayColor   = "overlay/color"
	keyBorderWidth    = "overlay/borderWidth"
	keyCaptureDelayMS = "capture/delayMs"
	keySaveScreenshot = "screenshot/saveEnabled"
	keySaveDir        = "screenshot/saveDir"
	keyMultiRegion    = "capture/multiRegion"
)

// Store is the subset of fyne.Preferences the settings use.
type Store interface {
	BoolWithFallback(key string, fallback bool) bool
	SetBool(key string, value bool)
	IntWithFallback(key string, fallback int) int
	SetInt(key string, value int)
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
}

type Settings struct {
	OverlayColor   color.Color
	BorderWidth    int
	CaptureDelay   time.Duration
	SaveScreenshot bool
	SaveDir        string
	MultiRegion    bool
}

// Manager reads and writes Settings through a Store. It is safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	store     Store
	current   Settings
	listeners []func(Settings)
	log       *logrus.Entry
}

// New loads stored values, falling back to cfg for anything never stored.
func New(store Store, cfg *config.Config) *Manager {
	m := &Manager{store: store, log: logrus.WithField("component", "settings")}

	def := Settings{
		OverlayColor:   cfg.OverlayColor,
		BorderWidth:    cfg.OverlayBorderWidth,
		CaptureDelay:   cfg.CaptureDelay,
		SaveScreenshot: cfg.SaveScreenshot,
		SaveDir:        cfg.SaveDir,
		MultiRegion:    cfg.MultiRegion,
	}
	if def.OverlayColor == nil {
		def.OverlayColor = color.RGBA{R: 255, A: 255}
	}

	s := def
	if hex := store.StringWithFallback(keyOverlayColor, ""); hex != "" {
		if c, err := config.ParseColor(hex); err == nil {
			s.OverlayColor = c
		} else {
			m.log.Warnf("ignoring stored overlay color: %v", err)
		}
	}
	if w := store.IntWithFallback(keyBorderWidth, def.BorderWidth); w >= 1 {
		s.BorderWidth = w
	}
	if ms := store.IntWithFallback(keyCaptureDelayMS, int(def.CaptureDelay/time.Millisecond)); ms >= 0 {
		s.CaptureDelay = time.Duration(ms) * time.Millisecond
	}
	s.SaveScreenshot = store.BoolWithFallback(keySaveScreenshot, def.SaveScreenshot)
	s.SaveDir = store.StringWithFallback(keySaveDir, def.SaveDir)
	s.MultiRegion = store.BoolWithFallback(keyMultiRegion, def.MultiRegion)

	m.current = s
	return m
}

func (m *Manager) Current() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// AddChangeListener registers f to run after every setter with the new settings.
// Listeners run on the caller's goroutine, without the lock held.
func (m *Manager) AddChangeListener(f func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, f)
}

// update applies change under the lock and then notifies listeners.
func (m *Manager) update(change func(s *Settings, store Store)) {
	m.mu.Lock()
	change(&m.current, m.store)
	cur := m.current
	listeners := append(([]func(Settings))(nil), m.listeners...)
	m.mu.Unlock()

	for _, f := range listeners {
		f(cur)
	}
}

func (m *Manager) SetOverlayColor(c color.Color) {
	if c == nil {
		return
	}
	m.update(func(s *Settings, store Store) {
		s.OverlayColor = c
		store.SetString(keyOverlayColor, config.FormatColor(c))
	})
}

func (m *Manager) SetBorderWidth(w int) {
	if w < 1 {
		w = 1
	}
	m.update(func(s *Settings, store Store) {
		s.BorderWidth = w
		store.SetInt(keyBorderWidth, w)
	})
}

func (m *Manager) SetCaptureDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.update(func(s *Settings, store Store) {
		s.CaptureDelay = d
		store.SetInt(keyCaptureDelayMS, int(d/time.Millisecond))
	})
}

func (m *Manager) SetSaveScreenshot(enabled bool) {
	m.update(func(s *Settings, store Store) {
		s.SaveScreenshot = enabled
		store.SetBool(keySaveScreenshot, enabled)
	})
}

// SetSaveDir ignores an empty folder so a cancelled picker keeps the old one.
func (m *Manager) SetSaveDir(dir string) {
	if dir == "" {
		return
	}
	m.update(func(s *Settings, store Store) {
		s.SaveDir = dir
		store.SetString(keySaveDir, dir)
	})
}

func (m *Manager) SetMultiRegion(enabled bool) {
	m.update(func(s *Settings, store Store) {
		s.MultiRegion = enabled
		store.SetBool(keyMultiRegion, enabled)
	})
}
