package tray

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/sirupsen/logrus"
)

// Actions are the tray menu callbacks. They run on the UI goroutine.
type Actions struct {
	Capture func()
	Show    func()
	// ToggleMulti flips multi-region capture and returns the stored state afterwards.
	ToggleMulti func() bool
}

// Tray is the tray menu. Its multi-region item mirrors the stored setting, not its own clicks.
type Tray struct {
	menu  *fyne.Menu
	multi *fyne.MenuItem
}

// New builds the tray menu. multi is the current multi-region state.
func New(actions Actions, multi bool) *Tray {
	t := &Tray{}
	items := []*fyne.MenuItem{
		fyne.NewMenuItem("New Screenshot", call(actions.Capture)),
	}
	if actions.ToggleMulti != nil {
		t.multi = fyne.NewMenuItem("Multi-region Capture", func() {
			t.SetMulti(actions.ToggleMulti())
		})
		t.multi.Checked = multi
		items = append(items, t.multi)
	}
	if actions.Show != nil {
		items = append(items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("Show Window", actions.Show))
	}
	// fyne appends its own Quit item to tray menus.
	t.menu = fyne.NewMenu("SnipText", items...)
	return t
}

func (t *Tray) Menu() *fyne.Menu { return t.menu }

// SetMulti updates the multi-region check mark.
func (t *Tray) SetMulti(enabled bool) {
	if t.multi == nil || t.multi.Checked == enabled {
		return
	}
	t.multi.Checked = enabled
	t.menu.Refresh()
}

// Install puts the icon and menu in the system tray. It reports false when the driver has no tray.
func Install(app fyne.App, t *Tray) bool {
	desk, ok := app.(desktop.App)
	if !ok {
		logrus.WithField("component", "tray").Info("system tray not supported by this driver")
		return false
	}
	desk.SetSystemTrayIcon(Icon)
	desk.SetSystemTrayMenu(t.menu)
	return true
}

func call(f func()) func() {
	return func() {
		if f != nil {
			f()
		}
	}
}
