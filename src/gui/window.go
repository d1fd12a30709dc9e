package gui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"sniptext/src/settings"
)

// Controller is what the main window drives.
type Controller interface {
	Trigger()
	// ToggleMultiRegion flips the stored multi-region setting and returns the new value.
	ToggleMultiRegion() bool
}

// MainWindow is the small launcher window with the Settings menu.
type MainWindow struct {
	window   fyne.Window
	ctrl     Controller
	settings *settings.Manager
	hotkey   string

	saveItem  *fyne.MenuItem
	multiItem *fyne.MenuItem
	menu      *fyne.MainMenu
	folder    *widget.Label
}

func NewMainWindow(app fyne.App, ctrl Controller, s *settings.Manager, hotkey string) *MainWindow {
	m := &MainWindow{
		window:   app.NewWindow("SnipText"),
		ctrl:     ctrl,
		settings: s,
		hotkey:   hotkey,
	}

	capture := widget.NewButton("New Screenshot", ctrl.Trigger)
	capture.Importance = widget.HighImportance
	hint := widget.NewLabel("Drag a rectangle to copy its text.")
	if hotkey != "" {
		hint.SetText(fmt.Sprintf("Drag a rectangle to copy its text. Hotkey: %s", hotkey))
	}
	m.folder = widget.NewLabel("")
	m.folder.Truncation = fyne.TextTruncateEllipsis

	m.window.SetContent(container.NewVBox(capture, hint, m.folder))
	m.window.SetMainMenu(m.buildMenu())
	m.window.Resize(fyne.NewSize(360, 140))
	m.refresh()
	// toggles from the tray or the command line land here too
	s.AddChangeListener(func(settings.Settings) { m.refresh() })
	return m
}

func (m *MainWindow) Window() fyne.Window { return m.window }

func (m *MainWindow) Show() { m.window.Show() }

func (m *MainWindow) buildMenu() *fyne.MainMenu {
	colorItem := fyne.NewMenuItem("Overlay Color...", m.chooseColor)

	m.saveItem = fyne.NewMenuItem("Also Save Screenshot", func() {
		m.settings.SetSaveScreenshot(!m.settings.Current().SaveScreenshot)
	})
	folderItem := fyne.NewMenuItem("Change Screenshot Save Folder...", m.chooseFolder)

	m.multiItem = fyne.NewMenuItem("Multi-region Capture", func() {
		m.ctrl.ToggleMultiRegion()
	})
	finishItem := fyne.NewMenuItem("How to Finish Multi-region...", func() {
		dialog.ShowInformation("Multi-region Capture",
			"Drag as many rectangles as you need, then press Enter or click Finish.\nEscape cancels and discards the collected text.",
			m.window)
	})

	m.menu = fyne.NewMainMenu(fyne.NewMenu("Settings",
		colorItem,
		m.saveItem,
		folderItem,
		fyne.NewMenuItemSeparator(),
		m.multiItem,
		finishItem,
	))
	return m.menu
}

// refresh mirrors the current settings into the menu and labels.
func (m *MainWindow) refresh() {
	cur := m.settings.Current()
	m.saveItem.Checked = cur.SaveScreenshot
	m.multiItem.Checked = cur.MultiRegion
	if cur.SaveScreenshot {
		m.folder.SetText("Saving to " + cur.SaveDir)
	} else {
		m.folder.SetText("Screenshots are not saved")
	}
	m.menu.Refresh()
}

func (m *MainWindow) chooseColor() {
	picker := dialog.NewColorPicker("Overlay Color", "Color of the selection frame", func(c color.Color) {
		m.settings.SetOverlayColor(c)
	}, m.window)
	picker.Advanced = true
	picker.SetColor(m.settings.Current().OverlayColor)
	picker.Show()
}

func (m *MainWindow) chooseFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if uri == nil {
			return
		}
		m.settings.SetSaveDir(uri.Path())
	}, m.window)
}
