package notification

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

const maxPreview = 200

// Notifier presents messages to the user. Calls happen on the UI goroutine.
type Notifier interface {
	// Error reports a failure the user has to acknowledge.
	Error(title, message string)
	Warning(title, message string)
	Info(title, message string)
}

// Preview truncates text to a notification-sized excerpt.
func Preview(text string) string {
	r := []rune(text)
	if len(r) > maxPreview {
		return string(r[:maxPreview]) + "..."
	}
	return text
}

// Log writes every message to the logger. It is used before a window exists and in headless runs.
type Log struct {
	log *logrus.Entry
}

func NewLog() *Log {
	return &Log{log: logrus.WithField("component", "notification")}
}

func (l *Log) Error(title, message string)   { l.log.Errorf("%s: %s", title, message) }
func (l *Log) Warning(title, message string) { l.log.Warnf("%s: %s", title, message) }
func (l *Log) Info(title, message string)    { l.log.Infof("%s: %s", title, message) }

// Fyne shows errors and warnings as dialogs on a window and info as a desktop notification.
type Fyne struct {
	app      fyne.App
	window   fyne.Window
	fallback *Log
}

func NewFyne(app fyne.App, window fyne.Window) *Fyne {
	return &Fyne{app: app, window: window, fallback: NewLog()}
}

// SetWindow sets the window dialogs attach to once it exists.
func (f *Fyne) SetWindow(w fyne.Window) { f.window = w }

func (f *Fyne) Error(title, message string) {
	f.fallback.Error(title, message)
	if f.window == nil {
		return
	}
	content := container.NewBorder(nil, nil, widget.NewIcon(theme.ErrorIcon()), nil, widget.NewLabel(message))
	dialog.NewCustom(title, "OK", content, f.window).Show()
}

func (f *Fyne) Warning(title, message string) {
	f.fallback.Warning(title, message)
	if f.window == nil {
		return
	}
	dialog.ShowInformation(title, message, f.window)
}

func (f *Fyne) Info(title, message string) {
	f.fallback.Info(title, message)
	if f.app == nil {
		return
	}
	f.app.SendNotification(fyne.NewNotification(title, Preview(message)))
}
