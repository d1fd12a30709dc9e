package gui

import (
	"time"

	"fyne.io/fyne/v2"

	"sniptext/src/session"
)

// Scheduler runs callbacks on fyne's UI goroutine after a delay.
type Scheduler struct{}

func (Scheduler) AfterFunc(d time.Duration, f func()) session.Timer {
	return time.AfterFunc(d, func() { fyne.Do(f) })
}

// Dispatch posts f onto the UI goroutine.
func Dispatch(f func()) { fyne.Do(f) }
