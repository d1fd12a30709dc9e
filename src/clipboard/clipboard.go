package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// Sink receives recognized text.
type Sink interface {
	SetText(text string) error
}

// System writes to the OS clipboard. Init must succeed before the first write.
type System struct {
	mu    sync.Mutex
	ready bool
}

func NewSystem() *System {
	return &System{}
}

func (s *System) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("clipboard init: %w", err)
	}
	s.ready = true
	return nil
}

// SetText performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func (s *System) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return fmt.Errorf("clipboard not initialized")
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Text returns the current clipboard text.
func (s *System) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ""
	}
	return string(clipboard.Read(clipboard.FmtText))
}
