package hotkey

import (
	"fmt"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "hotkey")

// key is one element of a combination, matched by any of its codes (left and right modifiers).
type key struct {
	name  string
	codes []uint16
}

// Combination tracks which keys of a parsed hotkey are held down.
type Combination struct {
	spec    string
	keys    []key
	pressed []bool
}

// Parse turns a spec like "Ctrl+Alt+Q" into a Combination.
func Parse(spec string) (*Combination, error) {
	names := parseHotkey(spec)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", spec)
	}
	c := &Combination{spec: spec}
	for _, name := range names {
		codes := keyNameToCodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", spec, name)
		}
		c.keys = append(c.keys, key{name: name, codes: codes})
	}
	c.pressed = make([]bool, len(c.keys))
	return c, nil
}

func (c *Combination) String() string { return c.spec }

// Press records a key going down and reports whether the whole combination is now held.
// A completed combination resets, so holding the keys fires once.
func (c *Combination) Press(code uint16) bool {
	if !c.mark(code, true) {
		return false
	}
	for _, p := range c.pressed {
		if !p {
			return false
		}
	}
	for i := range c.pressed {
		c.pressed[i] = false
	}
	return true
}

func (c *Combination) Release(code uint16) {
	c.mark(code, false)
}

func (c *Combination) mark(code uint16, down bool) bool {
	matched := false
	for i, k := range c.keys {
		for _, kc := range k.codes {
			if kc == code {
				c.pressed[i] = down
				matched = true
				break
			}
		}
	}
	return matched
}

// Listen starts the global hook and calls callback on gohook's goroutine each time
// the combination is pressed. The returned stop function ends the hook.
func Listen(spec string, callback func()) (stop func(), err error) {
	combo, err := Parse(spec)
	if err != nil {
		return nil, err
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, fmt.Errorf("hotkey %q: hook did not start", spec)
	}
	log.Infof("listening for %s", spec)

	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				mu.Lock()
				fire := combo.Press(ev.Keycode)
				mu.Unlock()
				if fire {
					log.Debugf("%s pressed", spec)
					if callback != nil {
						callback()
					}
				}
			case gohook.KeyUp:
				mu.Lock()
				combo.Release(ev.Keycode)
				mu.Unlock()
			}
		}
		log.Debug("event channel closed")
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			gohook.End()
			<-done
		})
	}, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "option":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "super", "meta":
			keys = append(keys, "cmd")
		case "escape":
			keys = append(keys, "esc")
		case "return":
			keys = append(keys, "enter")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// modifiers lists the right-hand variant of each modifier in gohook's key table.
var modifiers = map[string]string{
	"ctrl":  "rctrl",
	"alt":   "ralt",
	"shift": "rshift",
	"cmd":   "rcmd",
}

// keyNameToCodes maps a key name to gohook keycodes, both sides for modifiers.
func keyNameToCodes(name string) []uint16 {
	var codes []uint16
	if code, ok := gohook.Keycode[name]; ok && code != 0 {
		codes = append(codes, code)
	}
	if right, ok := modifiers[name]; ok {
		if code, ok := gohook.Keycode[right]; ok && code != 0 {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		log.Warnf("unknown key name %q", name)
	}
	return codes
}
