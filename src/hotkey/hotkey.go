package hotkey

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Listen calls onPress each time the whole combination (e.g. "Ctrl+Alt+O")
// is held down. The returned stop function ends the hook.
func Listen(combo string, onPress func()) (stop func(), err error) {
	m, err := newMatcher(combo)
	if err != nil {
		return nil, err
	}
	log.Printf("Hotkey listener configured for: %s", combo)

	evChan := gohook.Start()
	if evChan == nil {
		return nil, fmt.Errorf("gohook.Start() returned nil channel")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				if m.keyDown(ev.Rawcode) {
					log.Printf("Hotkey activated: %s", combo)
					if onPress != nil {
						onPress()
					}
				}
			case gohook.KeyUp:
				m.keyUp(ev.Rawcode)
			}
		}
		log.Printf("Hotkey event channel closed")
	}()

	var once sync.Once
	return func() { once.Do(gohook.End) }, nil
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// matcher tracks which keys of a combination are held.
type matcher struct {
	mu   sync.Mutex
	keys []keyState
}

func newMatcher(combo string) (*matcher, error) {
	names := parseHotkey(combo)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", combo)
	}
	m := &matcher{}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("cannot map key %q in hotkey %q", name, combo)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: codes})
	}
	return m, nil
}

// keyDown reports true when raw completes the combination. States reset on
// activation so holding the keys does not repeat.
func (m *matcher) keyDown(raw uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(raw, true)
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

func (m *matcher) keyUp(raw uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(raw, false)
}

func (m *matcher) set(raw uint16, pressed bool) {
	for i := range m.keys {
		for _, code := range m.keys[i].rawcodes {
			if code == raw {
				m.keys[i].pressed = pressed
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+o" to normalized key names
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

var specialKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"insert":    {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pagedown":  {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to Windows virtual key codes, returning
// both left and right variants for modifiers.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	if codes, ok := specialKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 'A'} // VK 0x41-0x5A
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)} // VK 0x30-0x39
		}
	}
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}
	return nil
}
