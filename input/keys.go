// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package input

import (
	"strconv"
	"strings"
)

// Virtual-key codes.
const (
	KeyBackspace  = 0x08
	KeyTab        = 0x09
	KeyReturn     = 0x0d
	KeyShift      = 0x10
	KeyControl    = 0x11
	KeyMenu       = 0x12
	KeyPause      = 0x13
	KeyCapsLock   = 0x14
	KeyEsc        = 0x1b
	KeySpace      = 0x20
	KeyPageUp     = 0x21
	KeyPageDown   = 0x22
	KeyEnd        = 0x23
	KeyHome       = 0x24
	KeyLeft       = 0x25
	KeyUp         = 0x26
	KeyRight      = 0x27
	KeyDown       = 0x28
	KeySnapshot   = 0x2c
	KeyInsert     = 0x2d
	KeyDelete     = 0x2e
	Key0          = 0x30
	KeyA          = 0x41
	KeyLMeta      = 0x5b
	KeyRMeta      = 0x5c
	KeyPad0       = 0x60
	KeyPadStar    = 0x6a
	KeyPadPlus    = 0x6b
	KeyPadMinus   = 0x6d
	KeyPadDot     = 0x6e
	KeyPadSlash   = 0x6f
	KeyF1         = 0x70
	KeyNumLock    = 0x90
	KeyScrollLock = 0x91
	KeyLShift     = 0xa0
	KeyRShift     = 0xa1
	KeyLCtrl      = 0xa2
	KeyRCtrl      = 0xa3
	KeyLAlt       = 0xa4
	KeyRAlt       = 0xa5
)

// Mouse buttons.
const (
	ButtonLeft = iota
	ButtonRight
	ButtonMiddle
	ButtonX1
	ButtonX2
)

var keyNames = map[int]string{
	KeyBackspace:  "Backspace",
	KeyTab:        "Tab",
	KeyReturn:     "Return",
	KeyShift:      "Shift",
	KeyControl:    "Ctrl",
	KeyMenu:       "Alt",
	KeyPause:      "Pause",
	KeyCapsLock:   "CapsLock",
	KeyEsc:        "Esc",
	KeySpace:      "Space",
	KeyPageUp:     "PageUp",
	KeyPageDown:   "PageDown",
	KeyEnd:        "End",
	KeyHome:       "Home",
	KeyLeft:       "Left",
	KeyUp:         "Up",
	KeyRight:      "Right",
	KeyDown:       "Down",
	KeySnapshot:   "PrintScreen",
	KeyInsert:     "Insert",
	KeyDelete:     "Delete",
	KeyLMeta:      "LMeta",
	KeyRMeta:      "RMeta",
	KeyPadStar:    "Pad*",
	KeyPadPlus:    "Pad+",
	KeyPadMinus:   "Pad-",
	KeyPadDot:     "Pad.",
	KeyPadSlash:   "Pad/",
	KeyNumLock:    "NumLock",
	KeyScrollLock: "ScrollLock",
	KeyLShift:     "LShift",
	KeyRShift:     "RShift",
	KeyLCtrl:      "LCtrl",
	KeyRCtrl:      "RCtrl",
	KeyLAlt:       "LAlt",
	KeyRAlt:       "RAlt",
}

var keyCodes = func() map[string]int {
	m := make(map[string]int, len(keyNames)+60)
	for k, s := range keyNames {
		m[strings.ToLower(s)] = k
	}
	for i := 0; i < 10; i++ {
		m[strconv.Itoa(i)] = Key0 + i
		m["pad"+strconv.Itoa(i)] = KeyPad0 + i
	}
	for i := 0; i < 26; i++ {
		m[string(rune('a'+i))] = KeyA + i
	}
	for i := 0; i < 24; i++ {
		m["f"+strconv.Itoa(i+1)] = KeyF1 + i
	}
	return m
}()

// KeyName returns a readable name for key.
func KeyName(key int) string {
	switch {
	case key >= Key0 && key <= Key0+9:
		return string(rune('0' + key - Key0))
	case key >= KeyA && key <= KeyA+25:
		return string(rune('A' + key - KeyA))
	case key >= KeyPad0 && key <= KeyPad0+9:
		return "Pad" + string(rune('0'+key-KeyPad0))
	case key >= KeyF1 && key < KeyF1+24:
		return "F" + strconv.Itoa(key-KeyF1+1)
	}
	if s, ok := keyNames[key]; ok {
		return s
	}
	return "0x" + strconv.FormatInt(int64(key), 16)
}

// ParseKey returns the key code identified by s, which
// is either a name as returned by KeyName (case does
// not matter) or a number.
func ParseKey(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if k, ok := keyCodes[strings.ToLower(s)]; ok {
		return k, true
	}
	k, err := strconv.ParseInt(s, 0, 0)
	if err != nil || k <= 0 || k >= KeyCount {
		return 0, false
	}
	return int(k), true
}

// Shortcut is a key with modifiers.
type Shortcut struct {
	Key              int
	Ctrl, Shift, Alt bool
}

// Pressed reports whether s was pressed in the current
// frame of in.
func (s Shortcut) Pressed(in Input) bool {
	return s.Key != 0 && IsKeyPressedMod(in, s.Key, s.Ctrl, s.Shift, s.Alt)
}

func (s Shortcut) String() string {
	if s.Key == 0 {
		return ""
	}
	var b strings.Builder
	if s.Ctrl {
		b.WriteString("Ctrl+")
	}
	if s.Shift {
		b.WriteString("Shift+")
	}
	if s.Alt {
		b.WriteString("Alt+")
	}
	b.WriteString(KeyName(s.Key))
	return b.String()
}

// ParseShortcut parses strings such as "Ctrl+Shift+F12".
// The empty string yields the zero Shortcut.
func ParseShortcut(s string) (Shortcut, bool) {
	var sc Shortcut
	if strings.TrimSpace(s) == "" {
		return sc, true
	}
	parts := strings.Split(s, "+")
	// "Pad+" names the key itself.
	if n := len(parts); n > 1 && parts[n-1] == "" {
		parts = append(parts[:n-2], parts[n-2]+"+")
	}
	for i, p := range parts {
		if i < len(parts)-1 {
			switch strings.ToLower(strings.TrimSpace(p)) {
			case "ctrl":
				sc.Ctrl = true
			case "shift":
				sc.Shift = true
			case "alt":
				sc.Alt = true
			default:
				return Shortcut{}, false
			}
			continue
		}
		k, ok := ParseKey(p)
		if !ok {
			return Shortcut{}, false
		}
		sc.Key = k
	}
	return sc, true
}
