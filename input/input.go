// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package input tracks keyboard and mouse state for
// uniform sources and toggle keys.
//
// Keys are identified by Windows virtual-key codes
// (0-255) and mouse buttons by index (0-4). A key is
// pressed (or released) during the frame in which its
// state changed; NextFrame starts a new frame.
package input

import (
	"sync"
)

// Input is the interface that defines the queries made
// by the runtime.
type Input interface {
	// IsKeyDown reports whether key is held down.
	IsKeyDown(key int) bool
	// IsKeyPressed reports whether key went down
	// during the current frame.
	IsKeyPressed(key int) bool
	// IsKeyReleased reports whether key went up
	// during the current frame.
	IsKeyReleased(key int) bool

	// IsMouseButtonDown reports whether button is
	// held down.
	IsMouseButtonDown(button int) bool
	IsMouseButtonPressed(button int) bool
	IsMouseButtonReleased(button int) bool

	// MousePosition returns the cursor position in
	// client coordinates.
	MousePosition() (x, y int)
}

const (
	// KeyCount is the number of key codes.
	KeyCount = 256
	// ButtonCount is the number of mouse buttons.
	ButtonCount = 5
)

const (
	down = 1 << iota
	pressed
	released
)

// State is an Input fed by window events.
// It is safe for concurrent use: events usually arrive
// on the window thread while the runtime queries state
// on the render thread.
// The zero value is ready for use.
type State struct {
	mu      sync.Mutex
	keys    [KeyCount]uint8
	buttons [ButtonCount]uint8
	x, y    int
	wheel   int
}

func change(s *uint8, isDown bool) {
	switch {
	case isDown && *s&down == 0:
		*s = down | pressed | *s&released
	case !isDown && *s&down != 0:
		*s = released | *s&pressed
	}
}

// KeyboardKey records a key event.
// Codes out of range are ignored.
func (s *State) KeyboardKey(key int, isDown bool) {
	if key <= 0 || key >= KeyCount {
		return
	}
	s.mu.Lock()
	change(&s.keys[key], isDown)
	s.mu.Unlock()
}

// PointerMotion records a cursor movement.
func (s *State) PointerMotion(x, y int) {
	s.mu.Lock()
	s.x, s.y = x, y
	s.mu.Unlock()
}

// PointerButton records a mouse button event.
func (s *State) PointerButton(button int, isDown bool, x, y int) {
	if button < 0 || button >= ButtonCount {
		return
	}
	s.mu.Lock()
	change(&s.buttons[button], isDown)
	s.x, s.y = x, y
	s.mu.Unlock()
}

// PointerWheel records a wheel movement.
func (s *State) PointerWheel(delta int) {
	s.mu.Lock()
	s.wheel += delta
	s.mu.Unlock()
}

// KeyboardOut releases every key. It is called when the
// window loses focus.
func (s *State) KeyboardOut() {
	s.mu.Lock()
	for i := range s.keys {
		change(&s.keys[i], false)
	}
	s.mu.Unlock()
}

// NextFrame clears the pressed/released flags and the
// wheel delta.
func (s *State) NextFrame() {
	s.mu.Lock()
	for i := range s.keys {
		s.keys[i] &= down
	}
	for i := range s.buttons {
		s.buttons[i] &= down
	}
	s.wheel = 0
	s.mu.Unlock()
}

func (s *State) key(key int, flag uint8) bool {
	if key < 0 || key >= KeyCount {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key]&flag != 0
}

func (s *State) button(button int, flag uint8) bool {
	if button < 0 || button >= ButtonCount {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons[button]&flag != 0
}

// IsKeyDown implements Input.
func (s *State) IsKeyDown(key int) bool { return s.key(key, down) }

// IsKeyPressed implements Input.
func (s *State) IsKeyPressed(key int) bool { return s.key(key, pressed) }

// IsKeyReleased implements Input.
func (s *State) IsKeyReleased(key int) bool { return s.key(key, released) }

// IsMouseButtonDown implements Input.
func (s *State) IsMouseButtonDown(button int) bool { return s.button(button, down) }

// IsMouseButtonPressed implements Input.
func (s *State) IsMouseButtonPressed(button int) bool { return s.button(button, pressed) }

// IsMouseButtonReleased implements Input.
func (s *State) IsMouseButtonReleased(button int) bool { return s.button(button, released) }

// MousePosition implements Input.
func (s *State) MousePosition() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// WheelDelta returns the wheel movement of the current
// frame.
func (s *State) WheelDelta() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wheel
}

// LastKeyPressed returns the lowest key code pressed
// during the current frame, or 0.
func (s *State) LastKeyPressed() int { return s.first(pressed) }

// LastKeyReleased returns the lowest key code released
// during the current frame, or 0.
func (s *State) LastKeyReleased() int { return s.first(released) }

func (s *State) first(flag uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; i < KeyCount; i++ {
		if s.keys[i]&flag != 0 {
			return i
		}
	}
	return 0
}

// AnyKeyDown reports whether any key is held down.
func (s *State) AnyKeyDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k&down != 0 {
			return true
		}
	}
	return false
}

// IsKeyDownMod is like in.IsKeyDown(key), but also
// requires the requested modifiers to be held.
func IsKeyDownMod(in Input, key int, ctrl, shift, alt bool) bool {
	return in.IsKeyDown(key) && mods(in, ctrl, shift, alt)
}

// IsKeyPressedMod is like in.IsKeyPressed(key), but
// also requires the requested modifiers to be held.
func IsKeyPressedMod(in Input, key int, ctrl, shift, alt bool) bool {
	return in.IsKeyPressed(key) && mods(in, ctrl, shift, alt)
}

func mods(in Input, ctrl, shift, alt bool) bool {
	return (!ctrl || in.IsKeyDown(KeyControl)) &&
		(!shift || in.IsKeyDown(KeyShift)) &&
		(!alt || in.IsKeyDown(KeyMenu))
}
