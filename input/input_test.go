// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package input

import (
	"testing"
)

func TestKeyboard(t *testing.T) {
	var s State
	var in Input = &s

	s.KeyboardKey(KeyF1, true)
	if !in.IsKeyDown(KeyF1) || !in.IsKeyPressed(KeyF1) || in.IsKeyReleased(KeyF1) {
		t.Fatal("State.KeyboardKey: F1 should be down and pressed")
	}
	if k := s.LastKeyPressed(); k != KeyF1 {
		t.Fatalf("State.LastKeyPressed:\nhave %#x\nwant %#x", k, KeyF1)
	}
	// Repeats do not press again.
	s.NextFrame()
	s.KeyboardKey(KeyF1, true)
	if !in.IsKeyDown(KeyF1) || in.IsKeyPressed(KeyF1) {
		t.Fatal("State.KeyboardKey: repeat should not press")
	}
	if !s.AnyKeyDown() || s.LastKeyPressed() != 0 {
		t.Fatal("State.AnyKeyDown: wrong result")
	}

	s.KeyboardKey(KeyF1, false)
	if in.IsKeyDown(KeyF1) || !in.IsKeyReleased(KeyF1) {
		t.Fatal("State.KeyboardKey: F1 should be released")
	}
	if k := s.LastKeyReleased(); k != KeyF1 {
		t.Fatalf("State.LastKeyReleased:\nhave %#x\nwant %#x", k, KeyF1)
	}
	s.NextFrame()
	if in.IsKeyReleased(KeyF1) || s.AnyKeyDown() {
		t.Fatal("State.NextFrame: flags not cleared")
	}

	// A tap within one frame is both pressed and released.
	s.KeyboardKey(KeyA, true)
	s.KeyboardKey(KeyA, false)
	if !in.IsKeyPressed(KeyA) || !in.IsKeyReleased(KeyA) || in.IsKeyDown(KeyA) {
		t.Fatal("State.KeyboardKey: tap not recorded")
	}

	s.KeyboardKey(-1, true)
	s.KeyboardKey(KeyCount, true)
	if in.IsKeyDown(-1) || in.IsKeyDown(KeyCount) {
		t.Fatal("State.IsKeyDown: out of range key reported down")
	}

	s.KeyboardKey(KeySpace, true)
	s.KeyboardOut()
	if in.IsKeyDown(KeySpace) {
		t.Fatal("State.KeyboardOut: key still down")
	}
}

func TestModifiers(t *testing.T) {
	var s State
	s.KeyboardKey(KeyShift, true)
	s.KeyboardKey(KeyF1+11, true)

	for _, x := range [...]struct {
		sc   Shortcut
		want bool
	}{
		{Shortcut{Key: KeyF1 + 11}, true},
		{Shortcut{Key: KeyF1 + 11, Shift: true}, true},
		{Shortcut{Key: KeyF1 + 11, Shift: true, Ctrl: true}, false},
		{Shortcut{Key: KeyF1 + 10}, false},
		{Shortcut{}, false},
	} {
		if got := x.sc.Pressed(&s); got != x.want {
			t.Fatalf("Shortcut.Pressed (%v):\nhave %t\nwant %t", x.sc, got, x.want)
		}
	}
	if !IsKeyDownMod(&s, KeyF1+11, false, true, false) || IsKeyDownMod(&s, KeyF1+11, false, false, true) {
		t.Fatal("IsKeyDownMod: wrong result")
	}
}

func TestMouse(t *testing.T) {
	var s State
	s.PointerButton(ButtonRight, true, 10, 20)
	s.PointerMotion(15, 25)
	s.PointerWheel(-120)
	if !s.IsMouseButtonDown(ButtonRight) || !s.IsMouseButtonPressed(ButtonRight) {
		t.Fatal("State.PointerButton: button should be down and pressed")
	}
	if x, y := s.MousePosition(); x != 15 || y != 25 {
		t.Fatalf("State.MousePosition:\nhave %d, %d\nwant 15, 25", x, y)
	}
	s.NextFrame()
	if s.WheelDelta() != 0 || s.IsMouseButtonPressed(ButtonRight) {
		t.Fatal("State.NextFrame: mouse flags not cleared")
	}
	s.PointerButton(ButtonRight, false, 0, 0)
	if !s.IsMouseButtonReleased(ButtonRight) || s.IsMouseButtonDown(ButtonRight) {
		t.Fatal("State.PointerButton: button should be released")
	}
	if s.IsMouseButtonDown(ButtonCount) {
		t.Fatal("State.IsMouseButtonDown: out of range button reported down")
	}
}

func TestParseKey(t *testing.T) {
	for _, x := range [...]struct {
		s    string
		want int
		ok   bool
	}{
		{"F12", 0x7b, true},
		{"f1", KeyF1, true},
		{"Home", KeyHome, true},
		{"q", 0x51, true},
		{"7", 0x37, true},
		{"Pad3", 0x63, true},
		{"0x2C", KeySnapshot, true},
		{"113", 113, true},
		{"Pad+", KeyPadPlus, true},
		{"Hyper", 0, false},
		{"0x100", 0, false},
	} {
		k, ok := ParseKey(x.s)
		if k != x.want || ok != x.ok {
			t.Fatalf("ParseKey(%q):\nhave %#x, %t\nwant %#x, %t", x.s, k, ok, x.want, x.ok)
		}
		if ok && !(x.s[0] == '0' && len(x.s) > 1) && x.s != "113" {
			if k2, _ := ParseKey(KeyName(k)); k2 != k {
				t.Fatalf("ParseKey(KeyName(%#x)):\nhave %#x\nwant %#x", k, k2, k)
			}
		}
	}
}

func TestParseShortcut(t *testing.T) {
	for _, x := range [...]struct {
		s    string
		want Shortcut
		ok   bool
	}{
		{"", Shortcut{}, true},
		{"F12", Shortcut{Key: 0x7b}, true},
		{"Ctrl+Shift+F12", Shortcut{Key: 0x7b, Ctrl: true, Shift: true}, true},
		{"alt + Home", Shortcut{Key: KeyHome, Alt: true}, true},
		{"Ctrl+Pad+", Shortcut{Key: KeyPadPlus, Ctrl: true}, true},
		{"Meta+F1", Shortcut{}, false},
		{"Ctrl+", Shortcut{}, false},
	} {
		sc, ok := ParseShortcut(x.s)
		if sc != x.want || ok != x.ok {
			t.Fatalf("ParseShortcut(%q):\nhave %+v, %t\nwant %+v, %t", x.s, sc, ok, x.want, x.ok)
		}
	}
	sc := Shortcut{Key: KeyHome, Ctrl: true, Alt: true}
	if s := sc.String(); s != "Ctrl+Alt+Home" {
		t.Fatalf("Shortcut.String:\nhave %s\nwant Ctrl+Alt+Home", s)
	}
}
