// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package postfx

import (
	"math"

	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/input"
)

// Uniform sources.
const (
	SourceFrameTime   = "frametime"
	SourceFrameCount  = "framecount"
	SourcePingPong    = "pingpong"
	SourceDate        = "date"
	SourceTimer       = "timer"
	SourceKey         = "key"
	SourceMousePoint  = "mousepoint"
	SourceMouseButton = "mousebutton"
	SourceRandom      = "random"
)

// updateUniforms writes the current value of every
// uniform variable that has a source.
func (r *Runtime) updateUniforms() {
	for _, u := range r.uniforms {
		switch u.Source() {
		case "":
		case SourceFrameTime:
			r.storage.SetFloats(u, float32(float64(r.lastFrameDuration.Nanoseconds())*1e-6))
		case SourceFrameCount:
			r.setCounter(u, r.frameCount, float32(r.frameCount%16777216))
		case SourcePingPong:
			r.pingPong(u)
		case SourceDate:
			r.storage.SetInts(u, r.date[:]...)
		case SourceTimer:
			ns := uint64(r.lastPresent.Sub(r.start).Nanoseconds())
			r.setCounter(u, ns, float32(math.Mod(float64(ns)*1e-6, 16777216)))
		case SourceKey:
			key := u.Annotations.Int("keycode")
			if key > 7 && key < input.KeyCount {
				r.setButton(u, r.input.IsKeyDown(key), r.input.IsKeyPressed(key))
			}
		case SourceMousePoint:
			x, y := r.input.MousePosition()
			r.storage.SetFloats(u, float32(x), float32(y))
		case SourceMouseButton:
			b := u.Annotations.Int("keycode")
			if b >= 0 && b < input.ButtonCount {
				r.setButton(u, r.input.IsMouseButtonDown(b), r.input.IsMouseButtonPressed(b))
			}
		case SourceRandom:
			lo, hi := u.Annotations.Int("min"), u.Annotations.Int("max")
			v := lo
			if hi > lo {
				v += r.rand.Intn(hi - lo + 1)
			}
			r.storage.SetInts(u, int32(v))
		}
	}
}

// setCounter writes a counter: its parity to booleans,
// its value modulo 2^32-1 to integers and f to floats.
func (r *Runtime) setCounter(u *effect.Uniform, n uint64, f float32) {
	switch u.Type {
	case effect.Bool:
		r.storage.SetBools(u, n&1 == 0)
	case effect.Int, effect.Uint:
		r.storage.SetInts(u, int32(uint32(n%math.MaxUint32)))
	default:
		r.storage.SetFloats(u, f)
	}
}

// setButton writes a key or button state. With the
// "toggle" annotation, the value flips on every press.
func (r *Runtime) setButton(u *effect.Uniform, down, pressed bool) {
	if !u.Annotations.Bool("toggle") {
		r.storage.SetBools(u, down)
		return
	}
	if pressed {
		r.storage.SetBools(u, r.storage.Floats(u)[0] == 0)
	}
}

// pingPong moves the first component of u between the
// "min" and "max" annotations, at a speed in units per
// second given by "step". The second component holds
// the direction.
func (r *Runtime) pingPong(u *effect.Uniform) {
	v := r.storage.Floats(u)
	if len(v) < 2 {
		return
	}
	a := u.Annotations
	lo, hi := float32(a.Float("min")), float32(a.Float("max"))
	var stepMin, stepMax float32
	if s := a.Floats("step"); len(s) > 0 {
		stepMin = float32(s[0])
		if len(s) > 1 {
			stepMax = float32(s[1])
		}
	}
	inc := stepMin
	if stepMax != 0 {
		inc += float32(math.Mod(float64(r.rand.Uint32()&math.MaxInt32), float64(stepMax-stepMin+1)))
	}
	smoothing := float32(a.Float("smoothing"))
	secs := float32(r.lastFrameDuration.Seconds())

	if v[1] >= 0 {
		inc = max(inc-max(0, smoothing-(hi-v[0])), 0.05) * secs
		if v[0] += inc; v[0] >= hi {
			v[0], v[1] = hi, -1
		}
	} else {
		inc = max(inc-max(0, smoothing-(v[0]-lo)), 0.05) * secs
		if v[0] -= inc; v[0] <= lo {
			v[0], v[1] = lo, 1
		}
	}
	r.storage.SetFloats(u, v[0], v[1])
}
