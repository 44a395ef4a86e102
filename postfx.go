// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package postfx implements the API-independent part of
// a post-processing runtime.
//
// A Runtime keeps the effects loaded from disk, feeds
// their uniform variables every frame, evaluates toggle
// keys and timeouts, loads and saves presets, and takes
// screenshots. A Backend (e.g., d3d11.Runtime) owns the
// GPU side: it creates constant buffers, renders
// techniques and reads back the frame.
package postfx

import (
	"errors"
	"image"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gviegas/postfx/config"
	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/input"
	"github.com/gviegas/postfx/internal/logging"
)

// Version is the value of the __POSTFX__ macro.
const Version = 10000

// Backend is the interface that a graphics API runtime
// implements to execute effects.
type Backend interface {
	// CompileOptions returns the options that effects
	// are compiled with. Views in the options remain
	// owned by the backend.
	CompileOptions() effect.Options

	// AddModule takes ownership of a compiled module
	// and prepares its techniques for rendering. On
	// failure, the module is released.
	AddModule(m *effect.Module) error

	// ResetEffects releases every module added so far.
	ResetEffects()

	// RenderTechnique renders t, using the given
	// contents for its constant block.
	RenderTechnique(t *effect.Technique, constants []byte)

	// UpdateTexture replaces the contents of t with
	// RGBA8 pixels of t.Width*t.Height*4 bytes.
	UpdateTexture(t *effect.Texture, rgba []byte) error

	// CaptureFrame reads back the current frame.
	CaptureFrame() (*image.RGBA, error)
}

// SetLogger sets the logger used by every package of
// the module. A nil l disables logging.
func SetLogger(l *zap.Logger) { logging.Set(l) }

// ErrNotInitialized means that the runtime has no
// back buffer yet.
var ErrNotInitialized = errors.New("postfx: runtime not initialized")

// Runtime is the API-independent effect runtime.
type Runtime struct {
	cfg      *config.Config
	compiler effect.Compiler
	input    input.Input
	backend  Backend

	now  func() time.Time
	rand *rand.Rand

	initialized   bool
	width, height int
	adapter       driver.AdapterDesc

	textures   []*effect.Texture
	uniforms   []*effect.Uniform
	techniques []*effect.Technique
	storage    effect.Storage

	errLog strings.Builder
	errs   error

	queue          []string
	effectsEnabled bool
	preset         *config.Preset

	start             time.Time
	lastPresent       time.Time
	lastFrameDuration time.Duration
	frameCount        uint64
	date              [4]int32

	drawCalls, vertices int

	shots sync.WaitGroup
}

// New creates a new runtime. in may be nil, in which
// case key and mouse sources read as released.
func New(cfg *config.Config, c effect.Compiler, in input.Input, b Backend) *Runtime {
	if cfg == nil {
		cfg = config.Default()
	}
	if in == nil {
		in = new(input.State)
	}
	r := &Runtime{
		cfg:            cfg,
		compiler:       c,
		input:          in,
		backend:        b,
		now:            time.Now,
		rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
		effectsEnabled: true,
	}
	r.start = r.now()
	r.lastPresent = r.start
	return r
}

// Config returns the runtime configuration.
func (r *Runtime) Config() *config.Config { return r.cfg }

// Input returns the input state queried by the runtime.
func (r *Runtime) Input() input.Input { return r.input }

// OnInit initializes the runtime for a back buffer of
// the given size and starts loading effects.
func (r *Runtime) OnInit(width, height int, adapter driver.AdapterDesc) {
	r.width, r.height = width, height
	r.adapter = adapter
	r.initialized = true
	logging.L().Info("runtime initialized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Uint32("vendor", adapter.VendorID),
		zap.Uint32("device", adapter.DeviceID))
	r.Reload()
}

// OnReset discards every effect. OnInit must be called
// again before the runtime is used.
func (r *Runtime) OnReset() {
	if !r.initialized {
		return
	}
	r.resetEffects()
	r.queue = nil
	r.initialized = false
	r.width, r.height = 0, 0
	logging.L().Info("runtime reset")
}

// Initialized reports whether OnInit was called since
// the last reset.
func (r *Runtime) Initialized() bool { return r.initialized }

// Size returns the size of the back buffer.
func (r *Runtime) Size() (width, height int) { return r.width, r.height }

// OnDraw counts a draw call of the current frame.
func (r *Runtime) OnDraw(vertices int) {
	r.drawCalls++
	r.vertices += vertices
}

// DrawCalls returns the number of draw calls and
// vertices of the current frame.
func (r *Runtime) DrawCalls() (drawCalls, vertices int) { return r.drawCalls, r.vertices }

// OnPresent ends the current frame. It takes a
// screenshot when the screenshot key was pressed,
// advances clocks and counters and loads the next
// queued effect.
func (r *Runtime) OnPresent() {
	now := r.now()
	r.lastFrameDuration = now.Sub(r.lastPresent)
	r.lastPresent = now
	r.drawCalls, r.vertices = 0, 0

	if r.initialized && r.cfg.ScreenshotKey.Pressed(r.input) {
		r.takeScreenshot(now)
	}

	if len(r.queue) != 0 && r.frameCount > 1 {
		path := r.queue[0]
		r.queue = r.queue[1:]
		r.loadEffect(path)
		if len(r.queue) == 0 {
			r.loadTextures()
			if p := r.cfg.PresetPath(); p != "" {
				if err := r.LoadPreset(p); err != nil {
					logging.L().Warn("failed to load preset", zap.String("path", p), zap.Error(err))
				}
			}
		}
	}

	y, m, d := now.Date()
	r.date = [4]int32{int32(y), int32(m), int32(d), int32(now.Hour()*3600 + now.Minute()*60 + now.Second())}
	r.frameCount++

	if f, ok := r.input.(interface{ NextFrame() }); ok {
		f.NextFrame()
	}
}

// FrameCount returns the number of frames presented.
func (r *Runtime) FrameCount() uint64 { return r.frameCount }

// LastFrameDuration returns the time between the last
// two presents.
func (r *Runtime) LastFrameDuration() time.Duration { return r.lastFrameDuration }

// EffectsEnabled reports whether effects are rendered.
func (r *Runtime) EffectsEnabled() bool { return r.effectsEnabled }

// SetEffectsEnabled enables or disables every effect.
func (r *Runtime) SetEffectsEnabled(enabled bool) { r.effectsEnabled = enabled }

// Techniques returns the loaded techniques, in
// execution order.
func (r *Runtime) Techniques() []*effect.Technique { return r.techniques }

// Uniforms returns the loaded uniform variables.
func (r *Runtime) Uniforms() []*effect.Uniform { return r.uniforms }

// Textures returns the loaded textures.
func (r *Runtime) Textures() []*effect.Texture { return r.textures }

// Technique returns the named technique, or nil.
func (r *Runtime) Technique(name string) *effect.Technique {
	for _, t := range r.techniques {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Uniform returns the named variable of the given
// effect file, or nil.
func (r *Runtime) Uniform(effectFile, name string) *effect.Uniform {
	for _, u := range r.uniforms {
		if u.EffectFile == effectFile && u.Name == name {
			return u
		}
	}
	return nil
}

// UniformValue returns the values of u.
func (r *Runtime) UniformValue(u *effect.Uniform) []float32 { return r.storage.Floats(u) }

// SetUniformValue sets the values of u.
func (r *Runtime) SetUniformValue(u *effect.Uniform, v ...float32) { r.storage.SetFloats(u, v...) }

// Errors returns the log of effect errors and warnings
// since the last reload.
func (r *Runtime) Errors() string { return r.errLog.String() }

// Err returns every error found since the last reload,
// combined into one, or nil.
func (r *Runtime) Err() error { return r.errs }

func (r *Runtime) appendError(path string, err error) {
	r.errLog.WriteString(path)
	r.errLog.WriteString(":\n")
	r.errLog.WriteString(strings.TrimRight(err.Error(), "\n"))
	r.errLog.WriteString("\n")
	r.errs = multierr.Append(r.errs, err)
}

// Close waits for pending screenshots to be written.
func (r *Runtime) Close() { r.shots.Wait() }
