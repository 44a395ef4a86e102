// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package postfx

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/input"
	"github.com/gviegas/postfx/internal/logging"
)

// Reload discards every effect and queues the effect
// files found in the search paths. Files are then
// compiled one per present. Calling Reload while files
// are still queued drops them.
func (r *Runtime) Reload() {
	r.resetEffects()
	r.queue = r.findEffects()
	logging.L().Info("reloading effects", zap.Int("files", len(r.queue)))
}

// Remaining returns the number of effect files still
// queued for loading.
func (r *Runtime) Remaining() int { return len(r.queue) }

func (r *Runtime) findEffects() []string {
	var files []string
	pattern := r.cfg.EffectPattern
	if pattern == "" {
		pattern = "*.fx"
	}
	for _, dir := range r.cfg.EffectSearchPaths {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			logging.L().Warn("invalid effect pattern", zap.String("pattern", pattern), zap.Error(err))
			return nil
		}
		slices.Sort(m)
		files = append(files, m...)
	}
	return slices.Compact(files)
}

func (r *Runtime) resetEffects() {
	if r.backend != nil {
		r.backend.ResetEffects()
	}
	r.textures = nil
	r.uniforms = nil
	r.techniques = nil
	r.storage.Truncate(0)
	r.errLog.Reset()
	r.errs = nil
}

func (r *Runtime) macros() []effect.Macro {
	w, h := r.width, r.height
	perf := 0
	if r.cfg.PerformanceMode {
		perf = 1
	}
	m := []effect.Macro{
		{Name: "__POSTFX__", Value: strconv.Itoa(Version)},
		{Name: "__POSTFX_PERFORMANCE_MODE__", Value: strconv.Itoa(perf)},
		{Name: "__VENDOR__", Value: fmt.Sprintf("0x%x", r.adapter.VendorID)},
		{Name: "__DEVICE__", Value: fmt.Sprintf("0x%x", r.adapter.DeviceID)},
		{Name: "__RENDERER__", Value: fmt.Sprintf("0x%x", r.adapter.FeatureLevel)},
		{Name: "__APPLICATION__", Value: fmt.Sprintf("0x%x", applicationHash())},
		{Name: "BUFFER_WIDTH", Value: strconv.Itoa(w)},
		{Name: "BUFFER_HEIGHT", Value: strconv.Itoa(h)},
	}
	if w > 0 && h > 0 {
		m = append(m,
			effect.Macro{Name: "BUFFER_RCP_WIDTH", Value: strconv.FormatFloat(1/float64(w), 'g', -1, 32)},
			effect.Macro{Name: "BUFFER_RCP_HEIGHT", Value: strconv.FormatFloat(1/float64(h), 'g', -1, 32)})
	}
	for _, d := range r.cfg.PreprocessorDefinitions {
		if d == "" {
			continue
		}
		name, value, ok := strings.Cut(d, "=")
		if !ok {
			value = "1"
		}
		m = append(m, effect.Macro{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return m
}

// applicationHash hashes the executable name.
func applicationHash() uint32 {
	exe, err := os.Executable()
	if err != nil {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe)))))
	return h.Sum32()
}

func (r *Runtime) loadEffect(path string) {
	if r.compiler == nil || r.backend == nil {
		return
	}
	log := logging.L().With(zap.String("path", path))
	name := filepath.Base(path)

	opts := r.backend.CompileOptions()
	opts.Macros = r.macros()
	opts.PerformanceMode = r.cfg.PerformanceMode
	if r.cfg.PerformanceMode && r.preset != nil {
		opts.PresetValues = r.preset.Values[name]
	}

	start := time.Now()
	m, err := r.compiler.Compile(path, &opts)
	if err != nil {
		log.Error("failed to compile effect", zap.Error(err))
		r.appendError(path, err)
		return
	}
	if m.Warnings != "" {
		log.Warn("effect compiled with warnings", zap.String("warnings", m.Warnings))
		r.errLog.WriteString(path + ":\n" + strings.TrimRight(m.Warnings, "\n") + "\n")
	}

	ntex, nuni, ntech, nsto := len(r.textures), len(r.uniforms), len(r.techniques), r.storage.Len()
	base := r.storage.Append(m.UniformData)
	for _, u := range m.Uniforms {
		u.Offset += base
		u.EffectFile = name
	}
	for _, t := range m.Textures {
		t.EffectFile = name
	}
	for _, t := range m.Techniques {
		t.UniformOffset += base
		t.EffectFile = name
		t.ApplyAnnotations()
	}
	r.textures = append(r.textures, m.Textures...)
	r.uniforms = append(r.uniforms, m.Uniforms...)
	r.techniques = append(r.techniques, m.Techniques...)

	if err := r.backend.AddModule(m); err != nil {
		log.Error("failed to initialize effect", zap.Error(err))
		r.appendError(path, err)
		r.textures = r.textures[:ntex]
		r.uniforms = r.uniforms[:nuni]
		r.techniques = r.techniques[:ntech]
		r.storage.Truncate(nsto)
		return
	}
	log.Info("effect loaded",
		zap.Int("techniques", len(m.Techniques)),
		zap.Int("uniforms", len(m.Uniforms)),
		zap.Int("textures", len(m.Textures)),
		zap.Duration("elapsed", time.Since(start)))
}

// Loaded reports whether any technique is loaded.
func (r *Runtime) Loaded() bool { return len(r.techniques) != 0 }

// PrepareEffects evaluates the effects key, technique
// toggle keys and timeouts, and updates every uniform
// variable that has a source. It reports whether any
// technique is to be rendered by RenderEffects.
func (r *Runtime) PrepareEffects() bool {
	if r.cfg.EffectsKey.Pressed(r.input) {
		r.effectsEnabled = !r.effectsEnabled
	}
	if !r.effectsEnabled {
		return false
	}
	r.updateUniforms()

	ms := int(r.lastFrameDuration / time.Millisecond)
	active := false
	for _, t := range r.techniques {
		switch {
		case t.Timeleft > 0:
			t.Timeleft -= ms
			if t.Timeleft <= 0 {
				t.Enabled = false
				t.Timeleft = 0
			}
		case r.toggled(t):
			t.Enabled = !t.Enabled
			t.Timeleft = 0
			if t.Enabled {
				t.Timeleft = t.Timeout
			}
		}
		if !t.Enabled {
			t.CPUDuration.Clear()
			t.GPUDuration.Clear()
			continue
		}
		active = true
	}
	return active
}

func (r *Runtime) toggled(t *effect.Technique) bool {
	k := t.ToggleKey
	switch {
	case k <= 0:
		return false
	case k <= 6:
		return r.input.IsMouseButtonPressed(k - 1)
	}
	return input.IsKeyPressedMod(r.input, k, t.ToggleCtrl, t.ToggleShift, t.ToggleAlt)
}

// RenderEffects renders every enabled technique through
// the backend and returns how many were rendered.
// PrepareEffects must be called first in the frame.
func (r *Runtime) RenderEffects() int {
	if !r.effectsEnabled || r.backend == nil {
		return 0
	}
	n := 0
	for _, t := range r.techniques {
		if !t.Enabled {
			continue
		}
		start := time.Now()
		r.backend.RenderTechnique(t, r.storage.Bytes(t.UniformOffset, t.UniformSize))
		t.CPUDuration.Append(time.Since(start))
		n++
	}
	return n
}

// ErrUnknownTechnique means that a technique name
// matches no loaded technique.
var ErrUnknownTechnique = errors.New("postfx: unknown technique")

// SetTechniqueEnabled enables or disables the named
// technique.
func (r *Runtime) SetTechniqueEnabled(name string, enabled bool) error {
	t := r.Technique(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTechnique, name)
	}
	t.Enabled = enabled
	t.Timeleft = 0
	if enabled {
		t.Timeleft = t.Timeout
	}
	return nil
}
