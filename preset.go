// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package postfx

import (
	"slices"

	"go.uber.org/zap"

	"github.com/gviegas/postfx/config"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/input"
	"github.com/gviegas/postfx/internal/logging"
)

// LoadPreset reads the preset file at path and applies
// it to the loaded effects.
func (r *Runtime) LoadPreset(path string) error {
	p, err := config.LoadPreset(path)
	if err != nil {
		return err
	}
	r.ApplyPreset(p)
	logging.L().Info("preset loaded", zap.String("path", path))
	return nil
}

// ApplyPreset sets uniform values, technique order,
// enabled state and toggle keys from p.
// Techniques that p does not list are disabled and
// moved after the listed ones.
func (r *Runtime) ApplyPreset(p *config.Preset) {
	r.preset = p
	for _, u := range r.uniforms {
		if v, ok := p.Value(u.EffectFile, u.Name); ok {
			r.storage.SetFloats(u, v...)
		}
	}
	pos := func(name string) int {
		if i := slices.Index(p.Techniques, name); i >= 0 {
			return i
		}
		return len(p.Techniques)
	}
	slices.SortStableFunc(r.techniques, func(a, b *effect.Technique) int {
		return pos(a.Name) - pos(b.Name)
	})
	for _, t := range r.techniques {
		t.Enabled = slices.Contains(p.Techniques, t.Name)
		t.Timeleft = 0
		if t.Enabled {
			t.Timeleft = t.Timeout
		}
		if sc, ok := p.Keys[t.Name]; ok {
			t.ToggleKey = sc.Key
			t.ToggleCtrl, t.ToggleShift, t.ToggleAlt = sc.Ctrl, sc.Shift, sc.Alt
		}
	}
}

// Preset returns the state of the loaded effects as a
// preset. Variables with a source are not included.
func (r *Runtime) Preset() *config.Preset {
	p := config.NewPreset()
	for _, u := range r.uniforms {
		if u.Source() != "" {
			continue
		}
		p.SetValue(u.EffectFile, u.Name, r.storage.Floats(u))
	}
	for _, t := range r.techniques {
		if t.Enabled {
			p.Techniques = append(p.Techniques, t.Name)
		}
		if t.ToggleKey != 0 {
			p.Keys[t.Name] = input.Shortcut{
				Key:   t.ToggleKey,
				Ctrl:  t.ToggleCtrl,
				Shift: t.ToggleShift,
				Alt:   t.ToggleAlt,
			}
		}
	}
	return p
}

// SavePreset writes the state of the loaded effects to
// path.
func (r *Runtime) SavePreset(path string) error {
	p := r.Preset()
	if err := config.SavePreset(path, p); err != nil {
		return err
	}
	r.preset = p
	logging.L().Info("preset saved", zap.String("path", path))
	return nil
}
