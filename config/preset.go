// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/gviegas/postfx/input"
)

// Preset is a set of uniform values and technique
// settings.
//
// In the file, Techniques is a top-level list, Keys is a
// table mapping technique names to [keycode, ctrl, shift,
// alt] and every other table is named after an effect
// file and maps variable names to lists of floats.
type Preset struct {
	// Techniques lists the enabled techniques, in
	// execution order.
	Techniques []string
	Keys       map[string]input.Shortcut
	// Values maps effect file names to variable values.
	Values map[string]map[string][]float32
}

// NewPreset returns an empty preset.
func NewPreset() *Preset {
	return &Preset{
		Keys:   make(map[string]input.Shortcut),
		Values: make(map[string]map[string][]float32),
	}
}

// Value returns the values of variable in effect.
func (p *Preset) Value(effect, variable string) ([]float32, bool) {
	v, ok := p.Values[effect][variable]
	return v, ok
}

// SetValue sets the values of variable in effect.
func (p *Preset) SetValue(effect, variable string, v []float32) {
	m := p.Values[effect]
	if m == nil {
		m = make(map[string][]float32)
		p.Values[effect] = m
	}
	m[variable] = slices.Clone(v)
}

// ErrPreset means that a preset file is malformed.
var ErrPreset = errors.New("config: invalid preset")

// LoadPreset reads the preset file at path. A missing
// file yields an empty preset.
func LoadPreset(path string) (*Preset, error) {
	p := NewPreset()
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, err
	}
	for k, x := range raw {
		switch k {
		case "Techniques":
			l, ok := x.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: Techniques is not a list", ErrPreset)
			}
			for _, s := range l {
				s, ok := s.(string)
				if !ok {
					return nil, fmt.Errorf("%w: Techniques has non-string element", ErrPreset)
				}
				p.Techniques = append(p.Techniques, s)
			}
		case "Keys":
			t, ok := x.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: Keys is not a table", ErrPreset)
			}
			for name, v := range t {
				l, ok := v.([]any)
				if !ok {
					return nil, fmt.Errorf("%w: key of %s is not a list", ErrPreset, name)
				}
				sc, err := shortcutFrom(l)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrPreset, err)
				}
				p.Keys[name] = sc
			}
		default:
			t, ok := x.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a table", ErrPreset, k)
			}
			for name, v := range t {
				f, err := floats(v)
				if err != nil {
					return nil, fmt.Errorf("%w: %s.%s: %w", ErrPreset, k, name, err)
				}
				p.SetValue(k, name, f)
			}
		}
	}
	return p, nil
}

func floats(v any) ([]float32, error) {
	l, ok := v.([]any)
	if !ok {
		l = []any{v}
	}
	f := make([]float32, len(l))
	for i, x := range l {
		switch x := x.(type) {
		case int64:
			f[i] = float32(x)
		case float64:
			f[i] = float32(x)
		case bool:
			if x {
				f[i] = 1
			}
		default:
			return nil, fmt.Errorf("non-numeric value %v", x)
		}
	}
	return f, nil
}

// SavePreset writes p to path.
func SavePreset(path string, p *Preset) error {
	raw := make(map[string]any, len(p.Values)+2)
	raw["Techniques"] = p.Techniques
	if raw["Techniques"] == nil {
		raw["Techniques"] = []string{}
	}
	keys := make(map[string][]int, len(p.Keys))
	b2i := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	for name, sc := range p.Keys {
		keys[name] = []int{sc.Key, b2i(sc.Ctrl), b2i(sc.Shift), b2i(sc.Alt)}
	}
	raw["Keys"] = keys
	for f, m := range p.Values {
		if f == "Techniques" || f == "Keys" {
			return fmt.Errorf("%w: reserved effect name %q", ErrPreset, f)
		}
		raw[f] = m
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
