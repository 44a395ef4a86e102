// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package effect defines compiled post-processing effects.
//
// An effect file compiles into a Module: a set of
// textures, uniform variables and techniques. A technique
// is an ordered list of full-screen passes. GPU objects
// referenced from these types hold one reference each,
// which the Release methods drop.
package effect

import (
	"errors"

	"github.com/gviegas/postfx/driver"
)

// Reserved slots of the effect resource table.
// Every pass's shader resource list starts with them.
const (
	SlotBackBuffer = iota
	SlotBackBufferSRGB
	SlotDepth
	ReservedSlots
)

// Compiler is the interface that compiles effect files.
type Compiler interface {
	// Compile compiles the effect file at path.
	// On failure, the returned error describes every
	// problem found, one per line.
	Compile(path string, opts *Options) (*Module, error)
}

// Macro is a preprocessor definition.
type Macro struct {
	Name, Value string
}

// Options are the parameters of a compilation.
type Options struct {
	// Device creates the module's GPU objects.
	Device driver.Device

	// Macros are predefined for the effect source.
	Macros []Macro

	// Resources is the effect resource table. Its first
	// ReservedSlots entries are copied to the start of
	// every pass's shader resource list.
	Resources []driver.ShaderResourceView

	// Targets are the render target views (linear and
	// sRGB) used by passes that do not name targets.
	Targets [2]driver.RenderTargetView

	// Width and Height are the back buffer size.
	Width, Height int

	// PerformanceMode requests that uniform values be
	// taken from PresetValues and treated as constants.
	PerformanceMode bool

	// PresetValues maps uniform names to values.
	PresetValues map[string][]float32
}

// Lookup returns the value of the named macro.
func (o *Options) Lookup(name string) (string, bool) {
	for _, m := range o.Macros {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// ErrNoSource means that the effect file does not exist.
var ErrNoSource = errors.New("effect: source not found")

// Module is the result of compiling one effect file.
type Module struct {
	Textures   []*Texture
	Uniforms   []*Uniform
	Techniques []*Technique
	Samplers   []driver.SamplerState

	// UniformData is the initial contents of the
	// module's uniform block. Uniform and technique
	// offsets are relative to its start.
	UniformData []byte

	// Warnings reported by the compiler.
	Warnings string
}

// Release releases every GPU object in m.
func (m *Module) Release() {
	for _, t := range m.Techniques {
		t.Release()
	}
	for _, t := range m.Textures {
		t.Release()
	}
	for _, s := range m.Samplers {
		driver.SafeRelease(s)
	}
	m.Samplers = nil
}

// Texture is a texture declared by an effect.
type Texture struct {
	Name          string
	Width, Height int
	Levels        int
	Format        driver.Format
	Annotations   Annotations
	EffectFile    string

	// Texture is nil for textures that alias a reserved
	// slot (i.e., the back buffer and depth).
	Texture driver.Texture2D
	// SRV holds the linear and sRGB views.
	SRV [2]driver.ShaderResourceView
	// RTV holds the linear and sRGB views, if the
	// texture can be rendered to.
	RTV [2]driver.RenderTargetView
}

// Release releases the GPU objects of t.
func (t *Texture) Release() {
	for i := range t.RTV {
		driver.SafeRelease(t.RTV[i])
		t.RTV[i] = nil
	}
	for i := range t.SRV {
		driver.SafeRelease(t.SRV[i])
		t.SRV[i] = nil
	}
	driver.SafeRelease(t.Texture)
	t.Texture = nil
}

// Technique is a named sequence of passes.
type Technique struct {
	Name        string
	EffectFile  string
	Annotations Annotations
	Passes      []*Pass

	// UniformOffset and UniformSize locate the
	// technique's constant block in uniform storage.
	UniformOffset, UniformSize int
	// ConstantBuffer receives the constant block before
	// the technique runs. It is created by the runtime.
	ConstantBuffer driver.Buffer

	Enabled bool
	Hidden  bool

	// Timeout is the number of milliseconds the technique
	// stays enabled once toggled on (0 means forever).
	// Timeleft is the remaining time.
	Timeout, Timeleft int

	// ToggleKey toggles the technique, if non-zero.
	// Values 1 to 6 name mouse buttons; greater values
	// are key codes.
	ToggleKey                           int
	ToggleCtrl, ToggleShift, ToggleAlt bool

	// Statistics, cleared while disabled.
	CPUDuration MovingAverage
	GPUDuration MovingAverage
}

// ApplyAnnotations sets the technique's state from its
// annotations.
func (t *Technique) ApplyAnnotations() {
	a := t.Annotations
	t.Enabled = a.Bool("enabled")
	t.Hidden = a.Bool("hidden")
	t.Timeout = a.Int("timeout")
	t.Timeleft = t.Timeout
	t.ToggleKey = a.Int("toggle")
	t.ToggleCtrl = a.Bool("togglectrl")
	t.ToggleShift = a.Bool("toggleshift")
	t.ToggleAlt = a.Bool("togglealt")
}

// Release releases the GPU objects of t.
func (t *Technique) Release() {
	for _, p := range t.Passes {
		p.Release()
	}
	driver.SafeRelease(t.ConstantBuffer)
	t.ConstantBuffer = nil
}

// Pass is a full-screen draw.
type Pass struct {
	VS, PS       driver.Shader
	Blend        driver.BlendState
	DepthStencil driver.DepthStencilState
	StencilRef   uint32

	// ShaderResources are bound to VS and PS starting at
	// slot 0. The first ReservedSlots entries mirror the
	// effect resource table.
	ShaderResources []driver.ShaderResourceView

	RenderTargets [driver.MaxRenderTargets]driver.RenderTargetView

	// RenderTargetResources are views of the render
	// targets whose mip chains must be regenerated after
	// the pass.
	RenderTargetResources []driver.ShaderResourceView

	Viewport           driver.Viewport
	ClearRenderTargets bool
}

// Release releases the GPU objects of p.
func (p *Pass) Release() {
	driver.SafeRelease(p.VS)
	driver.SafeRelease(p.PS)
	driver.SafeRelease(p.Blend)
	driver.SafeRelease(p.DepthStencil)
	for _, v := range p.ShaderResources {
		driver.SafeRelease(v)
	}
	for _, v := range p.RenderTargets {
		driver.SafeRelease(v)
	}
	for _, v := range p.RenderTargetResources {
		driver.SafeRelease(v)
	}
	*p = Pass{}
}

// SetResource replaces p.ShaderResources[slot] with v,
// moving one reference.
func (p *Pass) SetResource(slot int, v driver.ShaderResourceView) {
	Set(&p.ShaderResources[slot], v)
}

// Set replaces *dst with v, moving one reference.
func Set(dst *driver.ShaderResourceView, v driver.ShaderResourceView) {
	if v != nil {
		v.AddRef()
	}
	driver.SafeRelease(*dst)
	*dst = v
}
