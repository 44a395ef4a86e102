// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package manifest implements an effect compiler that
// reads YAML effect manifests.
//
// A manifest declares the uniforms, textures, samplers
// and techniques of an effect, and refers to shader
// bytecode compiled ahead of time:
//
//	uniforms:
//	  - name: Strength
//	    type: float
//	    value: [0.5]
//	textures:
//	  - name: Half
//	    width: BUFFER_WIDTH/2
//	    height: BUFFER_HEIGHT/2
//	    format: R8G8B8A8_UNORM
//	techniques:
//	  - name: Bloom
//	    annotations: {enabled: true, toggle: 0x71}
//	    passes:
//	      - {vs: quad.vs.cso, ps: down.ps.cso, targets: [Half]}
//	      - {vs: quad.vs.cso, ps: blend.ps.cso}
//
// Shader paths are relative to the manifest. Passes
// without targets render to the back buffer. Every pass
// binds the reserved resource slots followed by one view
// of each declared texture, in declaration order.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/internal/logging"
)

// Compiler implements effect.Compiler.
// The zero value reads files from the OS file system.
type Compiler struct {
	// FS, if not nil, is used instead of the OS file
	// system. Paths are then slash-separated.
	FS fs.FS
}

type manifest struct {
	Uniforms   []uniformDecl   `yaml:"uniforms"`
	Textures   []textureDecl   `yaml:"textures"`
	Samplers   []samplerDecl   `yaml:"samplers"`
	Techniques []techniqueDecl `yaml:"techniques"`
}

type uniformDecl struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Rows        int            `yaml:"rows"`
	Columns     int            `yaml:"columns"`
	Elements    int            `yaml:"elements"`
	Value       []float32      `yaml:"value"`
	Annotations map[string]any `yaml:"annotations"`
}

type textureDecl struct {
	Name        string         `yaml:"name"`
	Width       string         `yaml:"width"`
	Height      string         `yaml:"height"`
	Levels      int            `yaml:"levels"`
	Format      string         `yaml:"format"`
	SRGB        bool           `yaml:"srgb"`
	Annotations map[string]any `yaml:"annotations"`
}

type samplerDecl struct {
	Filter  string `yaml:"filter"`
	Address string `yaml:"address"`
}

type techniqueDecl struct {
	Name        string         `yaml:"name"`
	When        string         `yaml:"when"`
	Annotations map[string]any `yaml:"annotations"`
	Passes      []passDecl     `yaml:"passes"`
}

type passDecl struct {
	VS         string       `yaml:"vs"`
	PS         string       `yaml:"ps"`
	Targets    []string     `yaml:"targets"`
	SRGB       bool         `yaml:"srgb"`
	Clear      bool         `yaml:"clear"`
	Blend      *blendDecl   `yaml:"blend"`
	Stencil    *stencilDecl `yaml:"stencil"`
	StencilRef uint32       `yaml:"stencil_ref"`
}

type blendDecl struct {
	Src       string `yaml:"src"`
	Dst       string `yaml:"dst"`
	Op        string `yaml:"op"`
	SrcAlpha  string `yaml:"src_alpha"`
	DstAlpha  string `yaml:"dst_alpha"`
	OpAlpha   string `yaml:"op_alpha"`
	WriteMask *uint8 `yaml:"write_mask"`
}

type stencilDecl struct {
	Func      string `yaml:"func"`
	Pass      string `yaml:"pass"`
	Fail      string `yaml:"fail"`
	DepthFail string `yaml:"depth_fail"`
	ReadMask  *uint8 `yaml:"read_mask"`
	WriteMask *uint8 `yaml:"write_mask"`
}

// build holds the state of one compilation.
type build struct {
	c       *Compiler
	path    string
	dir     string
	opts    *effect.Options
	mod     *effect.Module
	shaders map[string]driver.Shader
	texs    map[string]*effect.Texture
	err     error
}

func (b *build) errorf(format string, args ...any) {
	b.err = multierr.Append(b.err, fmt.Errorf("%s: error: "+format, append([]any{b.path}, args...)...))
}

func (c *Compiler) readFile(name string) ([]byte, error) {
	if c.FS != nil {
		return fs.ReadFile(c.FS, filepath.ToSlash(name))
	}
	return os.ReadFile(name)
}

// Compile implements effect.Compiler.
func (c *Compiler) Compile(path string, opts *effect.Options) (*effect.Module, error) {
	src, err := c.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", effect.ErrNoSource, path)
		}
		return nil, err
	}
	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%s: error: %w", path, err)
	}

	b := &build{
		c:       c,
		path:    path,
		dir:     filepath.Dir(path),
		opts:    opts,
		mod:     &effect.Module{},
		shaders: make(map[string]driver.Shader),
		texs:    make(map[string]*effect.Texture),
	}
	defer func() {
		for _, s := range b.shaders {
			s.Release()
		}
	}()

	b.uniforms(m.Uniforms)
	b.textures(m.Textures)
	b.samplers(m.Samplers)
	if b.err == nil {
		b.techniques(m.Techniques)
	}
	if b.err != nil {
		b.mod.Release()
		return nil, b.err
	}
	logging.L().Debug("effect compiled",
		zap.String("path", path),
		zap.Int("techniques", len(b.mod.Techniques)),
		zap.Int("textures", len(b.mod.Textures)),
		zap.Int("uniforms", len(b.mod.Uniforms)))
	return b.mod, nil
}

var types = map[string]effect.Type{
	"bool":  effect.Bool,
	"int":   effect.Int,
	"uint":  effect.Uint,
	"float": effect.Float,
}

// uniforms lays out the uniform block using HLSL
// constant buffer packing: no variable straddles a
// 16-byte boundary.
func (b *build) uniforms(decls []uniformDecl) {
	var st effect.Storage
	var values [][]float32
	off := 0
	seen := make(map[string]bool)
	for _, d := range decls {
		if d.Name == "" {
			b.errorf("uniform without name")
			continue
		}
		if seen[d.Name] {
			b.errorf("redefinition of uniform %q", d.Name)
			continue
		}
		seen[d.Name] = true
		typ, ok := types[d.Type]
		if !ok {
			b.errorf("uniform %q: unknown type %q", d.Name, d.Type)
			continue
		}
		u := &effect.Uniform{
			Name:        d.Name,
			Type:        typ,
			Rows:        max(d.Rows, 1),
			Columns:     max(d.Columns, 1),
			Elements:    d.Elements,
			Annotations: effect.Annotations(d.Annotations),
		}
		if u.Rows > 4 || u.Columns > 4 {
			b.errorf("uniform %q: invalid dimensions %dx%d", d.Name, u.Rows, u.Columns)
			continue
		}
		u.Size = u.Rows * u.Columns * max(u.Elements, 1) * 4
		if u.Size > 16 || off%16+u.Size > 16 {
			off = (off + 15) &^ 15
		}
		u.Offset = off
		off += u.Size
		b.mod.Uniforms = append(b.mod.Uniforms, u)
		values = append(values, d.Value)
	}
	st.Append(make([]byte, (off+15)&^15))
	for i, u := range b.mod.Uniforms {
		v := values[i]
		if b.opts.PerformanceMode && u.Source() == "" {
			if p, ok := b.opts.PresetValues[u.Name]; ok {
				v = p
			}
		}
		st.SetFloats(u, v...)
	}
	b.mod.UniformData = st.Bytes(0, st.Len())
}

// dimension evaluates a texture dimension: an integer or
// a macro name, optionally followed by "/n" or "*n".
func (b *build) dimension(expr string) (int, error) {
	expr = strings.TrimSpace(expr)
	var op byte
	var rhs int
	if i := strings.IndexAny(expr, "/*"); i >= 0 {
		op = expr[i]
		n, err := strconv.Atoi(strings.TrimSpace(expr[i+1:]))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid dimension %q", expr)
		}
		rhs = n
		expr = strings.TrimSpace(expr[:i])
	}
	if v, ok := b.opts.Lookup(expr); ok {
		expr = v
	}
	n, err := strconv.Atoi(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid dimension %q", expr)
	}
	switch op {
	case '/':
		n /= rhs
	case '*':
		n *= rhs
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid dimension %q", expr)
	}
	return n, nil
}

func (b *build) textures(decls []textureDecl) {
	dev := b.opts.Device
	for _, d := range decls {
		if d.Name == "" {
			b.errorf("texture without name")
			continue
		}
		if _, dup := b.texs[d.Name]; dup {
			b.errorf("redefinition of texture %q", d.Name)
			continue
		}
		w, err := b.dimension(d.Width)
		if err != nil {
			b.errorf("texture %q: %w", d.Name, err)
			continue
		}
		h, err := b.dimension(d.Height)
		if err != nil {
			b.errorf("texture %q: %w", d.Name, err)
			continue
		}
		f := driver.FormatRGBA8Unorm
		if d.Format != "" {
			var ok bool
			if f, ok = driver.ParseFormat(d.Format); !ok {
				b.errorf("texture %q: unknown format %q", d.Name, d.Format)
				continue
			}
		}
		t := &effect.Texture{
			Name:        d.Name,
			Width:       w,
			Height:      h,
			Levels:      max(d.Levels, 1),
			Format:      f,
			Annotations: effect.Annotations(d.Annotations),
		}
		if t.Annotations == nil {
			t.Annotations = effect.Annotations{}
		}
		if d.SRGB {
			t.Annotations["srgb"] = true
		}
		if err := b.createTexture(dev, t); err != nil {
			b.errorf("texture %q: %w", d.Name, err)
			t.Release()
			continue
		}
		b.texs[d.Name] = t
		b.mod.Textures = append(b.mod.Textures, t)
	}
}

// createTexture creates the texture in its typeless
// format, with linear and sRGB views.
func (b *build) createTexture(dev driver.Device, t *effect.Texture) error {
	desc := driver.Tex2DDesc{
		Width:     t.Width,
		Height:    t.Height,
		MipLevels: t.Levels,
		ArraySize: 1,
		Format:    driver.TypelessOf(t.Format),
		Sample:    driver.SampleDesc{Count: 1},
		BindFlags: driver.BindShaderResource | driver.BindRenderTarget,
	}
	if t.Levels > 1 {
		desc.MiscFlags = driver.MiscGenerateMips
	}
	tex, err := dev.CreateTexture2D(&desc, nil)
	if err != nil {
		return err
	}
	t.Texture = tex
	formats := [2]driver.Format{driver.NormalOf(t.Format), driver.SRGBOf(t.Format)}
	for i, f := range formats {
		if t.SRV[i], err = dev.CreateShaderResourceView(tex, &driver.SRVDesc{Format: f, MipLevels: t.Levels}); err != nil {
			return err
		}
		if t.RTV[i], err = dev.CreateRenderTargetView(tex, &driver.RTVDesc{Format: f}); err != nil {
			return err
		}
	}
	return nil
}

var filters = map[string]driver.Filter{
	"":            driver.FilterMinMagMipLinear,
	"linear":      driver.FilterMinMagMipLinear,
	"point":       driver.FilterMinMagMipPoint,
	"anisotropic": driver.FilterAnisotropic,
}

var addresses = map[string]driver.AddressMode{
	"":       driver.AddressClamp,
	"clamp":  driver.AddressClamp,
	"wrap":   driver.AddressWrap,
	"mirror": driver.AddressMirror,
	"border": driver.AddressBorder,
}

func (b *build) samplers(decls []samplerDecl) {
	for i, d := range decls {
		f, ok := filters[d.Filter]
		if !ok {
			b.errorf("sampler %d: unknown filter %q", i, d.Filter)
			continue
		}
		a, ok := addresses[d.Address]
		if !ok {
			b.errorf("sampler %d: unknown address mode %q", i, d.Address)
			continue
		}
		s, err := b.opts.Device.CreateSamplerState(&driver.SamplerDesc{
			Filter:        f,
			AddressU:      a,
			AddressV:      a,
			AddressW:      a,
			MaxAnisotropy: 1,
			Comparison:    driver.CmpNever,
			MaxLOD:        3.402823466e+38,
		})
		if err != nil {
			b.errorf("sampler %d: %w", i, err)
			continue
		}
		b.mod.Samplers = append(b.mod.Samplers, s)
	}
}

// enabled evaluates a technique condition: a macro name
// (true if defined and not "0") or NAME=VALUE.
func (b *build) enabled(when string) bool {
	if when == "" {
		return true
	}
	name, want, cmp := strings.Cut(when, "=")
	v, ok := b.opts.Lookup(strings.TrimSpace(name))
	if cmp {
		return ok && v == strings.TrimSpace(want)
	}
	return ok && v != "0"
}

func (b *build) techniques(decls []techniqueDecl) {
	for _, d := range decls {
		if !b.enabled(d.When) {
			continue
		}
		if len(d.Passes) == 0 {
			b.errorf("technique %q has no passes", d.Name)
			continue
		}
		t := &effect.Technique{
			Name:          d.Name,
			EffectFile:    b.path,
			Annotations:   effect.Annotations(d.Annotations),
			UniformOffset: 0,
			UniformSize:   len(b.mod.UniformData),
		}
		if t.Annotations == nil {
			t.Annotations = effect.Annotations{}
		}
		b.mod.Techniques = append(b.mod.Techniques, t)
		for i, pd := range d.Passes {
			p, err := b.pass(&pd)
			if err != nil {
				b.errorf("technique %q, pass %d: %w", d.Name, i, err)
				continue
			}
			t.Passes = append(t.Passes, p)
		}
	}
}

func (b *build) shader(name string, stage driver.Stage) (driver.Shader, error) {
	if name == "" {
		return nil, fmt.Errorf("missing %s", stage)
	}
	path := filepath.Join(b.dir, name)
	if s, ok := b.shaders[path]; ok {
		if s.Stage() != stage {
			return nil, fmt.Errorf("%s used as %s", name, stage)
		}
		s.AddRef()
		return s, nil
	}
	code, err := b.c.readFile(path)
	if err != nil {
		return nil, err
	}
	var s driver.Shader
	if stage == driver.VS {
		s, err = b.opts.Device.CreateVertexShader(code)
	} else {
		s, err = b.opts.Device.CreatePixelShader(code)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	b.shaders[path] = s
	s.AddRef()
	return s, nil
}

func (b *build) pass(d *passDecl) (p *effect.Pass, err error) {
	p = &effect.Pass{ClearRenderTargets: d.Clear, StencilRef: d.StencilRef}
	defer func() {
		if err != nil {
			p.Release()
			p = nil
		}
	}()
	dev := b.opts.Device
	if p.VS, err = b.shader(d.VS, driver.VS); err != nil {
		return
	}
	if p.PS, err = b.shader(d.PS, driver.PS); err != nil {
		return
	}

	srgb := 0
	if d.SRGB {
		srgb = 1
	}
	targets := make(map[string]bool)
	if len(d.Targets) == 0 {
		p.RenderTargets[0] = b.opts.Targets[srgb]
		if p.RenderTargets[0] != nil {
			p.RenderTargets[0].AddRef()
		}
		p.Viewport = driver.Viewport{Width: float32(b.opts.Width), Height: float32(b.opts.Height), MaxDepth: 1}
	} else {
		if len(d.Targets) > driver.MaxRenderTargets {
			return p, fmt.Errorf("too many render targets (%d)", len(d.Targets))
		}
		for i, name := range d.Targets {
			t, ok := b.texs[name]
			if !ok {
				return p, fmt.Errorf("unknown render target %q", name)
			}
			if i == 0 {
				p.Viewport = driver.Viewport{Width: float32(t.Width), Height: float32(t.Height), MaxDepth: 1}
			} else if float32(t.Width) != p.Viewport.Width || float32(t.Height) != p.Viewport.Height {
				return p, fmt.Errorf("render target %q does not match the size of %q", name, d.Targets[0])
			}
			targets[name] = true
			t.RTV[srgb].AddRef()
			p.RenderTargets[i] = t.RTV[srgb]
			if t.Levels > 1 {
				t.SRV[0].AddRef()
				p.RenderTargetResources = append(p.RenderTargetResources, t.SRV[0])
			}
		}
	}

	p.ShaderResources = make([]driver.ShaderResourceView, effect.ReservedSlots+len(b.mod.Textures))
	for i := 0; i < effect.ReservedSlots; i++ {
		if i < len(b.opts.Resources) {
			effect.Set(&p.ShaderResources[i], b.opts.Resources[i])
		}
	}
	for i, t := range b.mod.Textures {
		if targets[t.Name] {
			continue
		}
		v := 0
		if t.Annotations.Bool("srgb") {
			v = 1
		}
		effect.Set(&p.ShaderResources[effect.ReservedSlots+i], t.SRV[v])
	}

	bd, err := blendDesc(d.Blend)
	if err != nil {
		return
	}
	if p.Blend, err = dev.CreateBlendState(bd); err != nil {
		return
	}
	dsd, err := stencilDesc(d.Stencil)
	if err != nil {
		return
	}
	p.DepthStencil, err = dev.CreateDepthStencilState(dsd)
	return
}
