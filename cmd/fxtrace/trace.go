// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gviegas/postfx/config"
	"github.com/gviegas/postfx/d3d11"
	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/driver/soft"
	"github.com/gviegas/postfx/effect/manifest"
	"github.com/gviegas/postfx/input"
	"github.com/gviegas/postfx/internal/logging"
)

// Trace is a recorded sequence of frames.
//
//	swap_chain: {width: 1280, height: 720, format: R8G8B8A8_UNORM}
//	depth_targets:
//	  - {name: scene, format: D24_UNORM_S8_UINT}
//	  - {name: shadow, format: D32_FLOAT, width: 1024, height: 1024}
//	frames:
//	  - repeat: 60
//	    draws:
//	      - {depth: shadow, vertices: 4000}
//	      - {depth: scene, vertices: 90000}
//	    clears: [scene]
//	  - keys: [PrintScreen]
//	    draws: [{depth: scene, vertices: 10}]
//	  - resize: {width: 640, height: 360}
type Trace struct {
	SwapChain    SwapChain     `yaml:"swap_chain"`
	DepthTargets []DepthTarget `yaml:"depth_targets"`
	Frames       []Frame       `yaml:"frames"`
}

// SwapChain describes the traced swap chain.
type SwapChain struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Format  string `yaml:"format"`
	Samples int    `yaml:"samples"`
	Buffers int    `yaml:"buffers"`
}

// DepthTarget is a depth-stencil view of the
// application. A zero size means the swap chain size.
type DepthTarget struct {
	Name     string `yaml:"name"`
	Format   string `yaml:"format"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Readable bool   `yaml:"readable"`
}

// Frame is one or more identical frames.
type Frame struct {
	Repeat int      `yaml:"repeat"`
	Draws  []Draw   `yaml:"draws"`
	Clears []string `yaml:"clears"`
	Keys   []string `yaml:"keys"`
	Resize *Size    `yaml:"resize"`
}

// Draw is a draw call with a depth-stencil target bound.
// An empty Depth draws without one.
type Draw struct {
	Depth    string `yaml:"depth"`
	Vertices int    `yaml:"vertices"`
}

// Size is a swap chain size.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ErrTrace means that a trace is invalid.
var ErrTrace = errors.New("fxtrace: invalid trace")

// LoadTrace reads a trace file.
func LoadTrace(path string) (*Trace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTrace(b)
}

// ParseTrace decodes a trace.
func ParseTrace(b []byte) (*Trace, error) {
	var tr Trace
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrace, err)
	}
	if tr.SwapChain.Width <= 0 || tr.SwapChain.Height <= 0 {
		return nil, fmt.Errorf("%w: swap chain size must be positive", ErrTrace)
	}
	if tr.SwapChain.Format == "" {
		tr.SwapChain.Format = driver.FormatRGBA8Unorm.String()
	}
	names := make(map[string]bool)
	for _, d := range tr.DepthTargets {
		if d.Name == "" || names[d.Name] {
			return nil, fmt.Errorf("%w: depth target name %q", ErrTrace, d.Name)
		}
		names[d.Name] = true
	}
	for i, f := range tr.Frames {
		for _, d := range f.Draws {
			if d.Depth != "" && !names[d.Depth] {
				return nil, fmt.Errorf("%w: frame %d: unknown depth target %q", ErrTrace, i, d.Depth)
			}
		}
		for _, c := range f.Clears {
			if !names[c] {
				return nil, fmt.Errorf("%w: frame %d: unknown depth target %q", ErrTrace, i, c)
			}
		}
		for _, k := range f.Keys {
			if _, ok := input.ParseShortcut(k); !ok {
				return nil, fmt.Errorf("%w: frame %d: invalid key %q", ErrTrace, i, k)
			}
		}
	}
	return &tr, nil
}

// Report summarizes a replay.
type Report struct {
	Frames      int
	Techniques  []string
	DepthSource string
	Errors      string
	Draws       int
	Leaked      int
	Violations  []string
}

// player replays a trace on the soft device.
type player struct {
	tr   *Trace
	dev  *soft.Device
	ctx  *soft.Context
	swap *soft.SwapChain
	rt   *d3d11.Runtime
	in   *input.State

	views map[string]driver.DepthStencilView
	texs  map[string]driver.Texture2D
}

// Replay runs tr through a runtime configured by cfg.
func Replay(tr *Trace, cfg *config.Config) (*Report, error) {
	f, ok := driver.ParseFormat(tr.SwapChain.Format)
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %q", ErrTrace, tr.SwapChain.Format)
	}
	p := &player{
		tr:    tr,
		dev:   soft.NewDevice(nil),
		in:    new(input.State),
		views: make(map[string]driver.DepthStencilView),
		texs:  make(map[string]driver.Texture2D),
	}
	p.ctx = p.dev.Soft()
	sc, err := p.dev.NewSwapChain(&driver.SwapChainDesc{
		Width:       tr.SwapChain.Width,
		Height:      tr.SwapChain.Height,
		Format:      f,
		SampleCount: tr.SwapChain.Samples,
		BufferCount: tr.SwapChain.Buffers,
	})
	if err != nil {
		return nil, fmt.Errorf("fxtrace: failed to create swap chain: %w", err)
	}
	p.swap = sc.(*soft.SwapChain)
	p.rt = d3d11.New(p.dev, sc, &d3d11.Options{
		Config:   cfg,
		Compiler: &manifest.Compiler{},
		Input:    p.in,
		CopyVS:   []byte("copy_vs"),
		CopyPS:   []byte("copy_ps"),
	})
	if err := p.createTargets(); err != nil {
		p.close()
		return nil, err
	}
	if err := p.rt.OnInit(sc.Desc()); err != nil {
		p.close()
		return nil, err
	}

	rep := &Report{}
	for _, f := range tr.Frames {
		if f.Resize != nil {
			if err := p.resize(f.Resize); err != nil {
				p.close()
				return nil, err
			}
			continue
		}
		for iter := 0; iter < max(f.Repeat, 1); iter++ {
			p.frame(&f)
			rep.Frames++
		}
	}
	// Let queued effects finish loading.
	for i := 0; i < 1000 && p.rt.Effects().Remaining() != 0; i++ {
		p.frame(&Frame{Draws: []Draw{{Vertices: 3}}})
		rep.Frames++
	}

	for _, t := range p.rt.Effects().Techniques() {
		rep.Techniques = append(rep.Techniques, t.Name)
	}
	rep.Errors = p.rt.Effects().Errors()
	rep.Draws = p.ctx.Draws()
	if r := p.rt.DepthReplacement(); r != nil {
		for name, v := range p.views {
			if driver.Same(v, r.Canonical) {
				rep.DepthSource = name
			}
		}
	}
	p.close()
	rep.Leaked = p.dev.Live()
	rep.Violations = p.dev.Violations()
	return rep, nil
}

func (p *player) createTargets() error {
	d := p.swap.Desc()
	for _, t := range p.tr.DepthTargets {
		f, ok := driver.ParseFormat(t.Format)
		if !ok {
			return fmt.Errorf("%w: depth target %q: unknown format %q", ErrTrace, t.Name, t.Format)
		}
		desc := driver.Tex2DDesc{
			Width:     t.Width,
			Height:    t.Height,
			MipLevels: 1,
			ArraySize: 1,
			Format:    f,
			Sample:    driver.SampleDesc{Count: 1},
			BindFlags: driver.BindDepthStencil,
		}
		if desc.Width == 0 || desc.Height == 0 {
			desc.Width, desc.Height = d.Width, d.Height
		}
		if t.Readable {
			desc.Format = driver.DepthTypeless(f)
			desc.BindFlags |= driver.BindShaderResource
		}
		tex, err := p.dev.CreateTexture2D(&desc, nil)
		if err != nil {
			return fmt.Errorf("fxtrace: depth target %q: %w", t.Name, err)
		}
		p.texs[t.Name] = tex
		v, err := p.dev.CreateDepthStencilView(tex, &driver.DSVDesc{Format: driver.DepthViewFormat(driver.DepthTypeless(f))})
		if err != nil {
			return fmt.Errorf("fxtrace: depth target %q: %w", t.Name, err)
		}
		p.views[t.Name] = v
	}
	return nil
}

func (p *player) releaseTargets() {
	for k, v := range p.views {
		v.Release()
		delete(p.views, k)
	}
	for k, t := range p.texs {
		t.Release()
		delete(p.texs, k)
	}
}

func (p *player) frame(f *Frame) {
	var keys []input.Shortcut
	for _, k := range f.Keys {
		sc, _ := input.ParseShortcut(k)
		keys = append(keys, sc)
		p.press(sc, true)
	}
	for _, d := range f.Draws {
		var v driver.DepthStencilView
		if d.Depth != "" {
			v = p.rt.OnSetDepthStencilView(p.views[d.Depth])
		}
		p.ctx.SetRenderTargets(nil, v)
		p.rt.OnDraw(p.ctx, d.Vertices)
		p.ctx.Draw(d.Vertices, 0)
	}
	for _, c := range f.Clears {
		v := p.rt.OnClearDepthStencilView(p.views[c])
		p.ctx.ClearDepthStencilView(v, driver.ClearDepth|driver.ClearStencil, 1, 0)
	}
	p.rt.OnPresent()
	p.swap.Present()
	for _, sc := range keys {
		p.press(sc, false)
	}
}

func (p *player) press(sc input.Shortcut, down bool) {
	if sc.Ctrl {
		p.in.KeyboardKey(input.KeyControl, down)
	}
	if sc.Shift {
		p.in.KeyboardKey(input.KeyShift, down)
	}
	if sc.Alt {
		p.in.KeyboardKey(input.KeyMenu, down)
	}
	p.in.KeyboardKey(sc.Key, down)
}

// resize recreates the swap chain buffers and every
// target sized after them, as an application does on
// window resize.
func (p *player) resize(s *Size) error {
	p.ctx.SetRenderTargets(nil, nil)
	p.rt.OnReset()
	p.releaseTargets()
	if err := p.swap.ResizeBuffers(s.Width, s.Height); err != nil {
		return fmt.Errorf("fxtrace: failed to resize swap chain: %w", err)
	}
	if err := p.createTargets(); err != nil {
		return err
	}
	logging.L().Info("swap chain resized", zap.Int("width", s.Width), zap.Int("height", s.Height))
	return p.rt.OnInit(p.swap.Desc())
}

func (p *player) close() {
	p.ctx.Unbind()
	p.rt.Close()
	p.releaseTargets()
	p.swap.Release()
}
