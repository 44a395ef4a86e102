// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package manifest

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/multierr"

	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/driver/soft"
	"github.com/gviegas/postfx/effect"
)

const bloom = `
uniforms:
  - {name: Strength, type: float, value: [0.5]}
  - {name: Tint, type: float, columns: 3, value: [1, 0.5, 0.25]}
  - {name: Frame, type: int, annotations: {source: framecount}}
  - {name: Weights, type: float, columns: 4, value: [1, 2, 3, 4]}
textures:
  - {name: Half, width: BUFFER_WIDTH/2, height: BUFFER_HEIGHT/2}
  - {name: Lut, width: 32, height: 32, levels: 3, format: R16G16B16A16_FLOAT}
  - {name: Color, width: BUFFER_WIDTH, height: BUFFER_HEIGHT, srgb: true}
samplers:
  - {filter: point, address: wrap}
  - {}
techniques:
  - name: Bloom
    annotations: {enabled: true, toggle: 0x71}
    passes:
      - {vs: quad.vs, ps: down.ps, targets: [Half], clear: true}
      - vs: quad.vs
        ps: blend.ps
        srgb: true
        blend: {src: src_alpha, dst: inv_src_alpha}
  - name: Debug
    when: SHOW_DEBUG
    passes:
      - {vs: quad.vs, ps: debug.ps}
  - name: Lut
    when: LUT_MODE=1
    passes:
      - vs: quad.vs
        ps: lut.ps
        targets: [Lut]
        stencil: {func: equal, pass: replace}
        stencil_ref: 3
`

func testFS(files map[string]string) fstest.MapFS {
	m := fstest.MapFS{
		"fx/quad.vs":  {Data: []byte("quad")},
		"fx/down.ps":  {Data: []byte("down")},
		"fx/blend.ps": {Data: []byte("blend")},
		"fx/debug.ps": {Data: []byte("debug")},
		"fx/lut.ps":   {Data: []byte("lut")},
	}
	for k, v := range files {
		m[k] = &fstest.MapFile{Data: []byte(v)}
	}
	return m
}

// testOpts returns options with a back buffer of
// 64x32 and its views.
func testOpts(t *testing.T, dev *soft.Device) *effect.Options {
	t.Helper()
	bb, err := dev.CreateTexture2D(&driver.Tex2DDesc{
		Width:     64,
		Height:    32,
		MipLevels: 1,
		ArraySize: 1,
		Format:    driver.FormatRGBA8Typeless,
		Sample:    driver.SampleDesc{Count: 1},
		BindFlags: driver.BindRenderTarget | driver.BindShaderResource,
	}, nil)
	if err != nil {
		t.Fatalf("Device.CreateTexture2D: unexpected error: %v", err)
	}
	defer bb.Release()
	opts := &effect.Options{
		Device: dev,
		Macros: []effect.Macro{
			{Name: "BUFFER_WIDTH", Value: "64"},
			{Name: "BUFFER_HEIGHT", Value: "32"},
			{Name: "LUT_MODE", Value: "1"},
		},
		Resources: make([]driver.ShaderResourceView, effect.ReservedSlots),
		Width:     64,
		Height:    32,
	}
	for i, f := range [2]driver.Format{driver.FormatRGBA8Unorm, driver.FormatRGBA8UnormSRGB} {
		if opts.Targets[i], err = dev.CreateRenderTargetView(bb, &driver.RTVDesc{Format: f}); err != nil {
			t.Fatalf("Device.CreateRenderTargetView: unexpected error: %v", err)
		}
		if opts.Resources[i], err = dev.CreateShaderResourceView(bb, &driver.SRVDesc{Format: f, MipLevels: 1}); err != nil {
			t.Fatalf("Device.CreateShaderResourceView: unexpected error: %v", err)
		}
	}
	return opts
}

func releaseOpts(o *effect.Options) {
	for _, v := range o.Targets {
		driver.SafeRelease(v)
	}
	for _, v := range o.Resources {
		driver.SafeRelease(v)
	}
}

func TestCompile(t *testing.T) {
	dev := soft.NewDevice(nil)
	opts := testOpts(t, dev)
	c := &Compiler{FS: testFS(map[string]string{"fx/bloom.yaml": bloom})}

	m, err := c.Compile("fx/bloom.yaml", opts)
	if err != nil {
		t.Fatalf("Compiler.Compile: unexpected error: %v", err)
	}

	offsets := []int{0, 4, 16, 32}
	for i, u := range m.Uniforms {
		if u.Offset != offsets[i] {
			t.Fatalf("Uniform.Offset (%s):\nhave %d\nwant %d", u.Name, u.Offset, offsets[i])
		}
	}
	if n := len(m.UniformData); n != 48 {
		t.Fatalf("Module.UniformData:\nhave %d bytes\nwant 48", n)
	}
	var st effect.Storage
	st.Append(m.UniformData)
	if v := st.Floats(m.Uniforms[1]); v[0] != 1 || v[1] != 0.5 || v[2] != 0.25 {
		t.Fatalf("Storage.Floats:\nhave %v\nwant [1 0.5 0.25]", v)
	}
	if s := m.Uniforms[2].Source(); s != "framecount" {
		t.Fatalf("Uniform.Source:\nhave %q\nwant framecount", s)
	}

	if n := len(m.Textures); n != 3 {
		t.Fatalf("Module.Textures:\nhave %d\nwant 3", n)
	}
	half := m.Textures[0]
	if half.Width != 32 || half.Height != 16 {
		t.Fatalf("Texture size:\nhave %dx%d\nwant 32x16", half.Width, half.Height)
	}
	desc := half.Texture.(*soft.Texture).Desc()
	if desc.Format != driver.FormatRGBA8Typeless {
		t.Fatalf("Tex2DDesc.Format:\nhave %v\nwant %v", desc.Format, driver.FormatRGBA8Typeless)
	}
	lut := m.Textures[1].Texture.(*soft.Texture).Desc()
	if lut.MiscFlags&driver.MiscGenerateMips == 0 || lut.MipLevels != 3 {
		t.Fatalf("Tex2DDesc (Lut):\nhave %+v\nwant 3 levels with MiscGenerateMips", lut)
	}
	if n := len(m.Samplers); n != 2 {
		t.Fatalf("Module.Samplers:\nhave %d\nwant 2", n)
	}

	// Debug is excluded since SHOW_DEBUG is undefined.
	var names []string
	for _, tech := range m.Techniques {
		names = append(names, tech.Name)
	}
	if s := strings.Join(names, ","); s != "Bloom,Lut" {
		t.Fatalf("Module.Techniques:\nhave %s\nwant Bloom,Lut", s)
	}

	bl := m.Techniques[0]
	if bl.UniformSize != 48 || len(bl.Passes) != 2 {
		t.Fatalf("Technique (Bloom):\nhave size %d, %d passes\nwant size 48, 2 passes", bl.UniformSize, len(bl.Passes))
	}
	bl.ApplyAnnotations()
	if !bl.Enabled || bl.ToggleKey != 0x71 {
		t.Fatalf("Technique.ApplyAnnotations:\nhave enabled %t, toggle %#x", bl.Enabled, bl.ToggleKey)
	}

	p0, p1 := bl.Passes[0], bl.Passes[1]
	if !driver.Same(p0.RenderTargets[0], half.RTV[0]) || !p0.ClearRenderTargets {
		t.Fatal("Pass.RenderTargets: first pass does not render to Half")
	}
	if p0.Viewport.Width != 32 || p0.Viewport.Height != 16 {
		t.Fatalf("Pass.Viewport:\nhave %+v\nwant 32x16", p0.Viewport)
	}
	if n := len(p0.ShaderResources); n != effect.ReservedSlots+3 {
		t.Fatalf("Pass.ShaderResources:\nhave %d\nwant %d", n, effect.ReservedSlots+3)
	}
	if p0.ShaderResources[effect.ReservedSlots] != nil {
		t.Fatal("Pass.ShaderResources: render target bound as input")
	}
	if !driver.Same(p1.ShaderResources[effect.ReservedSlots], half.SRV[0]) {
		t.Fatal("Pass.ShaderResources: Half not bound to the second pass")
	}
	if !driver.Same(p1.ShaderResources[effect.ReservedSlots+2], m.Textures[2].SRV[1]) {
		t.Fatal("Pass.ShaderResources: sRGB texture not bound through its sRGB view")
	}
	if !driver.Same(p1.ShaderResources[effect.SlotBackBuffer], opts.Resources[effect.SlotBackBuffer]) {
		t.Fatal("Pass.ShaderResources: reserved slot not copied")
	}
	if !driver.Same(p1.RenderTargets[0], opts.Targets[1]) || p1.Viewport.Width != 64 {
		t.Fatal("Pass.RenderTargets: second pass does not render to the sRGB back buffer")
	}
	bd := p1.Blend.(interface{ Desc() driver.BlendDesc }).Desc()
	if rt := bd.RenderTarget[0]; !rt.Enable || rt.Src != driver.BlendSrcAlpha || rt.Dst != driver.BlendInvSrcAlpha {
		t.Fatalf("BlendDesc:\nhave %+v", rt)
	}

	// Shaders are shared between passes.
	if !driver.Same(p0.VS, p1.VS) {
		t.Fatal("Pass.VS: shader not shared")
	}
	if n := soft.Refs(p0.VS); n != 3 {
		t.Fatalf("soft.Refs (VS):\nhave %d\nwant 3", n)
	}

	lp := m.Techniques[1].Passes[0]
	dd := lp.DepthStencil.(interface {
		Desc() driver.DepthStencilDesc
	}).Desc()
	if !dd.StencilEnable || dd.DepthEnable || dd.Front.Func != driver.CmpEqual || dd.Front.Pass != driver.StencilReplace || lp.StencilRef != 3 {
		t.Fatalf("DepthStencilDesc:\nhave %+v", dd)
	}
	if n := len(lp.RenderTargetResources); n != 1 {
		t.Fatalf("Pass.RenderTargetResources:\nhave %d\nwant 1", n)
	}

	m.Release()
	releaseOpts(opts)
	if n := dev.Live(); n != 0 {
		t.Fatalf("Device.Live:\nhave %d (%v)\nwant 0", n, dev.LiveKinds())
	}
}

func TestCompileErrors(t *testing.T) {
	const src = `
uniforms:
  - {name: A, type: double}
  - {name: B, type: float}
  - {name: B, type: float}
textures:
  - {name: T, width: 16, height: 16, format: R9_MAGIC}
  - {name: U, width: WHATEVER, height: 16}
  - {name: V, width: 16, height: 16}
techniques:
  - name: X
    passes:
      - {vs: quad.vs, ps: down.ps, targets: [V]}
`
	dev := soft.NewDevice(nil)
	opts := testOpts(t, dev)
	c := &Compiler{FS: testFS(map[string]string{"bad.yaml": src})}

	m, err := c.Compile("bad.yaml", opts)
	if m != nil || err == nil {
		t.Fatal("Compiler.Compile:\nhave nil error\nwant failure")
	}
	if n := len(multierr.Errors(err)); n != 4 {
		t.Fatalf("multierr.Errors:\nhave %d\nwant 4\n%v", n, err)
	}
	if s := err.Error(); !strings.HasPrefix(s, "bad.yaml: error: ") {
		t.Fatalf("Compiler.Compile: error format:\nhave %q", s)
	}
	releaseOpts(opts)
	if n := dev.Live(); n != 0 {
		t.Fatalf("Device.Live:\nhave %d (%v)\nwant 0", n, dev.LiveKinds())
	}
}

func TestCompilePassErrors(t *testing.T) {
	const src = `
textures:
  - {name: A, width: 16, height: 16}
  - {name: B, width: 8, height: 8}
techniques:
  - name: X
    passes:
      - {vs: quad.vs, ps: down.ps, targets: [A, B]}
      - {vs: quad.vs, ps: missing.ps}
      - {vs: down.ps, ps: down.ps}
      - {vs: quad.vs, ps: blend.ps, blend: {op: multiply}}
`
	dev := soft.NewDevice(nil)
	opts := testOpts(t, dev)
	c := &Compiler{FS: testFS(map[string]string{"bad.yaml": src})}

	if _, err := c.Compile("bad.yaml", opts); len(multierr.Errors(err)) != 4 {
		t.Fatalf("Compiler.Compile:\nhave %v\nwant 4 errors", err)
	}
	releaseOpts(opts)
	if n := dev.Live(); n != 0 {
		t.Fatalf("Device.Live:\nhave %d (%v)\nwant 0", n, dev.LiveKinds())
	}
}

func TestCompileDeviceFailure(t *testing.T) {
	dev := soft.NewDevice(nil)
	opts := testOpts(t, dev)
	c := &Compiler{FS: testFS(map[string]string{"fx/bloom.yaml": bloom})}

	dev.FailNext("CreateBlendState", driver.ErrNoDeviceMemory)
	_, err := c.Compile("fx/bloom.yaml", opts)
	if !errors.Is(err, driver.ErrNoDeviceMemory) {
		t.Fatalf("Compiler.Compile:\nhave %v\nwant %v", err, driver.ErrNoDeviceMemory)
	}
	releaseOpts(opts)
	if n := dev.Live(); n != 0 {
		t.Fatalf("Device.Live:\nhave %d (%v)\nwant 0", n, dev.LiveKinds())
	}
}

func TestNoSource(t *testing.T) {
	c := &Compiler{FS: testFS(nil)}
	_, err := c.Compile("none.yaml", &effect.Options{})
	if !errors.Is(err, effect.ErrNoSource) {
		t.Fatalf("Compiler.Compile:\nhave %v\nwant %v", err, effect.ErrNoSource)
	}
}

func TestUnknownField(t *testing.T) {
	c := &Compiler{FS: testFS(map[string]string{"x.yaml": "techniques:\n  - {name: X, pases: []}\n"})}
	_, err := c.Compile("x.yaml", &effect.Options{})
	if err == nil || !strings.Contains(err.Error(), "pases") {
		t.Fatalf("Compiler.Compile:\nhave %v\nwant unknown field error", err)
	}
}

func TestPerformanceMode(t *testing.T) {
	const src = `
uniforms:
  - {name: Strength, type: float, value: [0.5]}
  - {name: Timer, type: float, annotations: {source: timer}}
techniques:
  - name: X
    passes:
      - {vs: quad.vs, ps: down.ps}
`
	dev := soft.NewDevice(nil)
	opts := testOpts(t, dev)
	opts.PerformanceMode = true
	opts.PresetValues = map[string][]float32{"Strength": {2}, "Timer": {9}}
	c := &Compiler{FS: testFS(map[string]string{"fx/p.yaml": src})}

	m, err := c.Compile("fx/p.yaml", opts)
	if err != nil {
		t.Fatalf("Compiler.Compile: unexpected error: %v", err)
	}
	var st effect.Storage
	st.Append(m.UniformData)
	if v := st.Floats(m.Uniforms[0]); v[0] != 2 {
		t.Fatalf("Storage.Floats (Strength):\nhave %v\nwant [2]", v)
	}
	// Uniforms fed by the runtime ignore presets.
	if v := st.Floats(m.Uniforms[1]); v[0] != 0 {
		t.Fatalf("Storage.Floats (Timer):\nhave %v\nwant [0]", v)
	}
	m.Release()
	releaseOpts(opts)
}

func TestDimension(t *testing.T) {
	b := &build{opts: &effect.Options{Macros: []effect.Macro{{Name: "BUFFER_WIDTH", Value: "1920"}}}}
	for _, x := range [...]struct {
		expr string
		want int
		ok   bool
	}{
		{"256", 256, true},
		{"BUFFER_WIDTH", 1920, true},
		{"BUFFER_WIDTH / 4", 480, true},
		{"BUFFER_WIDTH*2", 3840, true},
		{"BUFFER_HEIGHT", 0, false},
		{"BUFFER_WIDTH/0", 0, false},
		{"-1", 0, false},
	} {
		n, err := b.dimension(x.expr)
		if (err == nil) != x.ok || n != x.want {
			t.Fatalf("dimension(%q):\nhave %d, %v\nwant %d", x.expr, n, err, x.want)
		}
	}
}

func TestTextureSRGB(t *testing.T) {
	const src = `
textures:
  - {name: Color, width: 8, height: 8, format: R8G8B8A8_UNORM_SRGB}
techniques:
  - name: T
    passes:
      - {vs: quad.vs, ps: down.ps, targets: [Color]}
`
	dev := soft.NewDevice(nil)
	opts := testOpts(t, dev)
	c := &Compiler{FS: testFS(map[string]string{"fx/srgb.yaml": src})}
	m, err := c.Compile("fx/srgb.yaml", opts)
	if err != nil {
		t.Fatalf("Compiler.Compile: unexpected error: %v", err)
	}
	tex := m.Textures[0]
	if f := tex.Texture.(*soft.Texture).Desc().Format; f != driver.FormatRGBA8Typeless {
		t.Fatalf("Tex2DDesc.Format:\nhave %v\nwant %v", f, driver.FormatRGBA8Typeless)
	}
	for i, f := range [2]driver.Format{driver.FormatRGBA8Unorm, driver.FormatRGBA8UnormSRGB} {
		if g := tex.SRV[i].Desc().Format; g != f {
			t.Fatalf("Texture.SRV[%d].Desc.Format:\nhave %v\nwant %v", i, g, f)
		}
		if g := tex.RTV[i].Desc().Format; g != f {
			t.Fatalf("Texture.RTV[%d].Desc.Format:\nhave %v\nwant %v", i, g, f)
		}
	}
	m.Release()
	releaseOpts(opts)
	if n := dev.Live(); n != 0 {
		t.Fatalf("Device.Live:\nhave %d (%v)\nwant 0", n, dev.LiveKinds())
	}
}
