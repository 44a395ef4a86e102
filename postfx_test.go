// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package postfx

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/gviegas/postfx/config"
	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/input"
)

type backend struct {
	modules  []*effect.Module
	failAdd  error
	resets   int
	rendered []string
	consts   [][]byte
	updated  map[string][]byte
	frame    *image.RGBA
}

func (b *backend) CompileOptions() effect.Options {
	return effect.Options{Width: 64, Height: 32}
}

func (b *backend) AddModule(m *effect.Module) error {
	if b.failAdd != nil {
		m.Release()
		return b.failAdd
	}
	b.modules = append(b.modules, m)
	return nil
}

func (b *backend) ResetEffects() {
	for _, m := range b.modules {
		m.Release()
	}
	b.modules = nil
	b.resets++
}

func (b *backend) RenderTechnique(t *effect.Technique, constants []byte) {
	b.rendered = append(b.rendered, t.Name)
	b.consts = append(b.consts, slices.Clone(constants))
}

func (b *backend) UpdateTexture(t *effect.Texture, rgba []byte) error {
	if len(rgba) != t.Width*t.Height*4 {
		return errors.New("bad size")
	}
	if b.updated == nil {
		b.updated = make(map[string][]byte)
	}
	b.updated[t.Name] = slices.Clone(rgba)
	return nil
}

func (b *backend) CaptureFrame() (*image.RGBA, error) {
	if b.frame == nil {
		return nil, errors.New("no frame")
	}
	return b.frame, nil
}

// compiler builds one technique and one float uniform
// per file, named after the file.
type compiler struct {
	fail  map[string]error
	opts  []effect.Options
	extra func(name string, m *effect.Module)
}

func (c *compiler) Compile(path string, opts *effect.Options) (*effect.Module, error) {
	c.opts = append(c.opts, *opts)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := c.fail[name]; err != nil {
		return nil, err
	}
	m := &effect.Module{
		Uniforms: []*effect.Uniform{
			{Name: name, Type: effect.Float, Rows: 1, Columns: 1, Size: 4},
		},
		Techniques: []*effect.Technique{
			{Name: name, Annotations: effect.Annotations{"enabled": true}, UniformSize: 16},
		},
		UniformData: make([]byte, 16),
	}
	if c.extra != nil {
		c.extra(name, m)
	}
	return m, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newRuntime(t *testing.T, files ...string) (*Runtime, *backend, *compiler, *input.State, *clock) {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.EffectSearchPaths = []string{dir}
	cfg.TextureSearchPaths = []string{dir}
	cfg.ScreenshotPath = filepath.Join(dir, "shots")
	b := new(backend)
	c := new(compiler)
	in := new(input.State)
	r := New(cfg, c, in, b)
	clk := &clock{time.Date(2024, 3, 9, 10, 30, 15, 0, time.UTC)}
	r.now = clk.now
	r.start, r.lastPresent = clk.t, clk.t
	return r, b, c, in, clk
}

func names(ts []*effect.Technique) []string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = t.Name
	}
	return s
}

// present advances the clock by one frame and presents.
func present(r *Runtime, clk *clock) {
	clk.advance(16 * time.Millisecond)
	r.OnPresent()
}

func TestReload(t *testing.T) {
	r, b, c, _, clk := newRuntime(t, "c.fx", "a.fx", "b.fx", "skip.txt")
	r.OnInit(64, 32, driver.AdapterDesc{VendorID: 0x10de, DeviceID: 0x1b80})
	if n := r.Remaining(); n != 3 {
		t.Fatalf("Runtime.Remaining:\nhave %d\nwant 3", n)
	}
	// Nothing loads before the second frame.
	present(r, clk)
	present(r, clk)
	if r.Loaded() {
		t.Fatal("Runtime.Loaded: unexpected effects before the second frame")
	}
	for i := 0; i < 3; i++ {
		present(r, clk)
		if n := len(r.Techniques()); n != i+1 {
			t.Fatalf("Runtime.Techniques after %d loads:\nhave %d\nwant %d", i+1, n, i+1)
		}
	}
	if n := r.Remaining(); n != 0 {
		t.Fatalf("Runtime.Remaining:\nhave %d\nwant 0", n)
	}
	if s := names(r.Techniques()); !slices.Equal(s, []string{"a", "b", "c"}) {
		t.Fatalf("Runtime.Techniques:\nhave %v\nwant [a b c]", s)
	}
	for i, u := range r.Uniforms() {
		if u.Offset != i*16 || u.EffectFile != u.Name+".fx" {
			t.Fatalf("Runtime.Uniforms[%d]:\nhave offset %d, file %s\nwant offset %d, file %s.fx", i, u.Offset, u.EffectFile, i*16, u.Name)
		}
		if o := r.Techniques()[i].UniformOffset; o != i*16 {
			t.Fatalf("Technique.UniformOffset:\nhave %d\nwant %d", o, i*16)
		}
	}
	if len(b.modules) != 3 {
		t.Fatalf("backend.modules:\nhave %d\nwant 3", len(b.modules))
	}

	o := c.opts[0]
	for _, m := range [...]effect.Macro{
		{Name: "BUFFER_WIDTH", Value: "64"},
		{Name: "BUFFER_HEIGHT", Value: "32"},
		{Name: "BUFFER_RCP_WIDTH", Value: "0.015625"},
		{Name: "__VENDOR__", Value: "0x10de"},
		{Name: "DEPTH_INPUT_IS_REVERSED", Value: "0"},
	} {
		if v, ok := o.Lookup(m.Name); !ok || v != m.Value {
			t.Fatalf("Options.Lookup(%s):\nhave %q, %t\nwant %q, true", m.Name, v, ok, m.Value)
		}
	}
}

func TestReloadCancel(t *testing.T) {
	r, b, _, _, clk := newRuntime(t, "a.fx", "b.fx", "c.fx")
	r.OnInit(64, 32, driver.AdapterDesc{})
	present(r, clk)
	present(r, clk)
	present(r, clk)
	if n := len(r.Techniques()); n != 1 || r.Remaining() != 2 {
		t.Fatalf("Runtime: have %d techniques, %d remaining\nwant 1, 2", n, r.Remaining())
	}

	r.Reload()
	if r.Loaded() || len(r.Uniforms()) != 0 || r.storage.Len() != 0 {
		t.Fatal("Runtime.Reload: partial state not discarded")
	}
	if n := r.Remaining(); n != 3 {
		t.Fatalf("Runtime.Remaining:\nhave %d\nwant 3", n)
	}
	if len(b.modules) != 0 || b.resets != 2 {
		t.Fatalf("backend: have %d modules, %d resets\nwant 0, 2", len(b.modules), b.resets)
	}
	for iter := 0; iter < 3; iter++ {
		present(r, clk)
	}
	if s := names(r.Techniques()); !slices.Equal(s, []string{"a", "b", "c"}) {
		t.Fatalf("Runtime.Techniques:\nhave %v\nwant [a b c]", s)
	}

	r.OnReset()
	if r.Initialized() || r.Loaded() || len(b.modules) != 0 {
		t.Fatal("Runtime.OnReset: effects not released")
	}
}

func TestLoadErrors(t *testing.T) {
	r, b, c, _, clk := newRuntime(t, "a.fx", "b.fx", "c.fx")
	c.fail = map[string]error{"b": errors.New("b.fx(3): error X3000: syntax error")}
	r.OnInit(64, 32, driver.AdapterDesc{})
	for iter := 0; iter < 5; iter++ {
		present(r, clk)
	}
	if s := names(r.Techniques()); !slices.Equal(s, []string{"a", "c"}) {
		t.Fatalf("Runtime.Techniques:\nhave %v\nwant [a c]", s)
	}
	if s := r.Errors(); !strings.Contains(s, "b.fx:\nb.fx(3): error X3000") {
		t.Fatalf("Runtime.Errors:\nhave %q\nwant b.fx entry", s)
	}
	if n := len(multierr.Errors(r.Err())); n != 1 {
		t.Fatalf("Runtime.Err:\nhave %d errors\nwant 1", n)
	}

	// Backend failures trim the registered state.
	b.failAdd = driver.ErrNoDeviceMemory
	r.Reload()
	for iter := 0; iter < 3; iter++ {
		present(r, clk)
	}
	if r.Loaded() || len(r.Uniforms()) != 0 || r.storage.Len() != 0 {
		t.Fatal("Runtime: state not trimmed after backend failure")
	}
	if !errors.Is(r.Err(), driver.ErrNoDeviceMemory) {
		t.Fatalf("Runtime.Err:\nhave %v\nwant %v", r.Err(), driver.ErrNoDeviceMemory)
	}
}

func loadAll(t *testing.T, r *Runtime, clk *clock) {
	t.Helper()
	r.OnInit(64, 32, driver.AdapterDesc{})
	for r.Remaining() != 0 || r.FrameCount() < 2 {
		present(r, clk)
	}
}

func TestToggle(t *testing.T) {
	r, b, c, in, clk := newRuntime(t, "a.fx", "b.fx")
	c.extra = func(name string, m *effect.Module) {
		if name == "b" {
			m.Techniques[0].Annotations = effect.Annotations{
				"toggle":      input.KeyF1,
				"toggleshift": true,
				"timeout":     40,
			}
		}
	}
	loadAll(t, r, clk)
	a, tb := r.Technique("a"), r.Technique("b")
	// The timeout counts down from load even while disabled.
	tb.Timeleft = 0

	if !r.PrepareEffects() || r.RenderEffects() != 1 || b.rendered[0] != "a" {
		t.Fatalf("Runtime.RenderEffects:\nhave %v\nwant [a]", b.rendered)
	}

	// Modifiers must be held.
	in.KeyboardKey(input.KeyF1, true)
	r.PrepareEffects()
	if tb.Enabled {
		t.Fatal("Runtime.PrepareEffects: toggled without modifier")
	}
	present(r, clk)
	in.KeyboardKey(input.KeyF1, false)
	in.KeyboardKey(input.KeyShift, true)
	in.KeyboardKey(input.KeyF1, true)
	r.PrepareEffects()
	if !tb.Enabled || tb.Timeleft != 40 {
		t.Fatalf("Technique b: have enabled %t, timeleft %d\nwant true, 40", tb.Enabled, tb.Timeleft)
	}
	b.rendered = nil
	if n := r.RenderEffects(); n != 2 || !slices.Equal(b.rendered, []string{"a", "b"}) {
		t.Fatalf("Runtime.RenderEffects:\nhave %v\nwant [a b]", b.rendered)
	}
	if tb.CPUDuration.Get() < 0 {
		t.Fatal("Technique.CPUDuration: negative average")
	}

	// Timeout elapses after three 16ms frames.
	present(r, clk)
	for iter := 0; iter < 3; iter++ {
		present(r, clk)
		r.PrepareEffects()
	}
	if tb.Enabled || tb.Timeleft != 0 {
		t.Fatalf("Technique b: have enabled %t, timeleft %d\nwant false, 0", tb.Enabled, tb.Timeleft)
	}

	// Mouse button toggles.
	a.ToggleKey = 1 + input.ButtonMiddle
	in.PointerButton(input.ButtonMiddle, true, 0, 0)
	if r.PrepareEffects() {
		t.Fatal("Runtime.PrepareEffects: should report no active technique")
	}
	if err := r.SetTechniqueEnabled("b", true); err != nil || !tb.Enabled {
		t.Fatalf("Runtime.SetTechniqueEnabled: %v", err)
	}
	if err := r.SetTechniqueEnabled("z", true); !errors.Is(err, ErrUnknownTechnique) {
		t.Fatalf("Runtime.SetTechniqueEnabled:\nhave %v\nwant %v", err, ErrUnknownTechnique)
	}
}

func TestEffectsKey(t *testing.T) {
	r, b, _, in, clk := newRuntime(t, "a.fx")
	r.cfg.EffectsKey = input.Shortcut{Key: input.KeyHome, Ctrl: true}
	loadAll(t, r, clk)

	in.KeyboardKey(input.KeyControl, true)
	in.KeyboardKey(input.KeyHome, true)
	if r.PrepareEffects() || r.RenderEffects() != 0 || r.EffectsEnabled() {
		t.Fatal("Runtime: effects rendered after effects key")
	}
	present(r, clk)
	if r.PrepareEffects() || len(b.rendered) != 0 {
		t.Fatal("Runtime: effects rendered while disabled")
	}
	in.KeyboardKey(input.KeyHome, false)
	in.KeyboardKey(input.KeyHome, true)
	if !r.PrepareEffects() || r.RenderEffects() != 1 {
		t.Fatal("Runtime: effects not rendered after second press")
	}
}

func TestUniformSources(t *testing.T) {
	type decl struct {
		name string
		typ  effect.Type
		n    int
		a    effect.Annotations
	}
	decls := []decl{
		{"ft", effect.Float, 1, effect.Annotations{"source": SourceFrameTime}},
		{"fcb", effect.Bool, 1, effect.Annotations{"source": SourceFrameCount}},
		{"fci", effect.Int, 1, effect.Annotations{"source": SourceFrameCount}},
		{"tm", effect.Float, 1, effect.Annotations{"source": SourceTimer}},
		{"date", effect.Int, 4, effect.Annotations{"source": SourceDate}},
		{"key", effect.Bool, 1, effect.Annotations{"source": SourceKey, "keycode": input.KeySpace}},
		{"ktog", effect.Bool, 1, effect.Annotations{"source": SourceKey, "keycode": input.KeyA, "toggle": true}},
		{"mp", effect.Float, 2, effect.Annotations{"source": SourceMousePoint}},
		{"mb", effect.Bool, 1, effect.Annotations{"source": SourceMouseButton, "keycode": input.ButtonRight}},
		{"rnd", effect.Int, 1, effect.Annotations{"source": SourceRandom, "min": 3, "max": 5}},
		{"pp", effect.Float, 2, effect.Annotations{"source": SourcePingPong, "min": 0, "max": 1, "step": []any{10, 0}}},
		{"plain", effect.Float, 1, nil},
	}
	r, _, c, in, clk := newRuntime(t, "u.fx")
	c.extra = func(_ string, m *effect.Module) {
		m.Uniforms = m.Uniforms[:0]
		off := 0
		for _, d := range decls {
			m.Uniforms = append(m.Uniforms, &effect.Uniform{
				Name: d.name, Type: d.typ, Rows: 1, Columns: d.n,
				Offset: off, Size: d.n * 4, Annotations: d.a,
			})
			off += 16
		}
		m.UniformData = make([]byte, off)
		m.Techniques[0].UniformSize = off
	}
	loadAll(t, r, clk)
	u := func(name string) []float32 { return r.UniformValue(r.Uniform("u.fx", name)) }

	in.KeyboardKey(input.KeySpace, true)
	in.KeyboardKey(input.KeyA, true)
	in.PointerButton(input.ButtonRight, true, 7, 9)
	r.PrepareEffects()

	if v := u("ft")[0]; v != 16 {
		t.Fatalf("frametime:\nhave %v\nwant 16", v)
	}
	fc := r.FrameCount()
	if v := u("fci")[0]; v != float32(fc) {
		t.Fatalf("framecount:\nhave %v\nwant %d", v, fc)
	}
	if v := u("fcb")[0]; (v != 0) != (fc%2 == 0) {
		t.Fatalf("framecount (bool):\nhave %v for frame %d", v, fc)
	}
	if v, want := u("tm")[0], float32(16*fc); v != want {
		t.Fatalf("timer:\nhave %v\nwant %v", v, want)
	}
	now := clk.now()
	if v, want := u("date"), []float32{2024, 3, 9, float32(now.Hour()*3600 + now.Minute()*60 + now.Second())}; !slices.Equal(v, want) {
		t.Fatalf("date:\nhave %v\nwant %v", v, want)
	}
	if u("key")[0] != 1 || u("ktog")[0] != 1 || u("mb")[0] != 1 {
		t.Fatal("key/mousebutton: not set")
	}
	if v := u("mp"); !slices.Equal(v, []float32{7, 9}) {
		t.Fatalf("mousepoint:\nhave %v\nwant [7 9]", v)
	}
	if v := u("rnd")[0]; v < 3 || v > 5 {
		t.Fatalf("random:\nhave %v\nwant [3, 5]", v)
	}
	// 10 units per second for 16ms.
	if v := u("pp"); v[0] < 0.159 || v[0] > 0.161 || v[1] != 0 {
		t.Fatalf("pingpong:\nhave %v\nwant [0.16 0]", v)
	}

	// Toggle keys flip on press only; plain keys follow
	// the key state.
	present(r, clk)
	in.KeyboardKey(input.KeySpace, false)
	r.PrepareEffects()
	if u("key")[0] != 0 || u("ktog")[0] != 1 {
		t.Fatal("key: wrong state after frame")
	}
	in.KeyboardKey(input.KeyA, false)
	in.KeyboardKey(input.KeyA, true)
	r.PrepareEffects()
	if u("ktog")[0] != 0 {
		t.Fatal("key (toggle): not flipped on second press")
	}

	// Ping-pong reverses at max.
	r.SetUniformValue(r.Uniform("u.fx", "pp"), 0.99, 0)
	r.PrepareEffects()
	if v := u("pp"); v[0] != 1 || v[1] != -1 {
		t.Fatalf("pingpong:\nhave %v\nwant [1 -1]", v)
	}
	r.PrepareEffects()
	if v := u("pp"); v[0] >= 1 || v[1] != -1 {
		t.Fatalf("pingpong:\nhave %v\nwant decreasing", v)
	}
}

func TestPreset(t *testing.T) {
	r, b, _, _, clk := newRuntime(t, "a.fx", "b.fx", "c.fx")
	path := filepath.Join(t.TempDir(), "p.toml")
	p := config.NewPreset()
	p.Techniques = []string{"c", "a"}
	p.Keys["b"] = input.Shortcut{Key: input.KeyF1 + 3, Alt: true}
	p.SetValue("a.fx", "a", []float32{0.5})
	p.SetValue("c.fx", "c", []float32{2})
	if err := config.SavePreset(path, p); err != nil {
		t.Fatal(err)
	}
	r.cfg.PresetFiles = []string{path}
	r.cfg.CurrentPreset = 0
	loadAll(t, r, clk)

	if s := names(r.Techniques()); !slices.Equal(s, []string{"c", "a", "b"}) {
		t.Fatalf("Runtime.Techniques:\nhave %v\nwant [c a b]", s)
	}
	if tb := r.Technique("b"); tb.Enabled || tb.ToggleKey != input.KeyF1+3 || !tb.ToggleAlt {
		t.Fatalf("Technique b:\nhave %+v", tb)
	}
	if v := r.UniformValue(r.Uniform("c.fx", "c")); v[0] != 2 {
		t.Fatalf("Runtime.UniformValue:\nhave %v\nwant [2]", v)
	}
	r.PrepareEffects()
	r.RenderEffects()
	if !slices.Equal(b.rendered, []string{"c", "a"}) {
		t.Fatalf("Runtime.RenderEffects:\nhave %v\nwant [c a]", b.rendered)
	}
	// Constants reach the backend.
	if c := b.consts[1]; len(c) != 16 || c[3] != 0x3f {
		t.Fatalf("constants of a:\nhave %v\nwant 0.5 at offset 0", c)
	}

	r.SetUniformValue(r.Uniform("b.fx", "b"), 7)
	path2 := filepath.Join(t.TempDir(), "q.toml")
	if err := r.SavePreset(path2); err != nil {
		t.Fatalf("Runtime.SavePreset: unexpected error: %v", err)
	}
	q, err := config.LoadPreset(path2)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(q.Techniques, []string{"c", "a"}) {
		t.Fatalf("Preset.Techniques:\nhave %v\nwant [c a]", q.Techniques)
	}
	if v, _ := q.Value("b.fx", "b"); len(v) != 1 || v[0] != 7 {
		t.Fatalf("Preset.Value:\nhave %v\nwant [7]", v)
	}
	if k := q.Keys["b"]; k.Key != input.KeyF1+3 || !k.Alt {
		t.Fatalf("Preset.Keys:\nhave %+v", k)
	}
}

func TestPerformanceMode(t *testing.T) {
	r, _, c, _, clk := newRuntime(t, "a.fx")
	p := config.NewPreset()
	p.SetValue("a.fx", "a", []float32{3})
	r.preset = p
	r.cfg.PerformanceMode = true
	loadAll(t, r, clk)
	o := c.opts[0]
	if !o.PerformanceMode || o.PresetValues["a"][0] != 3 {
		t.Fatalf("Options:\nhave %+v\nwant performance mode with preset values", o)
	}
	if v, _ := o.Lookup("__POSTFX_PERFORMANCE_MODE__"); v != "1" {
		t.Fatalf("Options.Lookup:\nhave %q\nwant 1", v)
	}
}

func TestScreenshot(t *testing.T) {
	r, b, _, in, clk := newRuntime(t, "a.fx")
	if _, err := r.Screenshot(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Runtime.Screenshot:\nhave %v\nwant %v", err, ErrNotInitialized)
	}
	loadAll(t, r, clk)
	b.frame = image.NewRGBA(image.Rect(0, 0, 4, 2))
	b.frame.Set(1, 1, color.RGBA{255, 128, 0, 255})

	for _, format := range [...]string{"png", "bmp"} {
		r.cfg.ScreenshotFormat = format
		path, err := r.Screenshot()
		if err != nil {
			t.Fatalf("Runtime.Screenshot (%s): unexpected error: %v", format, err)
		}
		if !strings.HasSuffix(path, clk.now().Format(" 2006-01-02 15-04-05")+"."+format) {
			t.Fatalf("Runtime.Screenshot:\nhave %s", path)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		img, name, err := image.Decode(f)
		f.Close()
		if err != nil || name != format {
			t.Fatalf("image.Decode (%s):\nhave %s, %v", format, name, err)
		}
		if c := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA); c != (color.RGBA{255, 128, 0, 255}) {
			t.Fatalf("image.At (%s):\nhave %v\nwant {255 128 0 255}", format, c)
		}
	}

	// The screenshot key writes in the background.
	r.cfg.ScreenshotFormat = "png"
	clk.advance(time.Hour)
	in.KeyboardKey(input.KeySnapshot, true)
	r.OnPresent()
	r.Close()
	if _, err := os.Stat(filepath.Join(r.cfg.ScreenshotPath, r.ScreenshotName(clk.now()))); err != nil {
		t.Fatalf("screenshot key: %v", err)
	}
}

func TestTextures(t *testing.T) {
	r, b, c, _, clk := newRuntime(t, "a.fx")
	dir := r.cfg.TextureSearchPaths[0]
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	if err := writeImage(filepath.Join(dir, "lut.png"), src, "png"); err != nil {
		t.Fatal(err)
	}
	// Textures without a GPU object are skipped.
	var tex fakeTexture
	c.extra = func(_ string, m *effect.Module) {
		m.Textures = []*effect.Texture{
			{Name: "Lut", Width: 4, Height: 4, Annotations: effect.Annotations{"source": "lut.png"}, Texture: &tex},
			{Name: "Missing", Width: 2, Height: 2, Annotations: effect.Annotations{"source": "none.png"}, Texture: &tex},
			{Name: "Alias", Width: 2, Height: 2, Annotations: effect.Annotations{"source": "lut.png"}},
		}
	}
	loadAll(t, r, clk)
	px := b.updated["Lut"]
	if len(px) != 64 || px[0] < 199 || px[0] > 200 || px[63] != 255 {
		t.Fatalf("backend.UpdateTexture:\nhave %v", px)
	}
	if _, ok := b.updated["Alias"]; ok {
		t.Fatal("backend.UpdateTexture: alias texture updated")
	}
	if s := r.Errors(); !strings.Contains(s, "none.png") {
		t.Fatalf("Runtime.Errors:\nhave %q\nwant missing texture entry", s)
	}
}

// fakeTexture satisfies driver.Texture2D without
// holding GPU memory.
type fakeTexture struct{ refs int }

func (t *fakeTexture) AddRef()                     { t.refs++ }
func (t *fakeTexture) Release()                    { t.refs-- }
func (t *fakeTexture) ExternallyReferenced() bool  { return false }
func (t *fakeTexture) Handle() driver.Handle       { return 1 }
func (t *fakeTexture) Dimension() driver.Dimension { return driver.DimensionTexture2D }
func (t *fakeTexture) Desc() driver.Tex2DDesc      { return driver.Tex2DDesc{} }
