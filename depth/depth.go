// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package depth tracks the depth-stencil views that an
// application renders with and selects the one most
// likely to hold the scene depth.
//
// Once a view is selected, the caller creates a
// shader-readable Replacement for it and installs it in
// the Tracker. From then on, the Tracker translates
// between the application's (canonical) view and the
// replacement at every hook point, so that the
// application renders into the replacement while
// believing it uses its own view.
package depth

import (
	"sync"

	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/internal/logging"
	"go.uber.org/zap"
)

// Default values for Config.
const (
	DefaultScoreBias    = 1.2
	DefaultTrimInterval = 1000
)

// Config configures a Tracker.
type Config struct {
	// ScoreBias weighs vertex counts against how late in
	// the frame a view was last drawn to.
	// Zero means DefaultScoreBias.
	ScoreBias float32

	// TrimInterval is the number of selections between
	// sweeps of invalidated entries.
	// Zero means DefaultTrimInterval.
	TrimInterval int
}

// Entry is the tracking information of a depth-stencil
// view.
type Entry struct {
	View          driver.DepthStencilView
	Width, Height int

	// Index of the last draw call that used the view,
	// counted from the start of the frame.
	DrawIndex int

	// Vertices drawn with the view since the last
	// selection.
	Vertices int

	// Invalidated means that only the Tracker referenced
	// the view when last checked. The Tracker has since
	// dropped its reference.
	Invalidated bool
}

// Replacement is a shader-readable stand-in for a
// canonical depth-stencil view.
// Each non-nil field holds one reference.
type Replacement struct {
	// Canonical is the view that the application bound.
	Canonical driver.DepthStencilView
	// Texture is the resource of Canonical.
	Texture driver.Texture2D
	// View is the view that the GPU renders with.
	// It is Canonical itself if Texture is already
	// shader-readable.
	View driver.DepthStencilView
	// Shadow is the resource of View.
	Shadow driver.Texture2D
	// SRV is a shader resource view of Shadow.
	SRV driver.ShaderResourceView
}

// Release releases every reference held by r.
func (r *Replacement) Release() {
	if r == nil {
		return
	}
	driver.SafeRelease(r.SRV)
	driver.SafeRelease(r.View)
	driver.SafeRelease(r.Shadow)
	driver.SafeRelease(r.Texture)
	driver.SafeRelease(r.Canonical)
	*r = Replacement{}
}

// Distinct reports whether r renders to a view other
// than the canonical one.
func (r *Replacement) Distinct() bool {
	return r != nil && !driver.Same(r.View, r.Canonical)
}

// Tracker maintains the depth-source table.
// Its methods are safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	cfg   Config
	table map[driver.Handle]*Entry

	width, height int
	multisampled  bool

	draws    int
	vertices int
	selects  int

	repl   *Replacement
	ignore driver.Handle
}

// New creates a new Tracker.
func New(cfg Config) *Tracker {
	if cfg.ScoreBias == 0 {
		cfg.ScoreBias = DefaultScoreBias
	}
	if cfg.TrimInterval <= 0 {
		cfg.TrimInterval = DefaultTrimInterval
	}
	return &Tracker{cfg: cfg, table: make(map[driver.Handle]*Entry)}
}

// Reset drops every entry and the installed replacement,
// then sets the size that views must match to be
// tracked. While multisampled is true, Detect does
// nothing.
func (t *Tracker) Reset(width, height int, multisampled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
	t.width, t.height = width, height
	t.multisampled = multisampled
	t.repl = nil
	t.ignore = 0
	t.draws, t.vertices = 0, 0
}

// Clear drops every entry, releasing the references
// that the Tracker holds.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
}

func (t *Tracker) clear() {
	for _, e := range t.table {
		if !e.Invalidated {
			e.View.Release()
		}
	}
	clear(t.table)
}

// Ignore causes draws with v bound to not be counted
// towards any entry. It is meant for the caller's own
// depth-stencil view. A nil v clears it.
// The Tracker does not hold a reference to v.
func (t *Tracker) Ignore(v driver.DepthStencilView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v == nil {
		t.ignore = 0
	} else {
		t.ignore = v.Handle()
	}
}

// SetReplacement installs r as the active replacement.
// A nil r removes it. The Tracker does not take
// ownership of r; the caller must keep it alive until it
// is replaced.
func (t *Tracker) SetReplacement(r *Replacement) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.repl = r
}

// Replacement returns the active replacement, or nil.
func (t *Tracker) Replacement() *Replacement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repl
}

// Len returns the number of entries in the table,
// including invalidated ones.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.table)
}

// Entries returns a copy of the table.
// Views are not referenced by the copy.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := make([]Entry, 0, len(t.table))
	for _, e := range t.table {
		s = append(s, *e)
	}
	return s
}

// Counters returns the number of draws and vertices
// observed since the last call to EndFrame.
func (t *Tracker) Counters() (draws, vertices int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draws, t.vertices
}

// EndFrame resets the frame counters.
func (t *Tracker) EndFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draws, t.vertices = 0, 0
}

// OnDraw records a draw of the given number of vertices
// with the depth-stencil view currently bound to ctx.
func (t *Tracker) OnDraw(ctx driver.Context, vertices int) {
	_, dsv := ctx.RenderTargets(0)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draws++
	t.vertices += vertices
	if dsv == nil {
		return
	}
	defer dsv.Release()
	h := dsv.Handle()
	if h == t.ignore {
		return
	}
	if t.repl != nil && h == t.repl.View.Handle() {
		h = t.repl.Canonical.Handle()
	}
	if e, ok := t.table[h]; ok && !e.Invalidated {
		e.DrawIndex = t.draws
		e.Vertices += vertices
	}
}

// OnSetDepthStencil starts tracking v if it is not
// tracked yet and matches the configured size.
// It returns the view that must be bound in place of v.
func (t *Tracker) OnSetDepthStencil(v driver.DepthStencilView) driver.DepthStencilView {
	if v == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h := v.Handle()
	if h == t.ignore {
		return v
	}
	if t.repl.Distinct() && h == t.repl.View.Handle() {
		return v
	}
	if e, ok := t.table[h]; !ok || e.Invalidated {
		t.track(v)
	}
	if t.repl != nil && h == t.repl.Canonical.Handle() {
		return t.repl.View
	}
	return v
}

func (t *Tracker) track(v driver.DepthStencilView) {
	r := v.Resource()
	defer r.Release()
	tex, ok := r.(driver.Texture2D)
	if !ok {
		return
	}
	desc := tex.Desc()
	if desc.Width != t.width || desc.Height != t.height || desc.Sample.Count > 1 {
		return
	}
	v.AddRef()
	t.table[v.Handle()] = &Entry{View: v, Width: desc.Width, Height: desc.Height}
	logging.L().Debug("tracking depth-stencil",
		zap.Uint64("view", uint64(v.Handle())),
		zap.Stringer("format", desc.Format))
}

// OnGetDepthStencil translates a view returned to the
// application. v carries the caller's reference; if it
// is replaced, that reference is moved to the result.
func (t *Tracker) OnGetDepthStencil(v driver.DepthStencilView) driver.DepthStencilView {
	if v == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.repl.Distinct() && driver.Same(v, t.repl.View) {
		v.Release()
		t.repl.Canonical.AddRef()
		return t.repl.Canonical
	}
	return v
}

// OnClearDepthStencil translates a view that the
// application clears.
func (t *Tracker) OnClearDepthStencil(v driver.DepthStencilView) driver.DepthStencilView {
	if v == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.repl != nil && driver.Same(v, t.repl.Canonical) {
		return t.repl.View
	}
	return v
}

// OnCopyResource translates the resources of a copy so
// that copies to or from the canonical depth texture
// use the shadow texture instead.
func (t *Tracker) OnCopyResource(dst, src driver.Resource) (driver.Resource, driver.Resource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.repl == nil {
		return dst, src
	}
	if driver.Same(dst, t.repl.Texture) {
		dst = t.repl.Shadow
	}
	if driver.Same(src, t.repl.Texture) {
		src = t.repl.Shadow
	}
	return dst, src
}

// Detect selects the view that most likely holds the
// scene depth.
// Each live entry is scored with
//
//	vertices * (ScoreBias - drawIndex/totalDraws)
//
// and the highest score wins, later entries winning
// ties. If the winner differs from the canonical view of
// the active replacement, replace is called with it
// while the Tracker is locked, and its result becomes
// the active replacement (nil meaning none).
// Detect does nothing while multisampled or with an
// empty table.
func (t *Tracker) Detect(replace func(best driver.DepthStencilView) *Replacement) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.multisampled || len(t.table) == 0 {
		return
	}
	var (
		best      driver.DepthStencilView
		bestScore float32
		total     = float32(t.draws)
	)
	for _, e := range t.table {
		if e.Invalidated {
			continue
		}
		if !e.View.ExternallyReferenced() {
			e.View.Release()
			e.Invalidated = true
			continue
		}
		if e.DrawIndex == 0 {
			continue
		}
		score := float32(e.Vertices) * (t.cfg.ScoreBias - float32(e.DrawIndex)/total)
		if score >= bestScore {
			best = e.View
			bestScore = score
		}
		e.DrawIndex, e.Vertices = 0, 0
	}

	t.selects++
	if t.selects%t.cfg.TrimInterval == 0 {
		t.trim()
	}

	if best == nil || t.repl != nil && driver.Same(best, t.repl.Canonical) {
		return
	}
	logging.L().Debug("depth source selected",
		zap.Uint64("view", uint64(best.Handle())),
		zap.Float32("score", bestScore))
	t.repl = replace(best)
}

// trim drops invalidated entries.
func (t *Tracker) trim() {
	n := len(t.table)
	live := make(map[driver.Handle]*Entry, n)
	for h, e := range t.table {
		if !e.Invalidated {
			live[h] = e
		}
	}
	t.table = live
	logging.L().Debug("depth table trimmed", zap.Int("before", n), zap.Int("after", len(live)))
}
