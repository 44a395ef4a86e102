// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package d3d11

import (
	"go.uber.org/zap"

	"github.com/gviegas/postfx/depth"
	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/internal/logging"
)

// CreateDepthReplacement makes v the depth source of
// effects. The previous replacement is released first,
// and its canonical view is bound again in place of its
// shadow view.
// If v's texture cannot be sampled, a shader-readable
// copy is created and rendered to in place of v.
// A nil v removes the depth source.
// On failure, effects have no depth source.
func (r *Runtime) CreateDepthReplacement(v driver.DepthStencilView) error {
	_, err := r.replaceDepth(v)
	r.tracker.SetReplacement(r.repl)
	return err
}

// DepthReplacement returns the active replacement, or
// nil.
func (r *Runtime) DepthReplacement() *depth.Replacement { return r.repl }

// replace is called by the tracker, locked, when it
// selects a new depth source.
func (r *Runtime) replace(best driver.DepthStencilView) *depth.Replacement {
	repl, _ := r.replaceDepth(best)
	return repl
}

func (r *Runtime) replaceDepth(v driver.DepthStencilView) (*depth.Replacement, error) {
	if r.repl.Distinct() {
		r.rebindDepth(r.repl.View, r.repl.Canonical)
	}
	r.repl.Release()
	r.repl = nil
	r.setDepthResource(nil)
	if v == nil {
		return nil, nil
	}

	res := v.Resource()
	tex, ok := res.(driver.Texture2D)
	if !ok {
		driver.SafeRelease(res)
		return nil, ErrNotTexture
	}
	v.AddRef()
	repl := &depth.Replacement{Canonical: v, Texture: tex}
	desc := tex.Desc()

	var err error
	if desc.BindFlags&driver.BindShaderResource != 0 {
		v.AddRef()
		repl.View = v
		tex.AddRef()
		repl.Shadow = tex
	} else {
		desc.Format = driver.DepthTypeless(desc.Format)
		desc.BindFlags = driver.BindDepthStencil | driver.BindShaderResource
		if repl.Shadow, err = r.dev.CreateTexture2D(&desc, nil); err != nil {
			repl.Release()
			return nil, createError("depth-stencil replacement texture", err, texFields(&desc)...)
		}
		f := driver.DepthViewFormat(desc.Format)
		if repl.View, err = r.dev.CreateDepthStencilView(repl.Shadow, &driver.DSVDesc{Format: f}); err != nil {
			repl.Release()
			return nil, createError("depth-stencil replacement view", err, zap.Stringer("format", f))
		}
	}
	f := driver.DepthSRVFormat(driver.DepthTypeless(desc.Format))
	if repl.SRV, err = r.dev.CreateShaderResourceView(repl.Shadow, &driver.SRVDesc{Format: f, MipLevels: 1}); err != nil {
		repl.Release()
		return nil, createError("depth-stencil replacement resource view", err, zap.Stringer("format", f))
	}

	if repl.Distinct() {
		r.rebindDepth(v, repl.View)
	}

	r.repl = repl
	r.setDepthResource(repl.SRV)
	logging.L().Debug("depth-stencil replacement created",
		zap.Uint64("view", uint64(v.Handle())),
		zap.Bool("distinct", repl.Distinct()),
		zap.Stringer("format", desc.Format))
	return repl, nil
}

// rebindDepth replaces from with to if from is the
// bound depth-stencil view.
func (r *Runtime) rebindDepth(from, to driver.DepthStencilView) {
	rtvs, dsv := r.ctx.RenderTargets(driver.MaxRenderTargets)
	if driver.Same(dsv, from) {
		r.ctx.SetRenderTargets(rtvs, to)
	}
	for _, x := range rtvs {
		driver.SafeRelease(x)
	}
	driver.SafeRelease(dsv)
}

// setDepthResource sets the depth slot of the effect
// resource table and of every pass.
func (r *Runtime) setDepthResource(v driver.ShaderResourceView) {
	if effect.SlotDepth < len(r.resources) {
		effect.Set(&r.resources[effect.SlotDepth], v)
	}
	for _, p := range r.passes {
		if effect.SlotDepth < len(p.ShaderResources) {
			p.SetResource(effect.SlotDepth, v)
		}
	}
}

// OnDraw records a draw of the application.
func (r *Runtime) OnDraw(ctx driver.Context, vertices int) {
	r.tracker.OnDraw(ctx, vertices)
	r.fx.OnDraw(vertices)
}

// OnSetDepthStencilView is called when the application
// binds v. It returns the view to bind instead.
func (r *Runtime) OnSetDepthStencilView(v driver.DepthStencilView) driver.DepthStencilView {
	return r.tracker.OnSetDepthStencil(v)
}

// OnGetDepthStencilView is called with the view that is
// about to be returned to the application. The
// reference carried by v moves to the result.
func (r *Runtime) OnGetDepthStencilView(v driver.DepthStencilView) driver.DepthStencilView {
	return r.tracker.OnGetDepthStencil(v)
}

// OnClearDepthStencilView is called when the application
// clears v. It returns the view to clear instead.
func (r *Runtime) OnClearDepthStencilView(v driver.DepthStencilView) driver.DepthStencilView {
	return r.tracker.OnClearDepthStencil(v)
}

// OnCopyResource is called when the application copies
// src into dst. It returns the resources to copy
// instead.
func (r *Runtime) OnCopyResource(dst, src driver.Resource) (driver.Resource, driver.Resource) {
	return r.tracker.OnCopyResource(dst, src)
}
