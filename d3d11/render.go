// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package d3d11

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/gviegas/postfx"
	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/internal/logging"
	"github.com/gviegas/postfx/internal/stateblock"
)

// CompileOptions implements postfx.Backend.
func (r *Runtime) CompileOptions() effect.Options {
	return effect.Options{
		Device:    r.dev,
		Resources: r.resources,
		Targets:   [2]driver.RenderTargetView{r.bbRTV[0], r.bbRTV[1]},
		Width:     r.width,
		Height:    r.height,
	}
}

// AddModule implements postfx.Backend.
// It creates the constant buffer of every technique
// that has uniforms.
func (r *Runtime) AddModule(m *effect.Module) error {
	for _, t := range m.Techniques {
		if t.UniformSize == 0 {
			continue
		}
		desc := driver.BufferDesc{
			Size:      (t.UniformSize + 15) &^ 15,
			Usage:     driver.UsageDynamic,
			BindFlags: driver.BindConstantBuffer,
			CPUAccess: driver.CPUAccessWrite,
		}
		cb, err := r.dev.CreateBuffer(&desc, nil)
		if err != nil {
			m.Release()
			return createError("constant buffer", err, zap.String("technique", t.Name), zap.Int("size", desc.Size))
		}
		t.ConstantBuffer = cb
	}
	r.modules = append(r.modules, m)
	for _, t := range m.Techniques {
		r.passes = append(r.passes, t.Passes...)
		if len(m.Samplers) != 0 {
			r.samplers[t] = m.Samplers[:min(len(m.Samplers), driver.MaxSamplers)]
		}
	}
	return nil
}

// ResetEffects implements postfx.Backend.
func (r *Runtime) ResetEffects() {
	for _, m := range r.modules {
		m.Release()
	}
	r.modules = nil
	r.passes = nil
	clear(r.samplers)
}

// RenderTechnique implements postfx.Backend.
// A constant buffer that cannot be mapped keeps its
// previous contents.
func (r *Runtime) RenderTechnique(t *effect.Technique, constants []byte) {
	if r.timer != nil {
		r.timer.Begin(t)
		defer r.timer.End(t)
	}
	ctx := r.ctx
	if cb := t.ConstantBuffer; cb != nil {
		if m, err := ctx.Map(cb, 0, driver.MapWriteDiscard); err != nil {
			logging.L().Error("failed to map constant buffer", zap.String("technique", t.Name), zap.Error(err))
		} else {
			copy(m.Data, constants)
			ctx.Unmap(cb, 0)
		}
		bufs := []driver.Buffer{cb}
		ctx.SetConstantBuffers(driver.VS, 0, bufs)
		ctx.SetConstantBuffers(driver.PS, 0, bufs)
	}
	if s := r.samplers[t]; len(s) != 0 {
		ctx.SetSamplers(driver.VS, 0, s)
		ctx.SetSamplers(driver.PS, 0, s)
	}

	for _, p := range t.Passes {
		ctx.SetShader(driver.VS, p.VS)
		ctx.SetShader(driver.PS, p.PS)
		ctx.SetBlendState(p.Blend, [4]float32{1, 1, 1, 1}, driver.DefaultSampleMask)
		ctx.SetDepthStencilState(p.DepthStencil, p.StencilRef)

		// Passes read the output of the previous one.
		ctx.CopyResource(r.bbTexture, r.resolved)

		ctx.SetShaderResources(driver.VS, 0, p.ShaderResources)
		ctx.SetShaderResources(driver.PS, 0, p.ShaderResources)

		if p.Viewport.Width == float32(r.width) && p.Viewport.Height == float32(r.height) {
			ctx.SetRenderTargets(p.RenderTargets[:], r.defaultDSV)
			if !r.depthCleared {
				ctx.ClearDepthStencilView(r.defaultDSV, driver.ClearDepth|driver.ClearStencil, 1, 0)
				r.depthCleared = true
			}
		} else {
			ctx.SetRenderTargets(p.RenderTargets[:], nil)
		}
		ctx.SetViewports([]driver.Viewport{p.Viewport})
		if p.ClearRenderTargets {
			for _, v := range p.RenderTargets {
				if v != nil {
					ctx.ClearRenderTargetView(v, [4]float32{})
				}
			}
		}

		ctx.Draw(3, 0)

		ctx.SetRenderTargets(nil, nil)
		null := make([]driver.ShaderResourceView, len(p.ShaderResources))
		ctx.SetShaderResources(driver.VS, 0, null)
		ctx.SetShaderResources(driver.PS, 0, null)

		for _, v := range p.RenderTargetResources {
			ctx.GenerateMips(v)
		}
	}
}

// ErrTextureFormat means that a texture cannot be
// updated from RGBA8 pixels.
var ErrTextureFormat = errors.New("d3d11: texture upload is only supported for 8-bit textures")

// UpdateTexture implements postfx.Backend.
// R8 and RG8 textures receive the leading channels of
// each pixel.
func (r *Runtime) UpdateTexture(t *effect.Texture, rgba []byte) error {
	if t.Texture == nil {
		return fmt.Errorf("d3d11: texture %q has no storage", t.Name)
	}
	n := t.Width * t.Height
	if len(rgba) < n*4 {
		return fmt.Errorf("d3d11: texture %q: have %d bytes, want %d", t.Name, len(rgba), n*4)
	}
	var (
		data  []byte
		pitch int
	)
	switch driver.NormalOf(t.Format) {
	case driver.FormatR8Unorm:
		data = make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = rgba[i*4]
		}
		pitch = t.Width
	case driver.FormatRG8Unorm:
		data = make([]byte, n*2)
		for i := 0; i < n; i++ {
			data[i*2] = rgba[i*4]
			data[i*2+1] = rgba[i*4+1]
		}
		pitch = t.Width * 2
	case driver.FormatRGBA8Unorm:
		data = rgba[:n*4]
		pitch = t.Width * 4
	default:
		return fmt.Errorf("%w: %s has format %s", ErrTextureFormat, t.Name, t.Format)
	}
	r.ctx.UpdateSubresource(t.Texture, 0, data, pitch, pitch*t.Height)
	if t.Levels > 1 && t.SRV[0] != nil {
		r.ctx.GenerateMips(t.SRV[0])
	}
	return nil
}

// ErrScreenshotFormat means that the back buffer format
// cannot be captured.
var ErrScreenshotFormat = errors.New("d3d11: screenshots are only supported for 8-bit RGBA and BGRA back buffers")

// CaptureFrame implements postfx.Backend.
// Alpha is set to opaque.
func (r *Runtime) CaptureFrame() (*image.RGBA, error) {
	if !r.initialized {
		return nil, postfx.ErrNotInitialized
	}
	f := driver.NormalOf(r.format)
	if f != driver.FormatRGBA8Unorm && f != driver.FormatBGRA8Unorm {
		return nil, fmt.Errorf("%w: %s", ErrScreenshotFormat, r.format)
	}
	desc := driver.Tex2DDesc{
		Width:     r.width,
		Height:    r.height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    r.format,
		Sample:    driver.SampleDesc{Count: 1},
		Usage:     driver.UsageStaging,
		CPUAccess: driver.CPUAccessRead,
	}
	staging, err := r.dev.CreateTexture2D(&desc, nil)
	if err != nil {
		return nil, createError("staging resource", err, texFields(&desc)...)
	}
	defer staging.Release()
	r.ctx.CopyResource(staging, r.resolved)

	m, err := r.ctx.Map(staging, 0, driver.MapRead)
	if err != nil {
		logging.L().Error("failed to map staging resource", zap.Error(err))
		return nil, fmt.Errorf("d3d11: failed to map staging resource: %w", err)
	}
	defer r.ctx.Unmap(staging, 0)

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for y := 0; y < r.height; y++ {
		dst := img.Pix[y*img.Stride : y*img.Stride+r.width*4]
		copy(dst, m.Data[y*m.RowPitch:])
		for x := 0; x < len(dst); x += 4 {
			if f == driver.FormatBGRA8Unorm {
				dst[x], dst[x+2] = dst[x+2], dst[x]
			}
			dst[x+3] = 0xff
		}
	}
	return img, nil
}

// OnPresent renders the enabled techniques to the back
// buffer. It must be called before the swap chain is
// presented. It does nothing before OnInit, when no
// draw was observed in the frame, or when called from
// within itself.
func (r *Runtime) OnPresent() {
	if !r.initialized || r.presenting {
		return
	}
	if draws, _ := r.tracker.Counters(); draws == 0 {
		return
	}
	r.presenting = true
	defer func() { r.presenting = false }()

	r.presents++
	if r.presents%max(r.cfg.Depth.SelectInterval, 1) == 0 {
		r.tracker.Detect(r.replace)
	}
	r.depthCleared = false

	sb := stateblock.Capture(r.ctx)
	defer sb.ApplyAndRelease()
	ctx := r.ctx

	ctx.SetShader(driver.GS, nil)
	ctx.SetShader(driver.HS, nil)
	ctx.SetShader(driver.DS, nil)

	distinct := !driver.Same(r.resolved, r.backBuffer)
	if distinct {
		if r.multisampled {
			ctx.ResolveSubresource(r.resolved, 0, r.backBuffer, 0, r.format)
		} else {
			ctx.CopyResource(r.resolved, r.backBuffer)
		}
	}

	if r.fx.PrepareEffects() {
		ctx.SetRenderTargets([]driver.RenderTargetView{r.bbRTV[0]}, nil)
		r.setFullScreenState()
		r.fx.RenderEffects()
	}

	r.fx.OnPresent()

	if distinct {
		ctx.CopyResource(r.bbTexture, r.resolved)
		ctx.SetRenderTargets([]driver.RenderTargetView{r.bbRTV[2]}, nil)
		r.setFullScreenState()
		ctx.SetBlendState(nil, [4]float32{1, 1, 1, 1}, driver.DefaultSampleMask)
		ctx.SetViewports([]driver.Viewport{{Width: float32(r.width), Height: float32(r.height), MaxDepth: 1}})
		ctx.SetShader(driver.VS, r.copyVSObj)
		ctx.SetShader(driver.PS, r.copyPSObj)
		ctx.SetSamplers(driver.PS, 0, []driver.SamplerState{r.copySampler})
		srv := r.bbSRV[0]
		if r.format.IsSRGB() {
			srv = r.bbSRV[1]
		}
		ctx.SetShaderResources(driver.PS, 0, []driver.ShaderResourceView{srv})
		ctx.Draw(3, 0)
		ctx.SetShaderResources(driver.PS, 0, []driver.ShaderResourceView{nil})
	}

	r.tracker.EndFrame()
}

// setFullScreenState sets the fixed state of full-screen
// triangle draws.
func (r *Runtime) setFullScreenState() {
	ctx := r.ctx
	ctx.SetInputLayout(nil)
	ctx.SetVertexBuffers(0, make([]driver.Buffer, driver.MaxVertexBuffers),
		make([]uint32, driver.MaxVertexBuffers), make([]uint32, driver.MaxVertexBuffers))
	ctx.SetIndexBuffer(nil, driver.FormatUnknown, 0)
	ctx.SetPrimitiveTopology(driver.TopologyTriangleList)
	ctx.SetRasterizerState(r.raster)
	ctx.SetDepthStencilState(r.noDepth, 0)
}
