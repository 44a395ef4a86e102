// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package stateblock saves and restores the pipeline
// state of a device context around injected work.
package stateblock

import (
	"github.com/gviegas/postfx/driver"
)

// stage is the saved state of a programmable stage.
type stage struct {
	shader   driver.Shader
	cbufs    []driver.Buffer
	samplers []driver.SamplerState
	srvs     []driver.ShaderResourceView
}

// Block is a snapshot of the pipeline state.
// Every object it refers to is held with one reference
// until ApplyAndRelease is called.
type Block struct {
	ctx driver.Context

	// Only VS and PS have their bindings saved.
	// The remaining stages only have their shader saved.
	stages [driver.StageCount]stage

	topology driver.Topology
	layout   driver.InputLayout
	vbufs    []driver.Buffer
	strides  []uint32
	offsets  []uint32
	ibuf     driver.Buffer
	ifmt     driver.Format
	ioff     uint32

	raster    driver.RasterizerState
	viewports []driver.Viewport
	scissors  []driver.Rect

	rtvs   []driver.RenderTargetView
	dsv    driver.DepthStencilView
	blend  driver.BlendState
	factor [4]float32
	mask   uint32
	depth  driver.DepthStencilState
	ref    uint32
}

// Capture saves the current state of ctx.
// The returned Block holds a reference to ctx.
func Capture(ctx driver.Context) *Block {
	ctx.AddRef()
	b := &Block{ctx: ctx}
	for s := driver.Stage(0); s < driver.StageCount; s++ {
		st := &b.stages[s]
		st.shader = ctx.Shader(s)
		if s != driver.VS && s != driver.PS {
			continue
		}
		st.cbufs = ctx.ConstantBuffers(s, 0, driver.MaxConstantBuffers)
		st.samplers = ctx.Samplers(s, 0, driver.MaxSamplers)
		st.srvs = ctx.ShaderResources(s, 0, driver.MaxShaderResources)
	}
	b.topology = ctx.PrimitiveTopology()
	b.layout = ctx.InputLayout()
	b.vbufs, b.strides, b.offsets = ctx.VertexBuffers(0, driver.MaxVertexBuffers)
	b.ibuf, b.ifmt, b.ioff = ctx.IndexBuffer()
	b.raster = ctx.RasterizerState()
	b.viewports = ctx.Viewports()
	b.scissors = ctx.ScissorRects()
	b.rtvs, b.dsv = ctx.RenderTargets(driver.MaxRenderTargets)
	b.blend, b.factor, b.mask = ctx.BlendState()
	b.depth, b.ref = ctx.DepthStencilState()
	return b
}

// ApplyAndRelease restores the saved state and releases
// every reference held by b.
// Calling it more than once has no effect.
func (b *Block) ApplyAndRelease() {
	if b == nil || b.ctx == nil {
		return
	}
	ctx := b.ctx
	for s := driver.Stage(0); s < driver.StageCount; s++ {
		st := &b.stages[s]
		ctx.SetShader(s, st.shader)
		if st.cbufs != nil {
			ctx.SetConstantBuffers(s, 0, st.cbufs)
			ctx.SetSamplers(s, 0, st.samplers)
			ctx.SetShaderResources(s, 0, st.srvs)
		}
	}
	ctx.SetPrimitiveTopology(b.topology)
	ctx.SetInputLayout(b.layout)
	ctx.SetVertexBuffers(0, b.vbufs, b.strides, b.offsets)
	ctx.SetIndexBuffer(b.ibuf, b.ifmt, b.ioff)
	ctx.SetRasterizerState(b.raster)
	ctx.SetViewports(b.viewports)
	ctx.SetScissorRects(b.scissors)
	ctx.SetRenderTargets(b.rtvs, b.dsv)
	ctx.SetBlendState(b.blend, b.factor, b.mask)
	ctx.SetDepthStencilState(b.depth, b.ref)
	b.release()
	ctx.Release()
}

func (b *Block) release() {
	for s := range b.stages {
		st := &b.stages[s]
		driver.SafeRelease(st.shader)
		releaseAll(st.cbufs)
		releaseAll(st.samplers)
		releaseAll(st.srvs)
	}
	driver.SafeRelease(b.layout)
	releaseAll(b.vbufs)
	driver.SafeRelease(b.ibuf)
	driver.SafeRelease(b.raster)
	releaseAll(b.rtvs)
	driver.SafeRelease(b.dsv)
	driver.SafeRelease(b.blend)
	driver.SafeRelease(b.depth)
	*b = Block{}
}

func releaseAll[T driver.Object](s []T) {
	for _, o := range s {
		if driver.Object(o) != nil {
			o.Release()
		}
	}
}
