// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"fmt"
	"strings"

	"github.com/gviegas/postfx/driver"
)

// pipeline is the state bound to a context.
// Every non-nil object in it holds one reference.
type pipeline struct {
	shaders  [driver.StageCount]driver.Shader
	srvs     [driver.StageCount][driver.MaxShaderResources]driver.ShaderResourceView
	samplers [driver.StageCount][driver.MaxSamplers]driver.SamplerState
	cbufs    [driver.StageCount][driver.MaxConstantBuffers]driver.Buffer

	topology driver.Topology
	layout   driver.InputLayout
	vbufs    [driver.MaxVertexBuffers]driver.Buffer
	strides  [driver.MaxVertexBuffers]uint32
	offsets  [driver.MaxVertexBuffers]uint32
	ibuf     driver.Buffer
	ifmt     driver.Format
	ioff     uint32

	raster    driver.RasterizerState
	viewports []driver.Viewport
	scissors  []driver.Rect

	rtvs   [driver.MaxRenderTargets]driver.RenderTargetView
	dsv    driver.DepthStencilView
	blend  driver.BlendState
	factor [4]float32
	mask   uint32
	depth  driver.DepthStencilState
	ref    uint32
}

// Context implements driver.Context.
type Context struct {
	object
	st    pipeline
	calls []string
	draws int
}

func newContext(d *Device) *Context {
	c := &Context{}
	c.st.mask = driver.DefaultSampleMask
	c.st.factor = [4]float32{1, 1, 1, 1}
	c.object = object{dev: d, id: driver.Handle(d.ids.Get()), kind: "Context"}
	c.refs.Store(1)
	return c
}

// bind replaces *slot with v, moving one reference.
func bind[T driver.Object](slot *T, v T) {
	if driver.Object(v) != nil {
		v.AddRef()
	}
	if driver.Object(*slot) != nil {
		(*slot).Release()
	}
	*slot = v
}

// get returns v with an added reference.
func get[T driver.Object](v T) T {
	if driver.Object(v) != nil {
		v.AddRef()
	}
	return v
}

func name(o driver.Object) string {
	if o == nil {
		return "nil"
	}
	if s, ok := o.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("#%d", o.Handle())
}

func (c *Context) record(format string, args ...any) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

// Calls returns the calls recorded so far.
func (c *Context) Calls() []string { return append([]string(nil), c.calls...) }

// ResetCalls discards the recorded calls.
func (c *Context) ResetCalls() { c.calls = c.calls[:0] }

// Draws returns the number of draws executed.
func (c *Context) Draws() int { return c.draws }

// Unbind releases every bound object and restores the
// default state.
func (c *Context) Unbind() {
	c.SetRenderTargets(nil, nil)
	for s := driver.Stage(0); s < driver.StageCount; s++ {
		c.SetShader(s, nil)
		c.SetShaderResources(s, 0, make([]driver.ShaderResourceView, driver.MaxShaderResources))
		c.SetSamplers(s, 0, make([]driver.SamplerState, driver.MaxSamplers))
		c.SetConstantBuffers(s, 0, make([]driver.Buffer, driver.MaxConstantBuffers))
	}
	c.SetInputLayout(nil)
	c.SetVertexBuffers(0, make([]driver.Buffer, driver.MaxVertexBuffers), make([]uint32, driver.MaxVertexBuffers), make([]uint32, driver.MaxVertexBuffers))
	c.SetIndexBuffer(nil, driver.FormatUnknown, 0)
	c.SetRasterizerState(nil)
	c.SetBlendState(nil, [4]float32{1, 1, 1, 1}, driver.DefaultSampleMask)
	c.SetDepthStencilState(nil, 0)
	c.SetViewports(nil)
	c.SetScissorRects(nil)
	c.SetPrimitiveTopology(driver.TopologyUndefined)
}

// SetShader implements driver.Context.
func (c *Context) SetShader(stage driver.Stage, s driver.Shader) {
	c.record("%sSetShader(%s)", stage, name(s))
	if s != nil && s.Stage() != stage {
		c.dev.violate("%s bound to %s", name(s), stage)
	}
	bind(&c.st.shaders[stage], s)
}

// Shader implements driver.Context.
func (c *Context) Shader(stage driver.Stage) driver.Shader { return get(c.st.shaders[stage]) }

// SetShaderResources implements driver.Context.
func (c *Context) SetShaderResources(stage driver.Stage, start int, views []driver.ShaderResourceView) {
	c.record("%sSetShaderResources(%d,%s)", stage, start, names(views))
	for i, v := range views {
		bind(&c.st.srvs[stage][start+i], v)
	}
}

// ShaderResources implements driver.Context.
func (c *Context) ShaderResources(stage driver.Stage, start, n int) []driver.ShaderResourceView {
	s := make([]driver.ShaderResourceView, n)
	for i := range s {
		s[i] = get(c.st.srvs[stage][start+i])
	}
	return s
}

// SetSamplers implements driver.Context.
func (c *Context) SetSamplers(stage driver.Stage, start int, samplers []driver.SamplerState) {
	c.record("%sSetSamplers(%d,%s)", stage, start, names(samplers))
	for i, v := range samplers {
		bind(&c.st.samplers[stage][start+i], v)
	}
}

// Samplers implements driver.Context.
func (c *Context) Samplers(stage driver.Stage, start, n int) []driver.SamplerState {
	s := make([]driver.SamplerState, n)
	for i := range s {
		s[i] = get(c.st.samplers[stage][start+i])
	}
	return s
}

// SetConstantBuffers implements driver.Context.
func (c *Context) SetConstantBuffers(stage driver.Stage, start int, bufs []driver.Buffer) {
	c.record("%sSetConstantBuffers(%d,%s)", stage, start, names(bufs))
	for i, v := range bufs {
		bind(&c.st.cbufs[stage][start+i], v)
	}
}

// ConstantBuffers implements driver.Context.
func (c *Context) ConstantBuffers(stage driver.Stage, start, n int) []driver.Buffer {
	s := make([]driver.Buffer, n)
	for i := range s {
		s[i] = get(c.st.cbufs[stage][start+i])
	}
	return s
}

// SetPrimitiveTopology implements driver.Context.
func (c *Context) SetPrimitiveTopology(t driver.Topology) {
	c.record("SetPrimitiveTopology(%d)", t)
	c.st.topology = t
}

// PrimitiveTopology implements driver.Context.
func (c *Context) PrimitiveTopology() driver.Topology { return c.st.topology }

// SetInputLayout implements driver.Context.
func (c *Context) SetInputLayout(l driver.InputLayout) {
	c.record("SetInputLayout(%s)", name(l))
	bind(&c.st.layout, l)
}

// InputLayout implements driver.Context.
func (c *Context) InputLayout() driver.InputLayout { return get(c.st.layout) }

// SetVertexBuffers implements driver.Context.
func (c *Context) SetVertexBuffers(start int, bufs []driver.Buffer, strides, offsets []uint32) {
	c.record("SetVertexBuffers(%d,%s)", start, names(bufs))
	for i, v := range bufs {
		bind(&c.st.vbufs[start+i], v)
		c.st.strides[start+i] = strides[i]
		c.st.offsets[start+i] = offsets[i]
	}
}

// VertexBuffers implements driver.Context.
func (c *Context) VertexBuffers(start, n int) (bufs []driver.Buffer, strides, offsets []uint32) {
	bufs = make([]driver.Buffer, n)
	for i := range bufs {
		bufs[i] = get(c.st.vbufs[start+i])
	}
	strides = append([]uint32(nil), c.st.strides[start:start+n]...)
	offsets = append([]uint32(nil), c.st.offsets[start:start+n]...)
	return
}

// SetIndexBuffer implements driver.Context.
func (c *Context) SetIndexBuffer(buf driver.Buffer, f driver.Format, offset uint32) {
	c.record("SetIndexBuffer(%s)", name(buf))
	bind(&c.st.ibuf, buf)
	c.st.ifmt = f
	c.st.ioff = offset
}

// IndexBuffer implements driver.Context.
func (c *Context) IndexBuffer() (driver.Buffer, driver.Format, uint32) {
	return get(c.st.ibuf), c.st.ifmt, c.st.ioff
}

// SetRasterizerState implements driver.Context.
func (c *Context) SetRasterizerState(s driver.RasterizerState) {
	c.record("SetRasterizerState(%s)", name(s))
	bind(&c.st.raster, s)
}

// RasterizerState implements driver.Context.
func (c *Context) RasterizerState() driver.RasterizerState { return get(c.st.raster) }

// SetViewports implements driver.Context.
func (c *Context) SetViewports(vp []driver.Viewport) {
	c.record("SetViewports(%v)", vp)
	c.st.viewports = append(c.st.viewports[:0], vp...)
}

// Viewports implements driver.Context.
func (c *Context) Viewports() []driver.Viewport {
	return append([]driver.Viewport(nil), c.st.viewports...)
}

// SetScissorRects implements driver.Context.
func (c *Context) SetScissorRects(r []driver.Rect) {
	c.record("SetScissorRects(%v)", r)
	c.st.scissors = append(c.st.scissors[:0], r...)
}

// ScissorRects implements driver.Context.
func (c *Context) ScissorRects() []driver.Rect {
	return append([]driver.Rect(nil), c.st.scissors...)
}

// SetRenderTargets implements driver.Context.
func (c *Context) SetRenderTargets(rtvs []driver.RenderTargetView, dsv driver.DepthStencilView) {
	c.record("SetRenderTargets(%s,%s)", names(rtvs), name(dsv))
	for i := range c.st.rtvs {
		var v driver.RenderTargetView
		if i < len(rtvs) {
			v = rtvs[i]
		}
		bind(&c.st.rtvs[i], v)
	}
	bind(&c.st.dsv, dsv)
}

// RenderTargets implements driver.Context.
func (c *Context) RenderTargets(n int) ([]driver.RenderTargetView, driver.DepthStencilView) {
	s := make([]driver.RenderTargetView, n)
	for i := range s {
		s[i] = get(c.st.rtvs[i])
	}
	return s, get(c.st.dsv)
}

// SetBlendState implements driver.Context.
func (c *Context) SetBlendState(s driver.BlendState, factor [4]float32, mask uint32) {
	c.record("SetBlendState(%s,%v,%#x)", name(s), factor, mask)
	bind(&c.st.blend, s)
	c.st.factor = factor
	c.st.mask = mask
}

// BlendState implements driver.Context.
func (c *Context) BlendState() (driver.BlendState, [4]float32, uint32) {
	return get(c.st.blend), c.st.factor, c.st.mask
}

// SetDepthStencilState implements driver.Context.
func (c *Context) SetDepthStencilState(s driver.DepthStencilState, ref uint32) {
	c.record("SetDepthStencilState(%s,%d)", name(s), ref)
	bind(&c.st.depth, s)
	c.st.ref = ref
}

// DepthStencilState implements driver.Context.
func (c *Context) DepthStencilState() (driver.DepthStencilState, uint32) {
	return get(c.st.depth), c.st.ref
}

// Draw implements driver.Context.
// Every bound render target receives the label
// "<pixel shader>(<PS inputs>)", where the inputs are
// the content labels of the bound PS resources.
// A bound depth-stencil target receives "depth".
func (c *Context) Draw(vertexCount, startVertex int) {
	c.record("Draw(%d,%d)", vertexCount, startVertex)
	c.draws++
	label := "draw"
	if ps, ok := c.st.shaders[driver.PS].(*Shader); ok {
		label = ps.name
	}
	srvs := c.st.srvs[driver.PS][:]
	last := -1
	for i, v := range srvs {
		if v != nil {
			last = i
		}
	}
	in := make([]string, last+1)
	for i := range in {
		if v := srvs[i]; v != nil {
			in[i] = viewStore(v).content
		} else {
			in[i] = "-"
		}
	}
	out := label + "(" + strings.Join(in, ",") + ")"
	for _, v := range c.st.rtvs {
		if v == nil {
			continue
		}
		for _, s := range srvs[:last+1] {
			if s != nil && driver.Same(s.(*SRV).res, v.(*RTV).res) {
				c.dev.violate("%s bound as input and output", name(v.(*RTV).res))
			}
		}
		viewStore(v).content = out
	}
	if c.st.dsv != nil {
		viewStore(c.st.dsv).content = "depth"
	}
}

// ClearRenderTargetView implements driver.Context.
func (c *Context) ClearRenderTargetView(v driver.RenderTargetView, color [4]float32) {
	c.record("ClearRenderTargetView(%s,%v)", name(v), color)
	if v != nil {
		viewStore(v).content = fmt.Sprintf("clear%v", color)
	}
}

// ClearDepthStencilView implements driver.Context.
func (c *Context) ClearDepthStencilView(v driver.DepthStencilView, flags driver.ClearFlag, depth float32, stencil uint8) {
	c.record("ClearDepthStencilView(%s,%d,%v,%d)", name(v), flags, depth, stencil)
	if v != nil {
		viewStore(v).content = fmt.Sprintf("clear(%v,%d)", depth, stencil)
	}
}

// CopyResource implements driver.Context.
func (c *Context) CopyResource(dst, src driver.Resource) {
	c.record("CopyResource(%s,%s)", name(dst), name(src))
	d, s := resourceStore(dst), resourceStore(src)
	if d == nil || s == nil {
		c.dev.violate("CopyResource with nil resource")
		return
	}
	if dt, ok := dst.(*Texture); ok {
		st, ok := src.(*Texture)
		if !ok || dt.desc.Width != st.desc.Width || dt.desc.Height != st.desc.Height ||
			dt.desc.Sample.Count != st.desc.Sample.Count ||
			driver.TypelessOf(dt.desc.Format) != driver.TypelessOf(st.desc.Format) &&
				driver.DepthTypeless(dt.desc.Format) != driver.DepthTypeless(st.desc.Format) {
			c.dev.violate("CopyResource(%s,%s): incompatible resources", name(dst), name(src))
			return
		}
	}
	d.content = s.content
	d.data = append(d.data[:0], s.data...)
}

// ResolveSubresource implements driver.Context.
func (c *Context) ResolveSubresource(dst driver.Resource, dstSub int, src driver.Resource, srcSub int, f driver.Format) {
	c.record("ResolveSubresource(%s,%d,%s,%d,%s)", name(dst), dstSub, name(src), srcSub, f)
	d, s := resourceStore(dst), resourceStore(src)
	if d == nil || s == nil {
		c.dev.violate("ResolveSubresource with nil resource")
		return
	}
	d.content = s.content
}

// GenerateMips implements driver.Context.
func (c *Context) GenerateMips(v driver.ShaderResourceView) {
	c.record("GenerateMips(%s)", name(v))
	if v == nil {
		return
	}
	if t, ok := v.(*SRV).res.(*Texture); ok {
		t.mips++
	}
}

// UpdateSubresource implements driver.Context.
func (c *Context) UpdateSubresource(r driver.Resource, sub int, data []byte, rowPitch, depthPitch int) {
	c.record("UpdateSubresource(%s,%d)", name(r), sub)
	switch r := r.(type) {
	case *Texture:
		if sub == 0 {
			dst := r.bytes()
			pitch := r.pitch()
			for y := 0; y < r.desc.Height && y*rowPitch < len(data); y++ {
				copy(dst[y*pitch:(y+1)*pitch], data[y*rowPitch:])
			}
		}
		r.content = "data"
	case *Buffer:
		copy(r.data, data)
		r.content = "data"
	}
}

// Map implements driver.Context.
func (c *Context) Map(r driver.Resource, sub int, m driver.MapType) (driver.Mapped, error) {
	c.record("Map(%s,%d,%d)", name(r), sub, m)
	if err := c.dev.fail("Map"); err != nil {
		return driver.Mapped{}, err
	}
	switch r := r.(type) {
	case *Texture:
		if r.desc.Usage != driver.UsageStaging && r.desc.Usage != driver.UsageDynamic || r.mapped {
			return driver.Mapped{}, driver.StatusInvalidArg
		}
		r.mapped = true
		b := r.bytes()
		return driver.Mapped{Data: b, RowPitch: r.pitch(), DepthPitch: len(b)}, nil
	case *Buffer:
		if r.desc.Usage != driver.UsageStaging && r.desc.Usage != driver.UsageDynamic || r.mapped {
			return driver.Mapped{}, driver.StatusInvalidArg
		}
		r.mapped = true
		if m == driver.MapWriteDiscard {
			r.content = "mapped"
		}
		return driver.Mapped{Data: r.data, RowPitch: len(r.data), DepthPitch: len(r.data)}, nil
	}
	return driver.Mapped{}, driver.StatusInvalidArg
}

// Unmap implements driver.Context.
func (c *Context) Unmap(r driver.Resource, sub int) {
	c.record("Unmap(%s,%d)", name(r), sub)
	if s := resourceStore(r); s != nil {
		if !s.mapped {
			c.dev.violate("Unmap of %s that is not mapped", name(r))
		}
		s.mapped = false
	}
}

// names formats a list of objects for the call log.
func names[T driver.Object](s []T) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, o := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name(o))
	}
	b.WriteByte(']')
	return b.String()
}
