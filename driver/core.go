// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Handle identifies a device object.
// Two Objects refer to the same underlying object iff
// their handles are equal. Handles of released objects
// may be reused.
type Handle uintptr

// Object is the interface that all device objects
// implement. Objects are reference counted: every
// method in this package that returns an Object gives
// the caller one reference, which must be released
// with Release.
type Object interface {
	// AddRef increments the reference count.
	AddRef()

	// Release decrements the reference count.
	// The object is destroyed when no references
	// remain.
	Release()

	// ExternallyReferenced reports whether any
	// reference other than the caller's own exists.
	// The runtime uses this to detect objects that
	// the application has discarded.
	ExternallyReferenced() bool

	// Handle returns the object's identity.
	Handle() Handle
}

// Same reports whether a and b refer to the same
// underlying object. Two nil objects are the same.
func Same(a, b Object) bool {
	an, bn := isNil(a), isNil(b)
	if an || bn {
		return an == bn
	}
	return a.Handle() == b.Handle()
}

// isNil reports whether o is nil or holds a nil value
// of a known implementation.
func isNil(o Object) bool {
	if o == nil {
		return true
	}
	if n, ok := o.(interface{ IsNil() bool }); ok {
		return n.IsNil()
	}
	return false
}

// SafeRelease releases o if it is not nil.
func SafeRelease(o Object) {
	if !isNil(o) {
		o.Release()
	}
}

// Device is the interface to a Direct3D 11 device.
// It creates every other type.
type Device interface {
	Object

	// ImmediateContext returns the device's immediate
	// context.
	ImmediateContext() Context

	// CreateTexture2D creates a 2D texture.
	// If data is not nil, it provides the initial
	// contents of the first subresource.
	CreateTexture2D(desc *Tex2DDesc, data []byte) (Texture2D, error)

	// CreateBuffer creates a buffer.
	CreateBuffer(desc *BufferDesc, data []byte) (Buffer, error)

	// CreateRenderTargetView creates a render target
	// view of r. A nil desc creates a view of mip 0
	// in the resource's format.
	CreateRenderTargetView(r Resource, desc *RTVDesc) (RenderTargetView, error)

	// CreateDepthStencilView creates a depth-stencil
	// view of r. A nil desc creates a view of mip 0
	// in the resource's format.
	CreateDepthStencilView(r Resource, desc *DSVDesc) (DepthStencilView, error)

	// CreateShaderResourceView creates a shader
	// resource view of r. A nil desc creates a view
	// of the whole mip chain in the resource's format.
	CreateShaderResourceView(r Resource, desc *SRVDesc) (ShaderResourceView, error)

	// CreateVertexShader creates a vertex shader from
	// compiled bytecode.
	CreateVertexShader(code []byte) (Shader, error)

	// CreatePixelShader creates a pixel shader from
	// compiled bytecode.
	CreatePixelShader(code []byte) (Shader, error)

	// CreateBlendState creates a blend state.
	CreateBlendState(desc *BlendDesc) (BlendState, error)

	// CreateDepthStencilState creates a depth-stencil
	// state.
	CreateDepthStencilState(desc *DepthStencilDesc) (DepthStencilState, error)

	// CreateRasterizerState creates a rasterizer state.
	CreateRasterizerState(desc *RasterizerDesc) (RasterizerState, error)

	// CreateSamplerState creates a sampler state.
	CreateSamplerState(desc *SamplerDesc) (SamplerState, error)

	// Adapter describes the adapter that owns the
	// device.
	Adapter() AdapterDesc
}

// AdapterDesc describes a display adapter.
type AdapterDesc struct {
	VendorID     uint32
	DeviceID     uint32
	Description  string
	FeatureLevel uint32
}

// Stage identifies a programmable pipeline stage.
type Stage int

// Pipeline stages.
const (
	VS Stage = iota
	HS
	DS
	GS
	PS
	StageCount
)

func (s Stage) String() string {
	switch s {
	case VS:
		return "VS"
	case HS:
		return "HS"
	case DS:
		return "DS"
	case GS:
		return "GS"
	case PS:
		return "PS"
	}
	return "Stage(?)"
}

// Pipeline limits.
const (
	// Number of simultaneous render targets.
	MaxRenderTargets = 8
	// Number of shader resource slots per stage.
	MaxShaderResources = 128
	// Number of sampler slots per stage.
	MaxSamplers = 16
	// Number of constant buffer slots per stage.
	MaxConstantBuffers = 14
	// Number of vertex buffer slots.
	MaxVertexBuffers = 32
	// Number of viewports and scissor rects.
	MaxViewports = 16
)

// DefaultSampleMask enables every sample.
const DefaultSampleMask = 0xffffffff

// Context is the interface to a Direct3D 11 device
// context. Methods that return Objects follow the
// Object ownership rule; slices returned from getters
// may contain nil entries.
type Context interface {
	Object

	// SetShader binds a shader to a stage.
	// A nil shader disables the stage.
	SetShader(stage Stage, s Shader)

	// Shader returns the shader bound to a stage.
	Shader(stage Stage) Shader

	// SetShaderResources binds shader resource
	// views starting at slot start.
	SetShaderResources(stage Stage, start int, views []ShaderResourceView)

	// ShaderResources returns n views starting at
	// slot start.
	ShaderResources(stage Stage, start, n int) []ShaderResourceView

	// SetSamplers binds samplers starting at slot
	// start.
	SetSamplers(stage Stage, start int, samplers []SamplerState)

	// Samplers returns n samplers starting at slot
	// start.
	Samplers(stage Stage, start, n int) []SamplerState

	// SetConstantBuffers binds constant buffers
	// starting at slot start.
	SetConstantBuffers(stage Stage, start int, bufs []Buffer)

	// ConstantBuffers returns n constant buffers
	// starting at slot start.
	ConstantBuffers(stage Stage, start, n int) []Buffer

	// SetPrimitiveTopology sets the input assembler
	// topology.
	SetPrimitiveTopology(t Topology)

	// PrimitiveTopology returns the input assembler
	// topology.
	PrimitiveTopology() Topology

	// SetInputLayout sets the input layout.
	SetInputLayout(l InputLayout)

	// InputLayout returns the input layout.
	InputLayout() InputLayout

	// SetVertexBuffers binds vertex buffers starting
	// at slot start. strides and offsets must have
	// the same length as bufs.
	SetVertexBuffers(start int, bufs []Buffer, strides, offsets []uint32)

	// VertexBuffers returns n vertex buffers starting
	// at slot start.
	VertexBuffers(start, n int) (bufs []Buffer, strides, offsets []uint32)

	// SetIndexBuffer binds the index buffer.
	SetIndexBuffer(buf Buffer, f Format, offset uint32)

	// IndexBuffer returns the index buffer.
	IndexBuffer() (buf Buffer, f Format, offset uint32)

	// SetRasterizerState sets the rasterizer state.
	SetRasterizerState(s RasterizerState)

	// RasterizerState returns the rasterizer state.
	RasterizerState() RasterizerState

	// SetViewports sets the viewports.
	SetViewports(vp []Viewport)

	// Viewports returns the viewports.
	Viewports() []Viewport

	// SetScissorRects sets the scissor rectangles.
	SetScissorRects(r []Rect)

	// ScissorRects returns the scissor rectangles.
	ScissorRects() []Rect

	// SetRenderTargets binds render target views and
	// a depth-stencil view. Slots past len(rtvs) are
	// unbound.
	SetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)

	// RenderTargets returns n render target views and
	// the depth-stencil view.
	RenderTargets(n int) ([]RenderTargetView, DepthStencilView)

	// SetBlendState sets the blend state, blend factor
	// and sample mask.
	SetBlendState(s BlendState, factor [4]float32, mask uint32)

	// BlendState returns the blend state, blend factor
	// and sample mask.
	BlendState() (BlendState, [4]float32, uint32)

	// SetDepthStencilState sets the depth-stencil
	// state and stencil reference.
	SetDepthStencilState(s DepthStencilState, ref uint32)

	// DepthStencilState returns the depth-stencil
	// state and stencil reference.
	DepthStencilState() (DepthStencilState, uint32)

	// Draw draws non-indexed primitives.
	Draw(vertexCount, startVertex int)

	// ClearRenderTargetView fills a render target.
	ClearRenderTargetView(v RenderTargetView, color [4]float32)

	// ClearDepthStencilView clears a depth-stencil
	// view.
	ClearDepthStencilView(v DepthStencilView, flags ClearFlag, depth float32, stencil uint8)

	// CopyResource copies the whole contents of src
	// into dst.
	CopyResource(dst, src Resource)

	// ResolveSubresource resolves a multisampled
	// subresource into a single-sampled one.
	ResolveSubresource(dst Resource, dstSub int, src Resource, srcSub int, f Format)

	// GenerateMips generates the mip chain of the
	// view's resource.
	GenerateMips(v ShaderResourceView)

	// UpdateSubresource copies CPU data into a
	// subresource.
	UpdateSubresource(r Resource, sub int, data []byte, rowPitch, depthPitch int)

	// Map maps a subresource into CPU memory.
	// The returned slice is valid until Unmap.
	Map(r Resource, sub int, m MapType) (Mapped, error)

	// Unmap invalidates the pointer returned by Map.
	Unmap(r Resource, sub int)
}

// Mapped describes a mapped subresource.
type Mapped struct {
	Data       []byte
	RowPitch   int
	DepthPitch int
}

// MapType is the type of CPU access requested by Map.
type MapType int

// Map types.
const (
	MapRead MapType = iota + 1
	MapWrite
	MapReadWrite
	MapWriteDiscard
	MapWriteNoOverwrite
)

// ClearFlag selects the aspects cleared by
// ClearDepthStencilView.
type ClearFlag int

// Clear flags.
const (
	ClearDepth ClearFlag = 1 << iota
	ClearStencil
)

// Topology is the type of primitive topologies.
type Topology int

// Primitive topologies.
const (
	TopologyUndefined Topology = iota
	TopologyPointList
	TopologyLineList
	TopologyLineStrip
	TopologyTriangleList
	TopologyTriangleStrip
)

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, MinDepth, MaxDepth float32
}

// Rect defines a scissor rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// SwapChain is the interface to a DXGI swap chain.
type SwapChain interface {
	Object

	// Desc returns the swap chain description.
	Desc() SwapChainDesc

	// Buffer returns one of the swap chain buffers.
	Buffer(i int) (Texture2D, error)
}

// SwapChainDesc describes a swap chain.
type SwapChainDesc struct {
	Width, Height int
	Format        Format
	SampleCount   int
	SampleQuality int
	BufferCount   int
}

// Presenter is the interface that a Device may
// implement to create swap chains on its own (the
// host's swap chain is used otherwise).
type Presenter interface {
	// NewSwapChain creates a new swap chain.
	NewSwapChain(desc *SwapChainDesc) (SwapChain, error)
}

// Dimension is the type of resource dimensions.
type Dimension int

// Resource dimensions.
const (
	DimensionUnknown Dimension = iota
	DimensionBuffer
	DimensionTexture2D
)

// Resource is the interface that defines GPU memory.
type Resource interface {
	Object

	// Dimension returns the resource dimension.
	Dimension() Dimension
}

// Usage is the type of resource usages.
type Usage int

// Resource usages.
const (
	UsageDefault Usage = iota
	UsageImmutable
	UsageDynamic
	UsageStaging
)

// BindFlag is a mask indicating valid bind points
// for a resource.
type BindFlag int

// Bind flags.
const (
	BindVertexBuffer BindFlag = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
	BindShaderResource
	BindStreamOutput
	BindRenderTarget
	BindDepthStencil
	BindUnorderedAccess
)

// CPUAccess is a mask indicating CPU access to a
// resource.
type CPUAccess int

// CPU access flags.
const (
	CPUAccessWrite CPUAccess = 0x10000
	CPUAccessRead  CPUAccess = 0x20000
)

// MiscFlag is a mask of less common resource options.
type MiscFlag int

// Misc flags.
const (
	MiscGenerateMips MiscFlag = 1
)

// SampleDesc describes multisampling.
type SampleDesc struct {
	Count, Quality int
}

// Tex2DDesc describes a 2D texture.
type Tex2DDesc struct {
	Width, Height int
	MipLevels     int
	ArraySize     int
	Format        Format
	Sample        SampleDesc
	Usage         Usage
	BindFlags     BindFlag
	CPUAccess     CPUAccess
	MiscFlags     MiscFlag
}

// Texture2D is the interface that defines a 2D texture.
type Texture2D interface {
	Resource

	// Desc returns the texture description.
	Desc() Tex2DDesc
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	Size      int
	Usage     Usage
	BindFlags BindFlag
	CPUAccess CPUAccess
}

// Buffer is the interface that defines a GPU buffer.
type Buffer interface {
	Resource

	// Desc returns the buffer description.
	Desc() BufferDesc
}

// View is the interface common to resource views.
type View interface {
	Object

	// Resource returns the viewed resource.
	Resource() Resource
}

// RTVDesc describes a render target view.
type RTVDesc struct {
	Format   Format
	MipSlice int
}

// RenderTargetView is the interface that defines a
// render target view.
type RenderTargetView interface {
	View

	// Desc returns the view description.
	Desc() RTVDesc
}

// DSVDesc describes a depth-stencil view.
type DSVDesc struct {
	Format   Format
	MipSlice int
}

// DepthStencilView is the interface that defines a
// depth-stencil view.
type DepthStencilView interface {
	View

	// Desc returns the view description.
	Desc() DSVDesc
}

// SRVDesc describes a shader resource view.
type SRVDesc struct {
	Format          Format
	MostDetailedMip int
	MipLevels       int
}

// ShaderResourceView is the interface that defines a
// shader resource view.
type ShaderResourceView interface {
	View

	// Desc returns the view description.
	Desc() SRVDesc
}

// Shader is the interface that defines a compiled
// shader for a single stage.
type Shader interface {
	Object

	// Stage returns the stage the shader was
	// created for.
	Stage() Stage
}

// InputLayout is the interface that defines a vertex
// input layout.
type InputLayout interface {
	Object
}

// BlendOp is the type of blend operations.
type BlendOp int

// Blend operations.
const (
	BlendOpAdd BlendOp = iota + 1
	BlendOpSubtract
	BlendOpRevSubtract
	BlendOpMin
	BlendOpMax
)

// Blend is the type of blend factors.
type Blend int

// Blend factors.
const (
	BlendZero Blend = iota + 1
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstAlpha
	BlendInvDstAlpha
	BlendDstColor
	BlendInvDstColor
	BlendSrcAlphaSat
	BlendFactor
	BlendInvFactor
)

// ColorWrite is the type of color write masks.
type ColorWrite uint8

// Color write masks.
const (
	ColorWriteRed ColorWrite = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha
	ColorWriteAll ColorWrite = 1<<iota - 1
)

// RTBlendDesc defines a render target's blend
// parameters.
type RTBlendDesc struct {
	Enable             bool
	Src, Dst           Blend
	Op                 BlendOp
	SrcAlpha, DstAlpha Blend
	OpAlpha            BlendOp
	WriteMask          ColorWrite
}

// BlendDesc describes a blend state.
type BlendDesc struct {
	AlphaToCoverage  bool
	IndependentBlend bool
	RenderTarget     [MaxRenderTargets]RTBlendDesc
}

// BlendState is the interface that defines a blend
// state object.
type BlendState interface {
	Object
}

// Comparison is the type of comparison functions.
type Comparison int

// Comparison functions.
const (
	CmpNever Comparison = iota + 1
	CmpLess
	CmpEqual
	CmpLessEqual
	CmpGreater
	CmpNotEqual
	CmpGreaterEqual
	CmpAlways
)

// StencilOp is the type of stencil operations.
type StencilOp int

// Stencil operations.
const (
	StencilKeep StencilOp = iota + 1
	StencilZero
	StencilReplace
	StencilIncrSat
	StencilDecrSat
	StencilInvert
	StencilIncr
	StencilDecr
)

// StencilFaceDesc defines stencil operations for one
// triangle facing.
type StencilFaceDesc struct {
	Fail, DepthFail, Pass StencilOp
	Func                  Comparison
}

// DepthStencilDesc describes a depth-stencil state.
type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWrite       bool
	DepthFunc        Comparison
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	Front, Back      StencilFaceDesc
}

// DepthStencilState is the interface that defines a
// depth-stencil state object.
type DepthStencilState interface {
	Object
}

// FillMode is the type of triangle fill modes.
type FillMode int

// Fill modes.
const (
	FillWireframe FillMode = iota + 2
	FillSolid
)

// CullMode is the type of cull modes.
type CullMode int

// Cull modes.
const (
	CullNone CullMode = iota + 1
	CullFront
	CullBack
)

// RasterizerDesc describes a rasterizer state.
type RasterizerDesc struct {
	Fill                 FillMode
	Cull                 CullMode
	FrontCCW             bool
	DepthBias            int32
	DepthBiasClamp       float32
	SlopeScaledDepthBias float32
	DepthClip            bool
	Scissor              bool
	Multisample          bool
	AntialiasedLine      bool
}

// RasterizerState is the interface that defines a
// rasterizer state object.
type RasterizerState interface {
	Object
}

// Filter is the type of sampler filters.
type Filter int

// Sampler filters.
const (
	FilterMinMagMipPoint  Filter = 0
	FilterMinMagMipLinear Filter = 0x15
	FilterAnisotropic     Filter = 0x55
)

// AddressMode is the type of texture address modes.
type AddressMode int

// Address modes.
const (
	AddressWrap AddressMode = iota + 1
	AddressMirror
	AddressClamp
	AddressBorder
	AddressMirrorOnce
)

// SamplerDesc describes a sampler state.
type SamplerDesc struct {
	Filter                       Filter
	AddressU, AddressV, AddressW AddressMode
	MipLODBias                   float32
	MaxAnisotropy                int
	Comparison                   Comparison
	BorderColor                  [4]float32
	MinLOD, MaxLOD               float32
}

// SamplerState is the interface that defines a
// sampler state object.
type SamplerState interface {
	Object
}
