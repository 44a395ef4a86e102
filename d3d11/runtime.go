// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package d3d11 implements the Direct3D 11 side of the
// post-processing runtime.
//
// A Runtime is driven by a host hook layer: the host
// forwards the application's draw, depth-stencil and
// present calls to the On* methods and applies the
// translations they return. The runtime keeps a
// shader-readable copy of the back buffer, selects the
// depth-stencil view that most likely holds the scene
// depth, renders the enabled techniques before each
// present and restores the application's pipeline state
// afterwards.
package d3d11

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gviegas/postfx"
	"github.com/gviegas/postfx/config"
	"github.com/gviegas/postfx/depth"
	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/input"
	"github.com/gviegas/postfx/internal/logging"
)

// TechniqueTimer measures the GPU time of techniques.
// Begin and End bracket the commands of one technique.
type TechniqueTimer interface {
	Begin(t *effect.Technique)
	End(t *effect.Technique)
}

// Options configure a Runtime.
type Options struct {
	// Config is the runtime configuration.
	// If nil, config.Default is used.
	Config *config.Config

	// Compiler compiles effect files.
	Compiler effect.Compiler

	// Input is queried for key and mouse state.
	// It may be nil.
	Input input.Input

	// CopyVS and CopyPS are the bytecode of the
	// full-screen triangle shaders used to copy the
	// effect output back to the back buffer.
	CopyVS, CopyPS []byte

	// Timer, if not nil, is called around every
	// technique.
	Timer TechniqueTimer
}

// ErrNotTexture means that a view does not refer to a
// 2D texture.
var ErrNotTexture = errors.New("d3d11: view resource is not a 2D texture")

// Runtime is the Direct3D 11 post-processing runtime.
type Runtime struct {
	dev  driver.Device
	ctx  driver.Context
	swap driver.SwapChain
	cfg  *config.Config
	fx   *postfx.Runtime

	tracker *depth.Tracker
	timer   TechniqueTimer
	copyVS  []byte
	copyPS  []byte

	initialized   bool
	width, height int
	format        driver.Format
	multisampled  bool

	backBuffer driver.Texture2D
	// resolved is the back buffer itself when aliased.
	resolved  driver.Texture2D
	bbTexture driver.Texture2D
	// bbSRV holds linear and sRGB views of bbTexture.
	bbSRV [2]driver.ShaderResourceView
	// bbRTV holds linear and sRGB views of resolved,
	// then a view of backBuffer.
	bbRTV [3]driver.RenderTargetView

	defaultDSV  driver.DepthStencilView
	copyVSObj   driver.Shader
	copyPSObj   driver.Shader
	copySampler driver.SamplerState
	raster      driver.RasterizerState
	noDepth     driver.DepthStencilState

	repl *depth.Replacement

	// resources is the effect resource table.
	resources []driver.ShaderResourceView
	modules   []*effect.Module
	passes    []*effect.Pass
	samplers  map[*effect.Technique][]driver.SamplerState

	depthCleared bool
	presenting   bool
	presents     int
}

// New creates a new runtime for the given device and
// swap chain. OnInit must be called before the first
// present.
func New(dev driver.Device, swap driver.SwapChain, opts *Options) *Runtime {
	if opts == nil {
		opts = &Options{}
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runtime{
		dev:  dev,
		ctx:  dev.ImmediateContext(),
		swap: swap,
		cfg:  cfg,
		tracker: depth.New(depth.Config{
			ScoreBias:    cfg.Depth.ScoreBias,
			TrimInterval: cfg.Depth.TrimInterval,
		}),
		timer:    opts.Timer,
		copyVS:   opts.CopyVS,
		copyPS:   opts.CopyPS,
		samplers: make(map[*effect.Technique][]driver.SamplerState),
	}
	r.fx = postfx.New(cfg, opts.Compiler, opts.Input, r)
	return r
}

// Effects returns the API-independent runtime that
// holds the loaded effects.
func (r *Runtime) Effects() *postfx.Runtime { return r.fx }

// Tracker returns the depth-source tracker.
func (r *Runtime) Tracker() *depth.Tracker { return r.tracker }

// Initialized reports whether OnInit succeeded since the
// last reset.
func (r *Runtime) Initialized() bool { return r.initialized }

// OnInit creates every resource that depends on the
// swap chain's back buffer and starts loading effects.
// If the runtime is initialized already, it is reset
// first. On failure, the runtime is left uninitialized.
func (r *Runtime) OnInit(desc driver.SwapChainDesc) (err error) {
	if r.initialized {
		r.OnReset()
	}
	r.width, r.height = desc.Width, desc.Height
	r.format = desc.Format
	r.multisampled = desc.SampleCount > 1
	defer func() {
		if err != nil {
			r.release()
		}
	}()
	if err = r.initBackBuffer(); err != nil {
		return
	}
	if err = r.initDefaultDepthStencil(); err != nil {
		return
	}
	if err = r.initFXResources(); err != nil {
		return
	}
	r.resources = make([]driver.ShaderResourceView, effect.ReservedSlots)
	effect.Set(&r.resources[effect.SlotBackBuffer], r.bbSRV[0])
	effect.Set(&r.resources[effect.SlotBackBufferSRGB], r.bbSRV[1])

	r.tracker.Reset(r.width, r.height, r.multisampled)
	r.tracker.Ignore(r.defaultDSV)
	r.initialized = true
	r.fx.OnInit(r.width, r.height, r.dev.Adapter())
	return nil
}

// OnReset releases every resource created by OnInit,
// including effects and the depth replacement, and every
// reference held to the swap chain's buffers.
func (r *Runtime) OnReset() {
	if !r.initialized {
		return
	}
	r.fx.OnReset()
	r.release()
	r.initialized = false
	logging.L().Info("d3d11 runtime reset")
}

// Close resets the runtime and releases the immediate
// context. The runtime must not be used afterwards.
func (r *Runtime) Close() {
	r.OnReset()
	r.fx.Close()
	release(&r.ctx)
}

func (r *Runtime) release() {
	r.tracker.Reset(0, 0, false)
	r.repl.Release()
	r.repl = nil
	for i := range r.resources {
		release(&r.resources[i])
	}
	r.resources = nil
	for i := range r.bbRTV {
		release(&r.bbRTV[i])
	}
	for i := range r.bbSRV {
		release(&r.bbSRV[i])
	}
	release(&r.bbTexture)
	release(&r.resolved)
	release(&r.backBuffer)
	release(&r.defaultDSV)
	release(&r.copyVSObj)
	release(&r.copyPSObj)
	release(&r.copySampler)
	release(&r.raster)
	release(&r.noDepth)
}

// release releases *o, if not nil, and sets it to nil.
func release[T driver.Object](o *T) {
	driver.SafeRelease(*o)
	var zero T
	*o = zero
}

// createError logs a failed creation and wraps err.
func createError(what string, err error, fields ...zap.Field) error {
	logging.L().Error("failed to create "+what, append(fields, zap.Error(err))...)
	return fmt.Errorf("d3d11: failed to create %s: %w", what, err)
}

func texFields(d *driver.Tex2DDesc) []zap.Field {
	return []zap.Field{
		zap.Int("width", d.Width),
		zap.Int("height", d.Height),
		zap.Stringer("format", d.Format),
		zap.Int("samples", d.Sample.Count),
		zap.Int("bind", int(d.BindFlags)),
	}
}

// aliased reports whether effects render directly to
// the back buffer.
func (r *Runtime) aliased() bool {
	return r.cfg.AliasBackBuffer && !r.multisampled && driver.NormalOf(r.format) == r.format
}

// initBackBuffer creates the back-buffer set: the
// resolved back buffer, its shader-readable copy and
// the views of both.
func (r *Runtime) initBackBuffer() (err error) {
	if r.backBuffer, err = r.swap.Buffer(0); err != nil {
		return fmt.Errorf("d3d11: failed to get back buffer: %w", err)
	}
	desc := driver.Tex2DDesc{
		Width:     r.width,
		Height:    r.height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    driver.TypelessOf(r.format),
		Sample:    driver.SampleDesc{Count: 1},
		Usage:     driver.UsageDefault,
		BindFlags: driver.BindRenderTarget,
	}
	if r.aliased() {
		r.backBuffer.AddRef()
		r.resolved = r.backBuffer
	} else if r.resolved, err = r.dev.CreateTexture2D(&desc, nil); err != nil {
		return createError("resolved back buffer", err, texFields(&desc)...)
	}
	if r.bbRTV[2], err = r.dev.CreateRenderTargetView(r.backBuffer, nil); err != nil {
		return createError("back buffer render target", err, zap.Stringer("format", r.format))
	}

	desc.BindFlags = driver.BindShaderResource
	if r.bbTexture, err = r.dev.CreateTexture2D(&desc, nil); err != nil {
		return createError("back buffer texture", err, texFields(&desc)...)
	}
	formats := [2]driver.Format{driver.NormalOf(desc.Format), driver.SRGBOf(desc.Format)}
	for i, f := range formats {
		if r.bbSRV[i], err = r.dev.CreateShaderResourceView(r.bbTexture, &driver.SRVDesc{Format: f, MipLevels: 1}); err != nil {
			return createError("back buffer resource view", err, zap.Stringer("format", f))
		}
		if r.bbRTV[i], err = r.dev.CreateRenderTargetView(r.resolved, &driver.RTVDesc{Format: f}); err != nil {
			return createError("back buffer render target", err, zap.Stringer("format", f))
		}
	}
	return nil
}

// initDefaultDepthStencil creates the depth-stencil
// view that passes rendering at full size use.
func (r *Runtime) initDefaultDepthStencil() error {
	desc := driver.Tex2DDesc{
		Width:     r.width,
		Height:    r.height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    driver.FormatD24UnormS8Uint,
		Sample:    driver.SampleDesc{Count: 1},
		Usage:     driver.UsageDefault,
		BindFlags: driver.BindDepthStencil,
	}
	tex, err := r.dev.CreateTexture2D(&desc, nil)
	if err != nil {
		return createError("default depth-stencil texture", err, texFields(&desc)...)
	}
	defer tex.Release()
	if r.defaultDSV, err = r.dev.CreateDepthStencilView(tex, nil); err != nil {
		return createError("default depth-stencil view", err, zap.Stringer("format", desc.Format))
	}
	return nil
}

// initFXResources creates the copy shaders and the
// fixed states used while rendering effects.
func (r *Runtime) initFXResources() (err error) {
	if r.copyVSObj, err = r.dev.CreateVertexShader(r.copyVS); err != nil {
		return createError("copy vertex shader", err, zap.Int("size", len(r.copyVS)))
	}
	if r.copyPSObj, err = r.dev.CreatePixelShader(r.copyPS); err != nil {
		return createError("copy pixel shader", err, zap.Int("size", len(r.copyPS)))
	}
	if r.copySampler, err = r.dev.CreateSamplerState(&driver.SamplerDesc{
		Filter:     driver.FilterMinMagMipPoint,
		AddressU:   driver.AddressClamp,
		AddressV:   driver.AddressClamp,
		AddressW:   driver.AddressClamp,
		Comparison: driver.CmpNever,
		MaxLOD:     math.MaxFloat32,
	}); err != nil {
		return createError("copy sampler state", err)
	}
	if r.raster, err = r.dev.CreateRasterizerState(&driver.RasterizerDesc{
		Fill:      driver.FillSolid,
		Cull:      driver.CullNone,
		DepthClip: true,
	}); err != nil {
		return createError("effect rasterizer state", err)
	}
	if r.noDepth, err = r.dev.CreateDepthStencilState(&driver.DepthStencilDesc{
		DepthFunc: driver.CmpAlways,
	}); err != nil {
		return createError("effect depth-stencil state", err)
	}
	return nil
}
