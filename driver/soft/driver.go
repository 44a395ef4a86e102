// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package soft implements driver interfaces in memory.
// It executes no shaders. Instead, each resource carries
// a symbolic content label that draws, copies, resolves
// and clears propagate, and every object carries a
// reference count that can be inspected. The immediate
// context records the calls made on it.
package soft

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gviegas/postfx/driver"
	"github.com/gviegas/postfx/internal/idpool"
	"github.com/gviegas/postfx/internal/logging"
	"go.uber.org/zap"
)

const driverName = "soft"

// Driver implements driver.Driver.
type Driver struct {
	mu  sync.Mutex
	dev *Device
}

func init() {
	driver.Register(&Driver{})
}

// Open implements driver.Driver.
func (d *Driver) Open() (driver.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		d.dev = NewDevice(nil)
	}
	return d.dev, nil
}

// Name implements driver.Driver.
func (*Driver) Name() string { return driverName }

// Close implements driver.Driver.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		d.dev.Release()
		d.dev = nil
	}
}

// object implements the reference counting part of
// driver.Object.
type object struct {
	dev  *Device
	id   driver.Handle
	kind string
	refs atomic.Int32
	free func()
}

// AddRef implements driver.Object.
func (o *object) AddRef() { o.refs.Add(1) }

// Release implements driver.Object.
func (o *object) Release() {
	switch n := o.refs.Add(-1); {
	case n == 0:
		o.dev.destroy(o)
	case n < 0:
		o.dev.violate("Release of destroyed %s #%d", o.kind, o.id)
	}
}

// ExternallyReferenced implements driver.Object.
func (o *object) ExternallyReferenced() bool { return o.refs.Load() > 1 }

// Handle implements driver.Object.
func (o *object) Handle() driver.Handle { return o.id }

func (o *object) String() string { return fmt.Sprintf("%s#%d", o.kind, o.id) }

// Refs returns the reference count of o, which must
// have been created by this package.
func Refs(o driver.Object) int {
	if b, ok := o.(interface{ base() *object }); ok {
		return int(b.base().refs.Load())
	}
	return -1
}

func (o *object) base() *object { return o }

// Device implements driver.Device and driver.Presenter.
type Device struct {
	object

	mu    sync.Mutex
	ids   idpool.Pool
	live  map[driver.Handle]*object
	fails map[string][]error
	viol  []string
	ctx   *Context
	adapt driver.AdapterDesc
}

// NewDevice creates a new device.
// If adapter is nil, a default description is used.
func NewDevice(adapter *driver.AdapterDesc) *Device {
	d := &Device{
		live:  make(map[driver.Handle]*object),
		fails: make(map[string][]error),
		adapt: driver.AdapterDesc{
			VendorID:     0x1414,
			DeviceID:     0x8c,
			Description:  "Soft Adapter",
			FeatureLevel: 0xb000,
		},
	}
	if adapter != nil {
		d.adapt = *adapter
	}
	d.object = object{dev: d, id: driver.Handle(d.ids.Get()), kind: "Device"}
	d.refs.Store(1)
	d.ctx = newContext(d)
	logging.L().Debug("soft device created", zap.String("adapter", d.adapt.Description))
	return d
}

// newObject registers a new object with one reference.
func (d *Device) newObject(o *object, kind string, free func()) {
	d.mu.Lock()
	id := driver.Handle(d.ids.Get())
	d.live[id] = o
	d.mu.Unlock()
	o.dev = d
	o.id = id
	o.kind = kind
	o.free = free
	o.refs.Store(1)
}

func (d *Device) destroy(o *object) {
	d.mu.Lock()
	delete(d.live, o.id)
	d.ids.Put(uint32(o.id))
	d.mu.Unlock()
	if o.free != nil {
		o.free()
	}
}

func (d *Device) violate(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	d.mu.Lock()
	d.viol = append(d.viol, s)
	d.mu.Unlock()
	logging.L().Error("soft: API violation", zap.String("what", s))
}

// Violations returns the API misuses detected so far,
// such as over-releasing an object.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.viol...)
}

// Live returns the number of live objects, excluding
// the device and its immediate context.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveKinds returns the number of live objects per kind.
func (d *Device) LiveKinds() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := make(map[string]int)
	for _, o := range d.live {
		m[o.kind]++
	}
	return m
}

// FailNext causes the next call to the named method
// (e.g. "CreateTexture2D" or "Map") to fail with err.
// Multiple calls queue failures in order.
func (d *Device) FailNext(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fails[method] = append(d.fails[method], err)
}

// fail pops a queued failure for method.
func (d *Device) fail(method string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.fails[method]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	if len(q) == 1 {
		delete(d.fails, method)
	} else {
		d.fails[method] = q[1:]
	}
	return err
}

// Soft returns the immediate context with its concrete
// type, without adding a reference.
func (d *Device) Soft() *Context { return d.ctx }

// ImmediateContext implements driver.Device.
func (d *Device) ImmediateContext() driver.Context {
	d.ctx.AddRef()
	return d.ctx
}

// Adapter implements driver.Device.
func (d *Device) Adapter() driver.AdapterDesc { return d.adapt }

// CreateTexture2D implements driver.Device.
func (d *Device) CreateTexture2D(desc *driver.Tex2DDesc, data []byte) (driver.Texture2D, error) {
	if err := d.fail("CreateTexture2D"); err != nil {
		return nil, err
	}
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 {
		return nil, driver.StatusInvalidArg
	}
	dsc := *desc
	if dsc.MipLevels == 0 {
		dsc.MipLevels = mipCount(dsc.Width, dsc.Height)
	}
	if dsc.ArraySize == 0 {
		dsc.ArraySize = 1
	}
	if dsc.Sample.Count == 0 {
		dsc.Sample.Count = 1
	}
	if dsc.BindFlags&driver.BindDepthStencil != 0 {
		if dsc.BindFlags&driver.BindRenderTarget != 0 {
			return nil, driver.StatusInvalidArg
		}
		if dsc.BindFlags&driver.BindShaderResource != 0 && dsc.Format.IsDepth() {
			// Typed depth formats cannot be sampled.
			return nil, driver.StatusInvalidArg
		}
	}
	t := &Texture{desc: dsc}
	d.newObject(&t.object, "Texture2D", nil)
	if data != nil {
		t.data = append([]byte(nil), data...)
		t.content = "data"
	}
	return t, nil
}

func mipCount(w, h int) int {
	n := 1
	for w > 1 || h > 1 {
		w, h = w/2, h/2
		n++
	}
	return n
}

// CreateBuffer implements driver.Device.
func (d *Device) CreateBuffer(desc *driver.BufferDesc, data []byte) (driver.Buffer, error) {
	if err := d.fail("CreateBuffer"); err != nil {
		return nil, err
	}
	if desc == nil || desc.Size <= 0 {
		return nil, driver.StatusInvalidArg
	}
	if desc.BindFlags&driver.BindConstantBuffer != 0 && desc.Size%16 != 0 {
		return nil, driver.StatusInvalidArg
	}
	b := &Buffer{desc: *desc, store: store{data: make([]byte, desc.Size)}}
	copy(b.data, data)
	d.newObject(&b.object, "Buffer", nil)
	return b, nil
}

// resourceStore returns the store of a resource created
// by this package.
func resourceStore(r driver.Resource) *store {
	switch r := r.(type) {
	case *Texture:
		return &r.store
	case *Buffer:
		return &r.store
	}
	return nil
}

func viewFormat(r driver.Resource, f driver.Format) driver.Format {
	if f != driver.FormatUnknown {
		return f
	}
	if t, ok := r.(*Texture); ok {
		return t.desc.Format
	}
	return f
}

func (d *Device) newView(v *view, r driver.Resource, kind string) {
	r.AddRef()
	v.res = r
	d.newObject(&v.object, kind, func() { v.res.Release() })
}

// CreateRenderTargetView implements driver.Device.
func (d *Device) CreateRenderTargetView(r driver.Resource, desc *driver.RTVDesc) (driver.RenderTargetView, error) {
	if err := d.fail("CreateRenderTargetView"); err != nil {
		return nil, err
	}
	t, ok := r.(*Texture)
	if !ok || t.desc.BindFlags&driver.BindRenderTarget == 0 {
		return nil, driver.StatusInvalidArg
	}
	var dsc driver.RTVDesc
	if desc != nil {
		dsc = *desc
	}
	dsc.Format = viewFormat(r, dsc.Format)
	if dsc.Format.IsDepth() || dsc.Format == driver.TypelessOf(dsc.Format) && dsc.Format != driver.NormalOf(dsc.Format) {
		return nil, driver.StatusInvalidArg
	}
	v := &RTV{desc: dsc}
	d.newView(&v.view, r, "RTV")
	return v, nil
}

// CreateDepthStencilView implements driver.Device.
func (d *Device) CreateDepthStencilView(r driver.Resource, desc *driver.DSVDesc) (driver.DepthStencilView, error) {
	if err := d.fail("CreateDepthStencilView"); err != nil {
		return nil, err
	}
	t, ok := r.(*Texture)
	if !ok || t.desc.BindFlags&driver.BindDepthStencil == 0 {
		return nil, driver.StatusInvalidArg
	}
	var dsc driver.DSVDesc
	if desc != nil {
		dsc = *desc
	}
	dsc.Format = viewFormat(r, dsc.Format)
	if !dsc.Format.IsDepth() || driver.DepthTypeless(dsc.Format) != driver.DepthTypeless(t.desc.Format) {
		return nil, driver.StatusInvalidArg
	}
	v := &DSV{desc: dsc}
	d.newView(&v.view, r, "DSV")
	return v, nil
}

// CreateShaderResourceView implements driver.Device.
func (d *Device) CreateShaderResourceView(r driver.Resource, desc *driver.SRVDesc) (driver.ShaderResourceView, error) {
	if err := d.fail("CreateShaderResourceView"); err != nil {
		return nil, err
	}
	t, ok := r.(*Texture)
	if !ok || t.desc.BindFlags&driver.BindShaderResource == 0 {
		return nil, driver.StatusInvalidArg
	}
	var dsc driver.SRVDesc
	if desc != nil {
		dsc = *desc
	}
	dsc.Format = viewFormat(r, dsc.Format)
	if dsc.Format.IsDepth() {
		return nil, driver.StatusInvalidArg
	}
	if dsc.MipLevels <= 0 {
		dsc.MipLevels = t.desc.MipLevels - dsc.MostDetailedMip
	}
	v := &SRV{desc: dsc}
	d.newView(&v.view, r, "SRV")
	return v, nil
}

// CreateVertexShader implements driver.Device.
// The soft device uses code as the shader's name.
func (d *Device) CreateVertexShader(code []byte) (driver.Shader, error) {
	return d.newShader(driver.VS, code)
}

// CreatePixelShader implements driver.Device.
// The soft device uses code as the shader's name.
func (d *Device) CreatePixelShader(code []byte) (driver.Shader, error) {
	return d.newShader(driver.PS, code)
}

func (d *Device) newShader(stage driver.Stage, code []byte) (driver.Shader, error) {
	if err := d.fail("Create" + stage.String()); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, driver.StatusInvalidArg
	}
	s := &Shader{stage: stage, name: string(code)}
	d.newObject(&s.object, stage.String(), nil)
	return s, nil
}

// CreateBlendState implements driver.Device.
func (d *Device) CreateBlendState(desc *driver.BlendDesc) (driver.BlendState, error) {
	if err := d.fail("CreateBlendState"); err != nil {
		return nil, err
	}
	s := &state[driver.BlendDesc]{desc: *desc}
	d.newObject(&s.object, "BlendState", nil)
	return s, nil
}

// CreateDepthStencilState implements driver.Device.
func (d *Device) CreateDepthStencilState(desc *driver.DepthStencilDesc) (driver.DepthStencilState, error) {
	if err := d.fail("CreateDepthStencilState"); err != nil {
		return nil, err
	}
	s := &state[driver.DepthStencilDesc]{desc: *desc}
	d.newObject(&s.object, "DepthStencilState", nil)
	return s, nil
}

// CreateRasterizerState implements driver.Device.
func (d *Device) CreateRasterizerState(desc *driver.RasterizerDesc) (driver.RasterizerState, error) {
	if err := d.fail("CreateRasterizerState"); err != nil {
		return nil, err
	}
	s := &state[driver.RasterizerDesc]{desc: *desc}
	d.newObject(&s.object, "RasterizerState", nil)
	return s, nil
}

// CreateSamplerState implements driver.Device.
func (d *Device) CreateSamplerState(desc *driver.SamplerDesc) (driver.SamplerState, error) {
	if err := d.fail("CreateSamplerState"); err != nil {
		return nil, err
	}
	s := &state[driver.SamplerDesc]{desc: *desc}
	d.newObject(&s.object, "SamplerState", nil)
	return s, nil
}

// NewInputLayout creates an input layout.
// D3D11 derives input layouts from shader signatures,
// which the soft device does not have.
func (d *Device) NewInputLayout() driver.InputLayout {
	s := &state[struct{}]{}
	d.newObject(&s.object, "InputLayout", nil)
	return s
}
