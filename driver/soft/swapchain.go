// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"github.com/gviegas/postfx/driver"
)

// SwapChain implements driver.SwapChain.
type SwapChain struct {
	object
	desc  driver.SwapChainDesc
	bufs  []*Texture
	count int
}

// NewSwapChain implements driver.Presenter.
func (d *Device) NewSwapChain(desc *driver.SwapChainDesc) (driver.SwapChain, error) {
	if err := d.fail("NewSwapChain"); err != nil {
		return nil, err
	}
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 {
		return nil, driver.StatusInvalidArg
	}
	sc := &SwapChain{desc: *desc}
	if sc.desc.SampleCount == 0 {
		sc.desc.SampleCount = 1
	}
	if sc.desc.BufferCount == 0 {
		sc.desc.BufferCount = 1
	}
	if err := sc.createBuffers(d); err != nil {
		return nil, err
	}
	d.newObject(&sc.object, "SwapChain", sc.releaseBuffers)
	return sc, nil
}

func (sc *SwapChain) createBuffers(d *Device) error {
	sc.bufs = sc.bufs[:0]
	for iter := 0; iter < sc.desc.BufferCount; iter++ {
		t, err := d.CreateTexture2D(&driver.Tex2DDesc{
			Width:     sc.desc.Width,
			Height:    sc.desc.Height,
			MipLevels: 1,
			ArraySize: 1,
			Format:    sc.desc.Format,
			Sample:    driver.SampleDesc{Count: sc.desc.SampleCount, Quality: sc.desc.SampleQuality},
			BindFlags: driver.BindRenderTarget | driver.BindShaderResource,
		}, nil)
		if err != nil {
			sc.releaseBuffers()
			return err
		}
		sc.bufs = append(sc.bufs, t.(*Texture))
	}
	return nil
}

func (sc *SwapChain) releaseBuffers() {
	for _, t := range sc.bufs {
		t.Release()
	}
	sc.bufs = sc.bufs[:0]
}

// Desc implements driver.SwapChain.
func (sc *SwapChain) Desc() driver.SwapChainDesc { return sc.desc }

// Buffer implements driver.SwapChain.
func (sc *SwapChain) Buffer(i int) (driver.Texture2D, error) {
	if i < 0 || i >= len(sc.bufs) {
		return nil, driver.StatusInvalidArg
	}
	sc.bufs[i].AddRef()
	return sc.bufs[i], nil
}

// Present flips the buffers.
func (sc *SwapChain) Present() {
	sc.count++
	if len(sc.bufs) > 1 {
		sc.bufs = append(sc.bufs[1:], sc.bufs[0])
	}
}

// Presented returns the number of calls to Present.
func (sc *SwapChain) Presented() int { return sc.count }

// ResizeBuffers recreates the buffers with a new size.
// As in DXGI, it fails if any buffer is still referenced
// from outside the swap chain.
func (sc *SwapChain) ResizeBuffers(width, height int) error {
	for _, t := range sc.bufs {
		if t.ExternallyReferenced() {
			sc.dev.violate("ResizeBuffers with outstanding reference to %s", t)
			return driver.StatusInvalidArg
		}
	}
	sc.releaseBuffers()
	sc.desc.Width = width
	sc.desc.Height = height
	return sc.createBuffers(sc.dev)
}
