// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"github.com/gviegas/postfx/driver"
)

// store holds the contents of a resource.
type store struct {
	content string
	data    []byte
	mapped  bool
}

// Texture implements driver.Texture2D.
type Texture struct {
	object
	store
	desc driver.Tex2DDesc
	mips int
}

// Dimension implements driver.Resource.
func (*Texture) Dimension() driver.Dimension { return driver.DimensionTexture2D }

// Desc implements driver.Texture2D.
func (t *Texture) Desc() driver.Tex2DDesc { return t.desc }

// MipsGenerated returns how many times GenerateMips
// was called on views of t.
func (t *Texture) MipsGenerated() int { return t.mips }

// pitch returns the row pitch of the first mip level.
func (t *Texture) pitch() int {
	n := t.desc.Format.Size()
	if n == 0 {
		n = 4
	}
	return t.desc.Width * n
}

func (t *Texture) bytes() []byte {
	if n := t.pitch() * t.desc.Height; len(t.data) < n {
		t.data = append(t.data, make([]byte, n-len(t.data))...)
	}
	return t.data
}

// Buffer implements driver.Buffer.
type Buffer struct {
	object
	store
	desc driver.BufferDesc
}

// Dimension implements driver.Resource.
func (*Buffer) Dimension() driver.Dimension { return driver.DimensionBuffer }

// Desc implements driver.Buffer.
func (b *Buffer) Desc() driver.BufferDesc { return b.desc }

// Bytes returns the buffer's memory.
func (b *Buffer) Bytes() []byte { return b.data }

// Content returns the content label of r, which must
// have been created by this package.
func Content(r driver.Resource) string {
	if s := resourceStore(r); s != nil {
		return s.content
	}
	return ""
}

// SetContent sets the content label of r, which must
// have been created by this package.
func SetContent(r driver.Resource, content string) {
	if s := resourceStore(r); s != nil {
		s.content = content
	}
}

// Data returns the memory of r, which must have been
// created by this package.
func Data(r driver.Resource) []byte {
	switch r := r.(type) {
	case *Texture:
		return r.bytes()
	case *Buffer:
		return r.data
	}
	return nil
}

// view is the common part of resource views.
type view struct {
	object
	res driver.Resource
}

// Resource implements driver.View.
func (v *view) Resource() driver.Resource {
	v.res.AddRef()
	return v.res
}

// RTV implements driver.RenderTargetView.
type RTV struct {
	view
	desc driver.RTVDesc
}

// Desc implements driver.RenderTargetView.
func (v *RTV) Desc() driver.RTVDesc { return v.desc }

// DSV implements driver.DepthStencilView.
type DSV struct {
	view
	desc driver.DSVDesc
}

// Desc implements driver.DepthStencilView.
func (v *DSV) Desc() driver.DSVDesc { return v.desc }

// SRV implements driver.ShaderResourceView.
type SRV struct {
	view
	desc driver.SRVDesc
}

// Desc implements driver.ShaderResourceView.
func (v *SRV) Desc() driver.SRVDesc { return v.desc }

// viewStore returns the store of the resource viewed
// by v, without adding a reference.
func viewStore(v driver.View) *store {
	switch v := v.(type) {
	case *RTV:
		return resourceStore(v.res)
	case *DSV:
		return resourceStore(v.res)
	case *SRV:
		return resourceStore(v.res)
	}
	return nil
}

// Shader implements driver.Shader.
type Shader struct {
	object
	stage driver.Stage
	name  string
}

// Stage implements driver.Shader.
func (s *Shader) Stage() driver.Stage { return s.stage }

// Name returns the shader's name.
func (s *Shader) Name() string { return s.name }

// state implements the state object interfaces.
type state[T any] struct {
	object
	desc T
}

// Desc returns the description the state was created
// with.
func (s *state[T]) Desc() T { return s.desc }
