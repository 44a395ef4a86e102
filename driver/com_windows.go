// Copyright 2024 Gustavo C. Viegas. All rights reserved.

//go:build windows

package driver

import (
	"unsafe"

	"github.com/go-ole/go-ole"
)

// Unknown implements the reference counting part of
// Object on top of a native COM interface pointer.
// Hook layers embed it in the types that wrap the
// application's D3D11 objects.
type Unknown struct {
	p *ole.IUnknown
}

// NewUnknown wraps p. It does not take a reference.
func NewUnknown(p unsafe.Pointer) Unknown {
	return Unknown{(*ole.IUnknown)(p)}
}

// AddRef implements Object.
func (u Unknown) AddRef() { u.p.AddRef() }

// Release implements Object.
func (u Unknown) Release() { u.p.Release() }

// ExternallyReferenced implements Object.
// COM exposes no reference count query, so it adds a
// reference and inspects the count returned by Release.
func (u Unknown) ExternallyReferenced() bool {
	u.p.AddRef()
	return u.p.Release() > 1
}

// Handle implements Object.
// It is the address of the object's IUnknown identity,
// which COM guarantees to be stable.
func (u Unknown) Handle() Handle {
	id, err := u.p.QueryInterface(ole.IID_IUnknown)
	if err != nil {
		return Handle(unsafe.Pointer(u.p))
	}
	id.Release()
	return Handle(unsafe.Pointer(id))
}

// IsNil reports whether u wraps a nil pointer.
func (u Unknown) IsNil() bool { return u.p == nil }

// Raw returns the wrapped pointer.
func (u Unknown) Raw() unsafe.Pointer { return unsafe.Pointer(u.p) }
