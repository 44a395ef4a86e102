// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package idpool implements a free list of small
// integer identifiers backed by a growable bit vector.
package idpool

import "math/bits"

const nbit = 64

// Pool hands out identifiers in the range [1, ∞).
// Identifier 0 is never returned so that it can stand
// for "no object".
// The zero value is ready for use.
// A Pool is not safe for concurrent use.
type Pool struct {
	s   []uint64
	rem int
}

// grow appends nplus words of unset bits.
func (p *Pool) grow(nplus int) {
	p.rem += nplus * nbit
	p.s = append(p.s, make([]uint64, nplus)...)
}

// Len returns the capacity of the pool in bits.
func (p *Pool) Len() int { return len(p.s) * nbit }

// InUse returns the number of identifiers currently
// handed out.
func (p *Pool) InUse() int { return p.Len() - p.rem }

// Get returns an unused identifier, growing the pool
// as needed. The lowest free identifier is preferred.
func (p *Pool) Get() uint32 {
	if p.rem == 0 {
		n := len(p.s)
		if n == 0 {
			n = 1
		}
		p.grow(n)
	}
	for i, x := range p.s {
		if x == ^uint64(0) {
			continue
		}
		b := bits.TrailingZeros64(^x)
		p.s[i] |= 1 << b
		p.rem--
		return uint32(i*nbit+b) + 1
	}
	panic("unreachable")
}

// Put returns id to the pool.
// Putting an identifier that is not in use has no
// effect.
func (p *Pool) Put(id uint32) {
	if id == 0 {
		return
	}
	idx := int(id - 1)
	i := idx / nbit
	if i >= len(p.s) {
		return
	}
	b := uint64(1) << (idx & (nbit - 1))
	if p.s[i]&b != 0 {
		p.s[i] &^= b
		p.rem++
	}
}

// IsUsed reports whether id is currently handed out.
func (p *Pool) IsUsed(id uint32) bool {
	if id == 0 {
		return false
	}
	idx := int(id - 1)
	i := idx / nbit
	if i >= len(p.s) {
		return false
	}
	return p.s[i]&(1<<(idx&(nbit-1))) != 0
}

// Clear returns every identifier to the pool.
func (p *Pool) Clear() {
	clear(p.s)
	p.rem = p.Len()
}
