// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package effect

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Type is the scalar type of a uniform variable.
type Type int

// Scalar types.
const (
	Bool Type = iota
	Int
	Uint
	Float
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Uniform is a uniform variable declared by an effect.
// Every component occupies 4 bytes.
type Uniform struct {
	Name          string
	Type          Type
	Rows, Columns int
	// Elements is the array length, or 0 for scalars,
	// vectors and matrices.
	Elements    int
	Offset      int
	Size        int
	Annotations Annotations
	// EffectFile is the base name of the declaring file.
	EffectFile string
}

// Components returns the number of scalar components
// that u holds.
func (u *Uniform) Components() int { return u.Size / 4 }

// Source returns the "source" annotation of u, naming
// the value that the runtime feeds it every frame.
func (u *Uniform) Source() string { return u.Annotations.String("source") }

// Storage holds the values of every uniform variable.
// Values are stored little-endian, 4 bytes per component:
// booleans as 0 or 1 and integers as two's complement.
type Storage struct {
	b []byte
}

// Len returns the size of the storage in bytes.
func (s *Storage) Len() int { return len(s.b) }

// Append appends a uniform block and returns its offset.
func (s *Storage) Append(data []byte) int {
	off := len(s.b)
	s.b = append(s.b, data...)
	return off
}

// Truncate discards everything past n bytes.
func (s *Storage) Truncate(n int) {
	if n < len(s.b) {
		s.b = s.b[:n]
	}
}

// Bytes returns the n bytes of storage at off.
// The slice aliases the storage.
func (s *Storage) Bytes(off, n int) []byte {
	if off < 0 || off+n > len(s.b) {
		return nil
	}
	return s.b[off : off+n]
}

func (s *Storage) slot(u *Uniform, i int) []byte {
	off := u.Offset + i*4
	if off+4 > len(s.b) {
		return nil
	}
	return s.b[off : off+4]
}

// Floats returns the values of u converted to float32.
func (s *Storage) Floats(u *Uniform) []float32 {
	v := make([]float32, u.Components())
	for i := range v {
		b := s.slot(u, i)
		if b == nil {
			break
		}
		x := binary.LittleEndian.Uint32(b)
		switch u.Type {
		case Float:
			v[i] = math.Float32frombits(x)
		case Int:
			v[i] = float32(int32(x))
		case Uint:
			v[i] = float32(x)
		case Bool:
			if x != 0 {
				v[i] = 1
			}
		}
	}
	return v
}

// Ints returns the values of u converted to int32.
func (s *Storage) Ints(u *Uniform) []int32 {
	v := make([]int32, u.Components())
	for i := range v {
		b := s.slot(u, i)
		if b == nil {
			break
		}
		x := binary.LittleEndian.Uint32(b)
		switch u.Type {
		case Float:
			v[i] = int32(math.Float32frombits(x))
		case Bool:
			if x != 0 {
				v[i] = 1
			}
		default:
			v[i] = int32(x)
		}
	}
	return v
}

// SetFloats sets the values of u, converting from
// float32. Extra values are ignored.
func (s *Storage) SetFloats(u *Uniform, v ...float32) {
	for i := 0; i < len(v) && i < u.Components(); i++ {
		b := s.slot(u, i)
		if b == nil {
			return
		}
		var x uint32
		switch u.Type {
		case Float:
			x = math.Float32bits(v[i])
		case Int:
			x = uint32(int32(v[i]))
		case Uint:
			x = uint32(v[i])
		case Bool:
			if v[i] != 0 {
				x = 1
			}
		}
		binary.LittleEndian.PutUint32(b, x)
	}
}

// SetInts sets the values of u, converting from int32.
// Extra values are ignored.
func (s *Storage) SetInts(u *Uniform, v ...int32) {
	for i := 0; i < len(v) && i < u.Components(); i++ {
		b := s.slot(u, i)
		if b == nil {
			return
		}
		var x uint32
		switch u.Type {
		case Float:
			x = math.Float32bits(float32(v[i]))
		case Bool:
			if v[i] != 0 {
				x = 1
			}
		default:
			x = uint32(v[i])
		}
		binary.LittleEndian.PutUint32(b, x)
	}
}

// SetBools sets the values of u, converting from bool.
func (s *Storage) SetBools(u *Uniform, v ...bool) {
	f := make([]float32, len(v))
	for i, b := range v {
		if b {
			f[i] = 1
		}
	}
	s.SetFloats(u, f...)
}

// Reset zeroes the values of u.
func (s *Storage) Reset(u *Uniform) {
	clear(s.Bytes(u.Offset, u.Size))
}
