// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"slices"
	"strconv"
	"strings"
)

// Format describes the layout of texel data.
// Values match DXGI_FORMAT.
type Format uint32

// Formats.
const (
	FormatUnknown                Format = 0
	FormatRGBA32Typeless         Format = 1
	FormatRGBA32Float            Format = 2
	FormatRGBA16Typeless         Format = 9
	FormatRGBA16Float            Format = 10
	FormatR32G8X24Typeless       Format = 19
	FormatD32FloatS8X24Uint      Format = 20
	FormatR32FloatX8X24Typeless  Format = 21
	FormatX32TypelessG8X24Uint   Format = 22
	FormatRGB10A2Typeless        Format = 23
	FormatRGB10A2Unorm           Format = 24
	FormatRGBA8Typeless          Format = 27
	FormatRGBA8Unorm             Format = 28
	FormatRGBA8UnormSRGB         Format = 29
	FormatR32Typeless            Format = 39
	FormatD32Float               Format = 40
	FormatR32Float               Format = 41
	FormatR24G8Typeless          Format = 44
	FormatD24UnormS8Uint         Format = 45
	FormatR24UnormX8Typeless     Format = 46
	FormatX24TypelessG8Uint      Format = 47
	FormatRG8Typeless            Format = 48
	FormatRG8Unorm               Format = 49
	FormatR16Typeless            Format = 53
	FormatR16Float               Format = 54
	FormatD16Unorm               Format = 55
	FormatR16Unorm               Format = 56
	FormatR8Typeless             Format = 60
	FormatR8Unorm                Format = 61
	FormatBC1Typeless            Format = 70
	FormatBC1Unorm               Format = 71
	FormatBC1UnormSRGB           Format = 72
	FormatBC2Typeless            Format = 73
	FormatBC2Unorm               Format = 74
	FormatBC2UnormSRGB           Format = 75
	FormatBC3Typeless            Format = 76
	FormatBC3Unorm               Format = 77
	FormatBC3UnormSRGB           Format = 78
	FormatBGRA8Unorm             Format = 87
	FormatBGRX8Unorm             Format = 88
	FormatBGRA8Typeless          Format = 90
	FormatBGRA8UnormSRGB         Format = 91
	FormatBGRX8Typeless          Format = 92
	FormatBGRX8UnormSRGB         Format = 93
)

var formatNames = map[Format]string{
	FormatUnknown:               "UNKNOWN",
	FormatRGBA32Typeless:        "R32G32B32A32_TYPELESS",
	FormatRGBA32Float:           "R32G32B32A32_FLOAT",
	FormatRGBA16Typeless:        "R16G16B16A16_TYPELESS",
	FormatRGBA16Float:           "R16G16B16A16_FLOAT",
	FormatR32G8X24Typeless:      "R32G8X24_TYPELESS",
	FormatD32FloatS8X24Uint:     "D32_FLOAT_S8X24_UINT",
	FormatR32FloatX8X24Typeless: "R32_FLOAT_X8X24_TYPELESS",
	FormatX32TypelessG8X24Uint:  "X32_TYPELESS_G8X24_UINT",
	FormatRGB10A2Typeless:       "R10G10B10A2_TYPELESS",
	FormatRGB10A2Unorm:          "R10G10B10A2_UNORM",
	FormatRGBA8Typeless:         "R8G8B8A8_TYPELESS",
	FormatRGBA8Unorm:            "R8G8B8A8_UNORM",
	FormatRGBA8UnormSRGB:        "R8G8B8A8_UNORM_SRGB",
	FormatR32Typeless:           "R32_TYPELESS",
	FormatD32Float:              "D32_FLOAT",
	FormatR32Float:              "R32_FLOAT",
	FormatR24G8Typeless:         "R24G8_TYPELESS",
	FormatD24UnormS8Uint:        "D24_UNORM_S8_UINT",
	FormatR24UnormX8Typeless:    "R24_UNORM_X8_TYPELESS",
	FormatX24TypelessG8Uint:     "X24_TYPELESS_G8_UINT",
	FormatRG8Typeless:           "R8G8_TYPELESS",
	FormatRG8Unorm:              "R8G8_UNORM",
	FormatR16Typeless:           "R16_TYPELESS",
	FormatR16Float:              "R16_FLOAT",
	FormatD16Unorm:              "D16_UNORM",
	FormatR16Unorm:              "R16_UNORM",
	FormatR8Typeless:            "R8_TYPELESS",
	FormatR8Unorm:               "R8_UNORM",
	FormatBC1Typeless:           "BC1_TYPELESS",
	FormatBC1Unorm:              "BC1_UNORM",
	FormatBC1UnormSRGB:          "BC1_UNORM_SRGB",
	FormatBC2Typeless:           "BC2_TYPELESS",
	FormatBC2Unorm:              "BC2_UNORM",
	FormatBC2UnormSRGB:          "BC2_UNORM_SRGB",
	FormatBC3Typeless:           "BC3_TYPELESS",
	FormatBC3Unorm:              "BC3_UNORM",
	FormatBC3UnormSRGB:          "BC3_UNORM_SRGB",
	FormatBGRA8Unorm:            "B8G8R8A8_UNORM",
	FormatBGRX8Unorm:            "B8G8R8X8_UNORM",
	FormatBGRA8Typeless:         "B8G8R8A8_TYPELESS",
	FormatBGRA8UnormSRGB:        "B8G8R8A8_UNORM_SRGB",
	FormatBGRX8Typeless:         "B8G8R8X8_TYPELESS",
	FormatBGRX8UnormSRGB:        "B8G8R8X8_UNORM_SRGB",
}

// String returns the DXGI name of f, without the
// DXGI_FORMAT_ prefix.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "Format(" + strconv.FormatUint(uint64(f), 10) + ")"
}

// ParseFormat returns the format with the given DXGI
// name. The DXGI_FORMAT_ prefix is optional.
func ParseFormat(name string) (Format, bool) {
	name = strings.TrimPrefix(strings.ToUpper(name), "DXGI_FORMAT_")
	for f, s := range formatNames {
		if s == name {
			return f, true
		}
	}
	return FormatUnknown, false
}

// Formats returns every named format in ascending
// order.
func Formats() []Format {
	fs := make([]Format, 0, len(formatNames))
	for f := range formatNames {
		fs = append(fs, f)
	}
	slices.Sort(fs)
	return fs
}

// Size returns the number of bytes per texel of an
// uncompressed format, or 0 if unknown.
func (f Format) Size() int {
	switch f {
	case FormatRGBA32Typeless, FormatRGBA32Float:
		return 16
	case FormatRGBA16Typeless, FormatRGBA16Float,
		FormatR32G8X24Typeless, FormatD32FloatS8X24Uint,
		FormatR32FloatX8X24Typeless, FormatX32TypelessG8X24Uint:
		return 8
	case FormatRGB10A2Typeless, FormatRGB10A2Unorm,
		FormatRGBA8Typeless, FormatRGBA8Unorm, FormatRGBA8UnormSRGB,
		FormatR32Typeless, FormatD32Float, FormatR32Float,
		FormatR24G8Typeless, FormatD24UnormS8Uint,
		FormatR24UnormX8Typeless, FormatX24TypelessG8Uint,
		FormatBGRA8Unorm, FormatBGRX8Unorm, FormatBGRA8Typeless,
		FormatBGRA8UnormSRGB, FormatBGRX8Typeless, FormatBGRX8UnormSRGB:
		return 4
	case FormatRG8Typeless, FormatRG8Unorm,
		FormatR16Typeless, FormatR16Float, FormatD16Unorm, FormatR16Unorm:
		return 2
	case FormatR8Typeless, FormatR8Unorm:
		return 1
	}
	return 0
}

// IsDepth reports whether f is a depth-stencil view
// format.
func (f Format) IsDepth() bool {
	switch f {
	case FormatD16Unorm, FormatD32Float, FormatD24UnormS8Uint, FormatD32FloatS8X24Uint:
		return true
	}
	return false
}

// TypelessOf returns the typeless member of f's format
// family. Formats without a typeless sibling are
// returned unchanged.
func TypelessOf(f Format) Format {
	switch f {
	case FormatRGBA8Unorm, FormatRGBA8UnormSRGB:
		return FormatRGBA8Typeless
	case FormatBGRA8Unorm, FormatBGRA8UnormSRGB:
		return FormatBGRA8Typeless
	case FormatBGRX8Unorm, FormatBGRX8UnormSRGB:
		return FormatBGRX8Typeless
	case FormatRGB10A2Unorm:
		return FormatRGB10A2Typeless
	case FormatRGBA16Float:
		return FormatRGBA16Typeless
	case FormatRGBA32Float:
		return FormatRGBA32Typeless
	case FormatBC1Unorm, FormatBC1UnormSRGB:
		return FormatBC1Typeless
	case FormatBC2Unorm, FormatBC2UnormSRGB:
		return FormatBC2Typeless
	case FormatBC3Unorm, FormatBC3UnormSRGB:
		return FormatBC3Typeless
	}
	return f
}

// NormalOf returns the linear (non-sRGB, typed) member
// of f's format family.
func NormalOf(f Format) Format {
	switch f {
	case FormatRGBA8Typeless, FormatRGBA8UnormSRGB:
		return FormatRGBA8Unorm
	case FormatBGRA8Typeless, FormatBGRA8UnormSRGB:
		return FormatBGRA8Unorm
	case FormatBGRX8Typeless, FormatBGRX8UnormSRGB:
		return FormatBGRX8Unorm
	case FormatRGB10A2Typeless:
		return FormatRGB10A2Unorm
	case FormatRGBA16Typeless:
		return FormatRGBA16Float
	case FormatRGBA32Typeless:
		return FormatRGBA32Float
	case FormatBC1Typeless, FormatBC1UnormSRGB:
		return FormatBC1Unorm
	case FormatBC2Typeless, FormatBC2UnormSRGB:
		return FormatBC2Unorm
	case FormatBC3Typeless, FormatBC3UnormSRGB:
		return FormatBC3Unorm
	}
	return f
}

// SRGBOf returns the sRGB member of f's format family.
// Families without one return NormalOf(f).
func SRGBOf(f Format) Format {
	switch f {
	case FormatRGBA8Typeless, FormatRGBA8Unorm, FormatRGBA8UnormSRGB:
		return FormatRGBA8UnormSRGB
	case FormatBGRA8Typeless, FormatBGRA8Unorm, FormatBGRA8UnormSRGB:
		return FormatBGRA8UnormSRGB
	case FormatBGRX8Typeless, FormatBGRX8Unorm, FormatBGRX8UnormSRGB:
		return FormatBGRX8UnormSRGB
	case FormatBC1Typeless, FormatBC1Unorm, FormatBC1UnormSRGB:
		return FormatBC1UnormSRGB
	case FormatBC2Typeless, FormatBC2Unorm, FormatBC2UnormSRGB:
		return FormatBC2UnormSRGB
	case FormatBC3Typeless, FormatBC3Unorm, FormatBC3UnormSRGB:
		return FormatBC3UnormSRGB
	}
	return NormalOf(f)
}

// IsSRGB reports whether f is an sRGB format.
func (f Format) IsSRGB() bool {
	return f != NormalOf(f) && f == SRGBOf(f)
}

// DepthTypeless returns the typeless format that a
// shader-readable copy of a depth texture of format f
// must be created with. Unrecognized formats map to
// FormatR24G8Typeless.
func DepthTypeless(f Format) Format {
	switch f {
	case FormatR16Typeless, FormatR16Float, FormatD16Unorm:
		return FormatR16Typeless
	case FormatR8Unorm, FormatR32Typeless, FormatR32Float, FormatD32Float:
		return FormatR32Typeless
	case FormatR32G8X24Typeless, FormatD32FloatS8X24Uint:
		return FormatR32G8X24Typeless
	}
	return FormatR24G8Typeless
}

// DepthViewFormat returns the depth-stencil view format
// for a typeless depth format as returned by
// DepthTypeless.
func DepthViewFormat(typeless Format) Format {
	switch typeless {
	case FormatR16Typeless:
		return FormatD16Unorm
	case FormatR32Typeless:
		return FormatD32Float
	case FormatR32G8X24Typeless:
		return FormatD32FloatS8X24Uint
	}
	return FormatD24UnormS8Uint
}

// DepthSRVFormat returns the shader resource view format
// for a typeless depth format as returned by
// DepthTypeless.
func DepthSRVFormat(typeless Format) Format {
	switch typeless {
	case FormatR16Typeless:
		return FormatR16Float
	case FormatR32Typeless:
		return FormatR32Float
	case FormatR32G8X24Typeless:
		return FormatR32FloatX8X24Typeless
	}
	return FormatR24UnormX8Typeless
}
