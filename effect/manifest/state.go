// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package manifest

import (
	"fmt"

	"github.com/gviegas/postfx/driver"
)

var blends = map[string]driver.Blend{
	"zero":             driver.BlendZero,
	"one":              driver.BlendOne,
	"src_color":        driver.BlendSrcColor,
	"inv_src_color":    driver.BlendInvSrcColor,
	"src_alpha":        driver.BlendSrcAlpha,
	"inv_src_alpha":    driver.BlendInvSrcAlpha,
	"dst_alpha":        driver.BlendDstAlpha,
	"inv_dst_alpha":    driver.BlendInvDstAlpha,
	"dst_color":        driver.BlendDstColor,
	"inv_dst_color":    driver.BlendInvDstColor,
	"src_alpha_sat":    driver.BlendSrcAlphaSat,
	"blend_factor":     driver.BlendFactor,
	"inv_blend_factor": driver.BlendInvFactor,
}

var blendOps = map[string]driver.BlendOp{
	"add":          driver.BlendOpAdd,
	"subtract":     driver.BlendOpSubtract,
	"rev_subtract": driver.BlendOpRevSubtract,
	"min":          driver.BlendOpMin,
	"max":          driver.BlendOpMax,
}

var comparisons = map[string]driver.Comparison{
	"never":         driver.CmpNever,
	"less":          driver.CmpLess,
	"equal":         driver.CmpEqual,
	"less_equal":    driver.CmpLessEqual,
	"greater":       driver.CmpGreater,
	"not_equal":     driver.CmpNotEqual,
	"greater_equal": driver.CmpGreaterEqual,
	"always":        driver.CmpAlways,
}

var stencilOps = map[string]driver.StencilOp{
	"keep":     driver.StencilKeep,
	"zero":     driver.StencilZero,
	"replace":  driver.StencilReplace,
	"incr_sat": driver.StencilIncrSat,
	"decr_sat": driver.StencilDecrSat,
	"invert":   driver.StencilInvert,
	"incr":     driver.StencilIncr,
	"decr":     driver.StencilDecr,
}

// lookup returns m[name], or def if name is empty.
func lookup[T any](m map[string]T, name string, def T, what string) (T, error) {
	if name == "" {
		return def, nil
	}
	v, ok := m[name]
	if !ok {
		return def, fmt.Errorf("unknown %s %q", what, name)
	}
	return v, nil
}

// blendDesc returns the blend state of a pass.
// Blending is disabled unless d is present, in which
// case every render target uses the same parameters.
func blendDesc(d *blendDecl) (*driver.BlendDesc, error) {
	rt := driver.RTBlendDesc{
		Src:       driver.BlendOne,
		Dst:       driver.BlendZero,
		Op:        driver.BlendOpAdd,
		SrcAlpha:  driver.BlendOne,
		DstAlpha:  driver.BlendZero,
		OpAlpha:   driver.BlendOpAdd,
		WriteMask: driver.ColorWriteAll,
	}
	if d != nil {
		var err error
		rt.Enable = true
		for _, x := range [...]struct {
			dst  *driver.Blend
			name string
		}{{&rt.Src, d.Src}, {&rt.Dst, d.Dst}, {&rt.SrcAlpha, d.SrcAlpha}, {&rt.DstAlpha, d.DstAlpha}} {
			if *x.dst, err = lookup(blends, x.name, *x.dst, "blend factor"); err != nil {
				return nil, err
			}
		}
		if rt.Op, err = lookup(blendOps, d.Op, rt.Op, "blend operation"); err != nil {
			return nil, err
		}
		if rt.OpAlpha, err = lookup(blendOps, d.OpAlpha, rt.OpAlpha, "blend operation"); err != nil {
			return nil, err
		}
		if d.WriteMask != nil {
			rt.WriteMask = driver.ColorWrite(*d.WriteMask) & driver.ColorWriteAll
		}
	}
	desc := &driver.BlendDesc{}
	for i := range desc.RenderTarget {
		desc.RenderTarget[i] = rt
	}
	return desc, nil
}

// stencilDesc returns the depth-stencil state of a pass.
// Depth testing is always disabled; stencil testing is
// enabled if d is present.
func stencilDesc(d *stencilDecl) (*driver.DepthStencilDesc, error) {
	desc := &driver.DepthStencilDesc{
		DepthFunc:        driver.CmpAlways,
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
	}
	face := driver.StencilFaceDesc{
		Fail:      driver.StencilKeep,
		DepthFail: driver.StencilKeep,
		Pass:      driver.StencilKeep,
		Func:      driver.CmpAlways,
	}
	if d != nil {
		var err error
		desc.StencilEnable = true
		if face.Func, err = lookup(comparisons, d.Func, face.Func, "comparison"); err != nil {
			return nil, err
		}
		if face.Pass, err = lookup(stencilOps, d.Pass, face.Pass, "stencil operation"); err != nil {
			return nil, err
		}
		if face.Fail, err = lookup(stencilOps, d.Fail, face.Fail, "stencil operation"); err != nil {
			return nil, err
		}
		if face.DepthFail, err = lookup(stencilOps, d.DepthFail, face.DepthFail, "stencil operation"); err != nil {
			return nil, err
		}
		if d.ReadMask != nil {
			desc.StencilReadMask = *d.ReadMask
		}
		if d.WriteMask != nil {
			desc.StencilWriteMask = *d.WriteMask
		}
	}
	desc.Front = face
	desc.Back = face
	return desc, nil
}
