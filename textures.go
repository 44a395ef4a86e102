// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package postfx

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gviegas/postfx/effect"
	"github.com/gviegas/postfx/internal/logging"
)

// UpdateTexture replaces the contents of t with img,
// scaled to the texture size.
func (r *Runtime) UpdateTexture(t *effect.Texture, img image.Image) error {
	if r.backend == nil {
		return ErrNotInitialized
	}
	dst, ok := img.(*image.RGBA)
	if !ok || dst.Bounds() != image.Rect(0, 0, t.Width, t.Height) || dst.Stride != t.Width*4 {
		dst = image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	}
	return r.backend.UpdateTexture(t, dst.Pix)
}

// loadTextures fills the textures that name an image
// file in their "source" annotation.
func (r *Runtime) loadTextures() {
	for _, t := range r.textures {
		src := t.Annotations.String("source")
		if src == "" || t.Texture == nil {
			continue
		}
		if err := r.loadTexture(t, src); err != nil {
			logging.L().Error("failed to load texture", zap.String("texture", t.Name), zap.Error(err))
			r.appendError(t.EffectFile, err)
		}
	}
}

func (r *Runtime) loadTexture(t *effect.Texture, src string) error {
	path, ok := r.findTexture(src)
	if !ok {
		return fmt.Errorf("postfx: source %q of texture %s not found", src, t.Name)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("postfx: %s: %w", path, err)
	}
	return r.UpdateTexture(t, img)
}

func (r *Runtime) findTexture(src string) (string, bool) {
	if filepath.IsAbs(src) {
		_, err := os.Stat(src)
		return src, err == nil
	}
	for _, dir := range r.cfg.TextureSearchPaths {
		p := filepath.Join(dir, src)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
