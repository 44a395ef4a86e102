// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package postfx

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"

	"github.com/gviegas/postfx/internal/logging"
)

// ScreenshotName returns the file name of a screenshot
// taken at t, without directory.
func (r *Runtime) ScreenshotName(t time.Time) string {
	name := "postfx"
	if exe, err := os.Executable(); err == nil {
		name = strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}
	ext := ".png"
	if r.cfg.ScreenshotFormat == "bmp" {
		ext = ".bmp"
	}
	return name + t.Format(" 2006-01-02 15-04-05") + ext
}

// Screenshot reads back the current frame and writes it
// to the screenshot directory. It returns the path of
// the new file.
func (r *Runtime) Screenshot() (string, error) {
	if !r.initialized {
		return "", ErrNotInitialized
	}
	img, err := r.backend.CaptureFrame()
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.cfg.ScreenshotPath, r.ScreenshotName(r.now()))
	return path, writeImage(path, img, r.cfg.ScreenshotFormat)
}

// takeScreenshot captures the frame and writes it in
// the background.
func (r *Runtime) takeScreenshot(now time.Time) {
	img, err := r.backend.CaptureFrame()
	if err != nil {
		logging.L().Error("failed to capture frame", zap.Error(err))
		return
	}
	path := filepath.Join(r.cfg.ScreenshotPath, r.ScreenshotName(now))
	format := r.cfg.ScreenshotFormat
	r.shots.Add(1)
	go func() {
		defer r.shots.Done()
		if err := writeImage(path, img, format); err != nil {
			logging.L().Error("failed to save screenshot", zap.String("path", path), zap.Error(err))
			return
		}
		logging.L().Info("screenshot saved", zap.String("path", path))
	}()
}

func writeImage(path string, img image.Image, format string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	w := bufio.NewWriter(f)
	switch format {
	case "bmp":
		err = bmp.Encode(w, img)
	case "png", "":
		err = png.Encode(w, img)
	default:
		err = fmt.Errorf("postfx: unknown image format %q", format)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}
