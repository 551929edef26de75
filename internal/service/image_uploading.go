package service

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// MaxImageSide is the longest side sent to the recognition service.
const MaxImageSide = 1000

// Downscale re-encodes data as JPEG with its longest side at most maxSide.
// Images already small enough are returned untouched.
func Downscale(data []byte, maxSide int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrFileType, "unreadable image")
	}
	if cfg.Width <= maxSide && cfg.Height <= maxSide {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrFileType, "unreadable image")
	}

	w, h := scaled(cfg.Width, cfg.Height, maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, errors.Wrap(err, "encoding image")
	}

	return buf.Bytes(), nil
}

func scaled(w, h, maxSide int) (int, int) {
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}
