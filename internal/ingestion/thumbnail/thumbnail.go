package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the longer edge of a generated thumbnail.
	MaxDimension = 512

	jpegQuality = 82
)

// FromImage downscales a raster image into a JPEG thumbnail, preserving
// aspect ratio. Images already within bounds are re-encoded as-is.
func FromImage(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("degenerate image bounds %dx%d", w, h)
	}

	tw, th := w, h
	if w > MaxDimension || h > MaxDimension {
		if w >= h {
			tw = MaxDimension
			th = h * MaxDimension / w
		} else {
			th = MaxDimension
			tw = w * MaxDimension / h
		}
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}
