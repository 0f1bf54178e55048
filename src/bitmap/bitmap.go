// Package bitmap converts raw mirrored frames into decodable images.
package bitmap

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"screen-ocr-overlay/src/apperr"
	"screen-ocr-overlay/src/mirror"
)

// FromFrame converts f into a tightly packed RGBA image of exactly
// f.Width x f.Height pixels.
func FromFrame(f *mirror.Frame) (*image.RGBA, error) {
	if f == nil {
		return nil, apperr.New(apperr.ConversionFailure, "nil frame")
	}
	return FromPlane(f.Plane, f.Width, f.Height)
}

// FromPlane views p as a padded bitmap (row padding widens each row by
// padding/pixelStride pixels) and crops the padding away.
func FromPlane(p mirror.Plane, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, conversionErr("invalid frame size %dx%d", width, height)
	}
	if p.PixelStride != mirror.BytesPerPixel {
		return nil, conversionErr("unsupported pixel stride %d", p.PixelStride)
	}
	rowPadding := p.RowStride - p.PixelStride*width
	if rowPadding < 0 {
		return nil, conversionErr("row stride %d shorter than %d pixels", p.RowStride, width)
	}
	// The last row may end right after its pixels.
	need := (height-1)*p.RowStride + width*p.PixelStride
	if len(p.Pix) < need {
		return nil, conversionErr("buffer too small: have %d bytes, need %d", len(p.Pix), need)
	}

	paddedWidth := width + rowPadding/p.PixelStride
	padded := &image.RGBA{
		Pix:    p.Pix[:min(len(p.Pix), height*p.RowStride)],
		Stride: p.RowStride,
		Rect:   image.Rect(0, 0, paddedWidth, height),
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Copy(out, image.Point{}, padded, out.Bounds(), draw.Src, nil)
	return out, nil
}

func conversionErr(format string, args ...any) error {
	return apperr.New(apperr.ConversionFailure, fmt.Sprintf(format, args...))
}
