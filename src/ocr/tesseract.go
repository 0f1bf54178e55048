package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"screen-ocr-overlay/src/screenshot"
)

const tesseractLanguage = "eng"

// Tesseract runs recognition on-device through libtesseract. A client is
// created per call so concurrent calls never share engine state.
type Tesseract struct{}

func NewTesseract() *Tesseract { return &Tesseract{} }

func (*Tesseract) Name() string { return "tesseract" }

func (*Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(tesseractLanguage); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (*Tesseract) Close() error { return nil }
