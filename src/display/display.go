// Package display reports the real metrics of the primary display.
package display

import (
	"fmt"

	"screen-ocr-overlay/src/screenshot"
)

// DefaultDensityDPI is used when the platform cannot report a density.
const DefaultDensityDPI = 96

// Metrics describes the physical primary display.
type Metrics struct {
	Width      int
	Height     int
	DensityDPI int
}

func (m Metrics) String() string {
	return fmt.Sprintf("%dx%d@%ddpi", m.Width, m.Height, m.DensityDPI)
}

// Provider yields display metrics. The service reads them once per session.
type Provider interface {
	RealMetrics() (Metrics, error)
}

// Primary reports display 0.
type Primary struct{}

func (Primary) RealMetrics() (Metrics, error) {
	bounds, err := screenshot.GetDisplayBounds()
	if err != nil {
		return Metrics{}, err
	}
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Metrics{}, fmt.Errorf("invalid display bounds %v", bounds)
	}
	return Metrics{Width: bounds.Dx(), Height: bounds.Dy(), DensityDPI: densityDPI()}, nil
}
