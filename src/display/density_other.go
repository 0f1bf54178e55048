//go:build !windows

package display

func densityDPI() int { return DefaultDensityDPI }
