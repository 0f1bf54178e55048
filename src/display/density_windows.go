//go:build windows

package display

import "golang.org/x/sys/windows"

var procGetDpiForSystem = windows.NewLazySystemDLL("user32.dll").NewProc("GetDpiForSystem")

func densityDPI() int {
	// GetDpiForSystem is Windows 10 1607+.
	if err := procGetDpiForSystem.Find(); err != nil {
		return DefaultDensityDPI
	}
	dpi, _, _ := procGetDpiForSystem.Call()
	if dpi == 0 {
		return DefaultDensityDPI
	}
	return int(dpi)
}
