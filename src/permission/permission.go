// Package permission walks the user through the two grants the overlay
// needs: drawing over other windows, then screen capture consent.
package permission

import (
	"log"
	"sync/atomic"

	"screen-ocr-overlay/src/apperr"
	"screen-ocr-overlay/src/mirror"
)

// OverlayPermission is the grant that lets the floating control sit above
// other windows.
type OverlayPermission interface {
	CanDrawOverlays() bool
	OpenOverlaySettings() error
}

// ConsentRequester shows the capture consent prompt and reports the answer
// through done, possibly on another goroutine.
type ConsentRequester interface {
	RequestConsent(done func(mirror.Consent))
}

// ServiceStarter hands a granted consent to the capture service.
type ServiceStarter interface {
	StartForegroundService(c mirror.Consent) error
}

// Coordinator sequences the overlay grant and the capture consent.
type Coordinator struct {
	overlay OverlayPermission
	consent ConsentRequester
	starter ServiceStarter

	// pending survives the round trip through the settings screen.
	pending atomic.Bool
}

func NewCoordinator(overlay OverlayPermission, consent ConsentRequester, starter ServiceStarter) *Coordinator {
	return &Coordinator{overlay: overlay, consent: consent, starter: starter}
}

// RequestAccess starts the grant flow. Without the overlay grant it opens the
// settings screen and returns; OnResume continues from there.
func (c *Coordinator) RequestAccess() {
	if c.overlay.CanDrawOverlays() {
		c.requestConsent()
		return
	}
	c.pending.Store(true)
	if err := c.overlay.OpenOverlaySettings(); err != nil {
		log.Printf("ERROR: failed to open overlay settings: %v", err)
	}
}

// OnResume is called whenever the UI returns to the foreground.
func (c *Coordinator) OnResume() {
	if !c.pending.Load() {
		return
	}
	if !c.overlay.CanDrawOverlays() {
		log.Printf("Overlay permission still not granted")
		return
	}
	if c.pending.CompareAndSwap(true, false) {
		c.requestConsent()
	}
}

// Pending reports whether a settings round trip is outstanding.
func (c *Coordinator) Pending() bool {
	return c.pending.Load()
}

func (c *Coordinator) requestConsent() {
	c.consent.RequestConsent(c.onConsent)
}

func (c *Coordinator) onConsent(consent mirror.Consent) {
	if !consent.Granted() {
		apperr.Log(apperr.New(apperr.PermissionDenied, "Screen capture permission denied."))
		return
	}
	if err := c.starter.StartForegroundService(consent); err != nil {
		apperr.Log(err)
	}
}
