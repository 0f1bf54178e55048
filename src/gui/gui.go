// Package gui holds the windows the user sees before the overlay runs: the
// start window, the overlay settings screen and the capture consent prompt.
package gui

import (
	"log"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"

	"screen-ocr-overlay/src/mirror"
)

const (
	AppTitle        = "Screen OCR Overlay"
	StartLabel      = "Start overlay OCR"
	OverlayCheck    = "Allow display over other windows"
	ConsentTitle    = "Allow screen capture?"
	consentMessage  = "Screen OCR Overlay will mirror your screen so the OCR button can read it."
	settingsTitle   = "Display over other windows"
	mainDescription = "Enable the floating OCR button"
)

// NewMainWindow builds the start window. onStart runs when the user asks to
// start the overlay.
func NewMainWindow(a fyne.App, onStart func()) fyne.Window {
	w := a.NewWindow(AppTitle)
	w.SetContent(container.NewVBox(
		widget.NewLabel(mainDescription),
		newStartButton(onStart),
	))
	w.Resize(fyne.NewSize(360, 120))
	return w
}

func newStartButton(onStart func()) *widget.Button {
	return widget.NewButton(StartLabel, func() {
		log.Printf("GUI: start requested")
		if onStart != nil {
			onStart()
		}
	})
}

// OverlaySettings is the settings screen for the overlay grant. Closing it
// counts as returning to the app.
type OverlaySettings struct {
	app     fyne.App
	granted atomic.Bool

	mu       sync.Mutex
	win      fyne.Window
	onResume func()
}

func NewOverlaySettings(a fyne.App) *OverlaySettings {
	return &OverlaySettings{app: a}
}

// SetOnResume sets the callback run when the settings window closes.
func (s *OverlaySettings) SetOnResume(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResume = fn
}

func (s *OverlaySettings) CanDrawOverlays() bool {
	return s.granted.Load()
}

func (s *OverlaySettings) setGranted(v bool) {
	s.granted.Store(v)
	log.Printf("GUI: overlay permission granted=%v", v)
}

// OpenOverlaySettings shows the settings window, or focuses it if it is
// already open.
func (s *OverlaySettings) OpenOverlaySettings() error {
	fyne.Do(func() {
		s.mu.Lock()
		if s.win != nil {
			w := s.win
			s.mu.Unlock()
			w.RequestFocus()
			return
		}
		w := s.app.NewWindow(settingsTitle)
		s.win = w
		s.mu.Unlock()

		check := widget.NewCheck(OverlayCheck, s.setGranted)
		check.SetChecked(s.granted.Load())
		w.SetContent(container.NewVBox(check, widget.NewButton("Done", w.Close)))
		w.SetOnClosed(s.closed)
		w.Show()
	})
	return nil
}

func (s *OverlaySettings) closed() {
	s.mu.Lock()
	s.win = nil
	fn := s.onResume
	s.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

// ConsentDialog asks for screen capture consent over a parent window.
type ConsentDialog struct {
	parent   fyne.Window
	newToken func() string
}

func NewConsentDialog(parent fyne.Window) *ConsentDialog {
	return &ConsentDialog{parent: parent, newToken: uuid.NewString}
}

// RequestConsent shows the prompt. done runs off the UI goroutine.
func (d *ConsentDialog) RequestConsent(done func(mirror.Consent)) {
	fyne.Do(func() {
		dialog.ShowConfirm(ConsentTitle, consentMessage, func(ok bool) {
			go done(d.answer(ok))
		}, d.parent)
	})
}

func (d *ConsentDialog) answer(ok bool) mirror.Consent {
	if !ok {
		return mirror.Consent{ResultCode: mirror.ResultCanceled}
	}
	return mirror.Consent{ResultCode: mirror.ResultOK, Token: d.newToken()}
}
