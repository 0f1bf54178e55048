package overlay

import (
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// FloatingButton is a borderless fyne window holding a single button.
type FloatingButton struct {
	app    fyne.App
	params LayoutParams

	mu    sync.Mutex
	win   fyne.Window
	shown bool
}

func NewFloatingButton(app fyne.App, params LayoutParams) *FloatingButton {
	return &FloatingButton{app: app, params: params}
}

// Show creates the window on the fyne UI goroutine.
func (b *FloatingButton) Show(onTap func()) error {
	b.mu.Lock()
	if b.shown {
		b.mu.Unlock()
		return ErrAlreadyShown
	}
	b.shown = true
	b.mu.Unlock()

	log.Printf("Overlay: adding floating button (%s)", b.params)
	fyne.Do(func() {
		w := b.newWindow()
		w.SetContent(widget.NewButton(ButtonLabel, onTap))
		w.SetPadded(false)
		w.SetFixedSize(true)
		if b.params.Width > 0 && b.params.Height > 0 {
			w.Resize(fyne.NewSize(float32(b.params.Width), float32(b.params.Height)))
		}
		w.Show()

		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.shown {
			// Removed before the UI goroutine got here.
			w.Close()
			return
		}
		b.win = w
	})
	return nil
}

// newWindow prefers a splash window, which desktop drivers create without
// decorations or focus-stealing.
func (b *FloatingButton) newWindow() fyne.Window {
	if drv, ok := b.app.Driver().(desktop.Driver); ok {
		return drv.CreateSplashWindow()
	}
	return b.app.NewWindow(ButtonLabel)
}

// Remove closes the window if one is shown.
func (b *FloatingButton) Remove() error {
	b.mu.Lock()
	if !b.shown {
		b.mu.Unlock()
		return nil
	}
	b.shown = false
	w := b.win
	b.win = nil
	b.mu.Unlock()

	if w != nil {
		fyne.Do(w.Close)
	}
	log.Printf("Overlay: floating button removed")
	return nil
}
