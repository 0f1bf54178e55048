package notification

import (
	"errors"
	"log"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

var ErrAlreadyStarted = errors.New("foreground notification already started")

// Tray shows a Notification as a system tray icon. The only menu entry is
// "Stop", which calls onStop.
type Tray struct {
	onStop func()

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

func NewTray(onStop func()) *Tray {
	return &Tray{onStop: onStop}
}

// StartForeground runs the tray loop on its own locked OS thread.
func (t *Tray) StartForeground(n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return ErrAlreadyStarted
	}
	t.started = true
	t.done = make(chan struct{})

	ready := func() {
		systray.SetIcon(n.Icon)
		systray.SetTitle(n.Title)
		systray.SetTooltip(n.Title + " - " + n.Text)
		mStop := systray.AddMenuItem("Stop", "Stop screen capture and remove the OCR button")
		go func() {
			for {
				select {
				case <-mStop.ClickedCh:
					log.Printf("Tray: stop requested")
					if t.onStop != nil {
						t.onStop()
					}
				case <-t.done:
					return
				}
			}
		}()
		log.Printf("Tray: foreground notification %d shown on channel %s", n.ID, n.ChannelID)
	}

	go func() {
		runtime.LockOSThread()
		systray.Run(ready, func() {})
	}()
	return nil
}

// StopForeground removes the tray icon. Safe to call when not started.
func (t *Tray) StopForeground() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.started = false
	close(t.done)
	systray.Quit()
}
