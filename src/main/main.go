package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"screen-ocr-overlay/src/display"
	"screen-ocr-overlay/src/gui"
	"screen-ocr-overlay/src/hotkey"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/mirror"
	"screen-ocr-overlay/src/notification"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/permission"
	"screen-ocr-overlay/src/runtimeinit"
	"screen-ocr-overlay/src/screenshot"
	"screen-ocr-overlay/src/service"
)

const appID = "io.github.screen-ocr-overlay"

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	cfg, recognizer, err := runtimeinit.Bootstrap(runtimeinit.Options{SetupLogging: logutil.Setup})
	if err != nil {
		log.Fatalf("%v", err)
	}
	logDisplay()

	a := app.NewWithID(appID)

	var svc *service.Service
	quit := func() {
		svc.OnStop()
		fyne.Do(a.Quit)
	}
	svc = service.New(service.Deps{
		Projector:  mirror.NewManager(screenshot.PrimaryDisplay{}, service.FrameInterval),
		Metrics:    display.Primary{},
		Overlay:    overlay.NewFloatingButton(a, overlay.DefaultLayoutParams()),
		Foreground: notification.NewTray(quit),
		Recognizer: recognizer,
		Observer: func(o service.Outcome, _ error) {
			log.Printf("Recognition attempt finished: %s", o)
		},
	})

	settings := gui.NewOverlaySettings(a)
	var coordinator *permission.Coordinator
	win := gui.NewMainWindow(a, func() { go coordinator.RequestAccess() })
	coordinator = permission.NewCoordinator(settings, gui.NewConsentDialog(win), svc)
	settings.SetOnResume(coordinator.OnResume)
	a.Lifecycle().SetOnEnteredForeground(func() { go coordinator.OnResume() })

	win.SetCloseIntercept(func() {
		if keepRunningOnClose(svc.State()) {
			log.Printf("Main window hidden; overlay keeps running (use the tray Stop item to quit)")
			win.Hide()
			return
		}
		go quit()
	})

	if cfg.Hotkey != "" {
		stop, err := hotkey.Listen(cfg.Hotkey, func() { svc.OnTap() })
		if err != nil {
			log.Printf("Warning: hotkey disabled: %v", err)
		} else {
			defer stop()
		}
	}

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Printf("Signal received, shutting down")
		quit()
	}()

	log.Printf("Screen OCR Overlay initialized (hotkey: %q)", cfg.Hotkey)
	win.ShowAndRun()
	svc.OnStop()
}

// keepRunningOnClose reports whether closing the main window should only hide
// it because an overlay session is active.
func keepRunningOnClose(s service.State) bool {
	return s == service.Mirroring || s == service.Recognizing
}

func logDisplay() {
	m, err := display.Primary{}.RealMetrics()
	if err != nil {
		log.Printf("Warning: cannot read primary display metrics: %v", err)
		return
	}
	log.Printf("MONITOR: primary display %s", m)
}
