package mirror

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"screen-ocr-overlay/src/apperr"
	"screen-ocr-overlay/src/screenshot"
)

var ErrProjectionStopped = errors.New("projection stopped")

// Manager turns a granted Consent into a Projection.
type Manager struct {
	grabber  screenshot.Grabber
	interval time.Duration
}

// NewManager returns a Manager whose virtual displays poll grabber every
// frameInterval.
func NewManager(grabber screenshot.Grabber, frameInterval time.Duration) *Manager {
	if frameInterval <= 0 {
		frameInterval = 500 * time.Millisecond
	}
	return &Manager{grabber: grabber, interval: frameInterval}
}

// GetProjection validates consent and opens a projection for it.
func (m *Manager) GetProjection(c Consent) (*Projection, error) {
	if !c.Granted() {
		return nil, apperr.New(apperr.PermissionDenied, fmt.Sprintf("screen capture consent not granted (code %d)", c.ResultCode))
	}
	return &Projection{grabber: m.grabber, interval: m.interval}, nil
}

// Projection is an active screen-mirroring session.
type Projection struct {
	grabber  screenshot.Grabber
	interval time.Duration

	mu       sync.Mutex
	displays []*VirtualDisplay
	stopped  bool
}

// CreateVirtualDisplay mirrors the screen into reader at the given size.
// The first frame is grabbed before it returns.
func (p *Projection) CreateVirtualDisplay(name string, width, height, densityDPI int, reader *ImageReader) (*VirtualDisplay, error) {
	if reader == nil {
		return nil, errors.New("virtual display needs an image reader")
	}
	if width <= 0 || height <= 0 || densityDPI <= 0 {
		return nil, fmt.Errorf("invalid virtual display %dx%d@%d", width, height, densityDPI)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, ErrProjectionStopped
	}

	d := &VirtualDisplay{
		name:       name,
		width:      width,
		height:     height,
		densityDPI: densityDPI,
		reader:     reader,
		grabber:    p.grabber,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	d.mirrorOnce()
	go d.run(p.interval)
	p.displays = append(p.displays, d)
	return d, nil
}

// Stop ends the session and releases any display still attached.
// Safe to call more than once.
func (p *Projection) Stop() {
	p.mu.Lock()
	displays := p.displays
	p.displays = nil
	p.stopped = true
	p.mu.Unlock()

	for _, d := range displays {
		d.Release()
	}
}

func (p *Projection) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// VirtualDisplay copies what the primary display shows into an ImageReader.
type VirtualDisplay struct {
	name       string
	width      int
	height     int
	densityDPI int
	reader     *ImageReader
	grabber    screenshot.Grabber

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	lastErr string
}

func (d *VirtualDisplay) Name() string    { return d.name }
func (d *VirtualDisplay) Width() int      { return d.width }
func (d *VirtualDisplay) Height() int     { return d.height }
func (d *VirtualDisplay) DensityDPI() int { return d.densityDPI }

// Release stops mirroring and waits for the mirror goroutine to exit.
// Safe to call more than once.
func (d *VirtualDisplay) Release() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}

func (d *VirtualDisplay) run(interval time.Duration) {
	defer close(d.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.mirrorOnce()
		}
	}
}

func (d *VirtualDisplay) mirrorOnce() {
	img, err := d.grabber.Grab()
	if err != nil {
		// Log once per distinct failure; the grabber is polled continuously.
		if msg := err.Error(); msg != d.lastErr {
			log.Printf("VirtualDisplay %s: grab failed: %v", d.name, err)
			d.lastErr = msg
		}
		return
	}
	d.lastErr = ""

	frame, err := d.frameFrom(img)
	if err != nil {
		log.Printf("VirtualDisplay %s: %v", d.name, err)
		return
	}
	d.reader.queue(frame)
}

// frameFrom exposes the top-left width x height of img without copying. The
// plane keeps img's stride, so a grab wider than the display yields padded rows.
func (d *VirtualDisplay) frameFrom(img *image.RGBA) (*Frame, error) {
	b := img.Bounds()
	if b.Dx() < d.width || b.Dy() < d.height {
		return nil, fmt.Errorf("grabbed %dx%d, smaller than display %dx%d", b.Dx(), b.Dy(), d.width, d.height)
	}
	offset := img.PixOffset(b.Min.X, b.Min.Y)
	if offset < 0 || offset > len(img.Pix) {
		return nil, fmt.Errorf("grabbed image has no pixel data")
	}
	return &Frame{
		Width:  d.width,
		Height: d.height,
		Plane: Plane{
			Pix:         img.Pix[offset:],
			RowStride:   img.Stride,
			PixelStride: BytesPerPixel,
		},
		Timestamp: time.Now(),
	}, nil
}
