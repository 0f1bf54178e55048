// Package service owns the screen-mirroring session, the floating control
// and the single recognition attempt that may be in flight.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"screen-ocr-overlay/src/apperr"
	"screen-ocr-overlay/src/bitmap"
	"screen-ocr-overlay/src/display"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/mirror"
	"screen-ocr-overlay/src/notification"
	"screen-ocr-overlay/src/ocr"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/syncx"
	"screen-ocr-overlay/src/worker"
)

const (
	VirtualDisplayName = "ocr-screen"
	FrameInterval      = 500 * time.Millisecond

	maxImages     = 2
	maxLoggedText = 4096
)

type State int

const (
	Idle State = iota
	Mirroring
	Recognizing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Mirroring:
		return "mirroring"
	case Recognizing:
		return "recognizing"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is how an accepted tap ended.
type Outcome int

const (
	NoFrame Outcome = iota
	ConversionFailed
	Recognized
	RecognitionFailed
)

func (o Outcome) String() string {
	switch o {
	case NoFrame:
		return "no-frame"
	case ConversionFailed:
		return "conversion-failed"
	case Recognized:
		return "recognized"
	case RecognitionFailed:
		return "recognition-failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Projector turns a consent into a mirroring session. *mirror.Manager
// implements it.
type Projector interface {
	GetProjection(c mirror.Consent) (*mirror.Projection, error)
}

// Foreground is the persistent notice shown while the service runs.
type Foreground interface {
	StartForeground(n notification.Notification) error
	StopForeground()
}

type Deps struct {
	Projector  Projector
	Metrics    display.Provider
	Overlay    overlay.Control
	Foreground Foreground
	Recognizer *ocr.Recognizer

	// Observer, if set, is told how each accepted tap ended. It runs after
	// the guard has been released.
	Observer func(o Outcome, err error)
}

type session struct {
	projection *mirror.Projection
	reader     *mirror.ImageReader
	display    *mirror.VirtualDisplay
	metrics    display.Metrics
}

// Service is process-scoped: create one with New, tear it down with OnStop.
type Service struct {
	deps  Deps
	guard syncx.Latch
	pool  *worker.Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	created bool
	stopped bool
	session *session
}

func New(deps Deps) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		deps:   deps,
		pool:   worker.New(1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// StartForegroundService creates the service if needed and hands it the
// consent.
func (s *Service) StartForegroundService(c mirror.Consent) error {
	if err := s.OnCreate(); err != nil {
		return err
	}
	return s.OnStart(c)
}

// OnCreate shows the foreground notice and the floating control. Calls after
// the first are no-ops.
func (s *Service) OnCreate() error {
	s.mu.Lock()
	if s.created || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.created = true
	s.mu.Unlock()

	if err := s.deps.Foreground.StartForeground(notification.Foreground()); err != nil {
		return fmt.Errorf("start foreground notification: %w", err)
	}
	if err := s.deps.Overlay.Show(func() { s.OnTap() }); err != nil {
		return fmt.Errorf("show overlay control: %w", err)
	}
	log.Printf("Service created")
	return nil
}

// OnStart opens the mirroring session for c. A consent arriving while a
// session exists is ignored.
func (s *Service) OnStart(c mirror.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		log.Printf("Service stopped; ignoring consent")
		return nil
	}
	if s.session != nil {
		log.Printf("Capture session already active; ignoring new consent")
		return nil
	}
	if !c.Granted() {
		err := apperr.New(apperr.PermissionDenied, "Screen capture permission denied.")
		apperr.Log(err)
		return err
	}

	projection, err := s.deps.Projector.GetProjection(c)
	if err != nil {
		return fmt.Errorf("get projection: %w", err)
	}
	m, err := s.deps.Metrics.RealMetrics()
	if err != nil {
		projection.Stop()
		return fmt.Errorf("read display metrics: %w", err)
	}
	reader, err := mirror.NewImageReader(m.Width, m.Height, maxImages)
	if err != nil {
		projection.Stop()
		return fmt.Errorf("create image reader: %w", err)
	}
	vd, err := projection.CreateVirtualDisplay(VirtualDisplayName, m.Width, m.Height, m.DensityDPI, reader)
	if err != nil {
		reader.Close()
		projection.Stop()
		return fmt.Errorf("create virtual display: %w", err)
	}

	s.session = &session{projection: projection, reader: reader, display: vd, metrics: m}
	log.Printf("Mirroring %s into virtual display %q", m, VirtualDisplayName)
	return nil
}

// OnTap starts one recognition attempt. It reports false when the tap was
// dropped: the service is stopped or an attempt is already running.
func (s *Service) OnTap() bool {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return false
	}

	if !s.guard.TryAcquire() {
		log.Printf("Recognition in progress; tap dropped")
		return false
	}
	if !s.pool.Submit(s.ctx, s.recognize) {
		s.release()
		log.Printf("Worker busy; tap dropped")
		return false
	}
	return true
}

// recognize runs on the worker with the guard held. Every path releases the
// guard exactly once.
func (s *Service) recognize(ctx context.Context) {
	if ctx.Err() != nil {
		s.release()
		return
	}

	frame, ok := s.latestFrame()
	if !ok {
		err := apperr.New(apperr.NoFrameAvailable, "No frame available for OCR.")
		apperr.Log(err)
		s.finish(NoFrame, err)
		return
	}

	img, err := bitmap.FromFrame(frame)
	if err != nil {
		err = apperr.Wrap(err, apperr.ConversionFailure, "Failed to convert frame to bitmap.")
		apperr.Log(err)
		s.finish(ConversionFailed, err)
		return
	}

	var (
		outcome = Recognized
		failure error
	)
	s.deps.Recognizer.Process(img, ocr.Callbacks{
		OnSuccess: func(text string) {
			log.Printf("OCR result (%d chars): %s", len(text), logutil.Sanitize(text, maxLoggedText))
		},
		OnFailure: func(err error) {
			outcome, failure = RecognitionFailed, err
			apperr.Log(err)
		},
		OnComplete: func() {
			s.finish(outcome, failure)
		},
	})
}

func (s *Service) latestFrame() (*mirror.Frame, bool) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return nil, false
	}
	return sess.reader.AcquireLatestImage()
}

func (s *Service) finish(o Outcome, err error) {
	s.release()
	if s.deps.Observer != nil {
		s.deps.Observer(o, err)
	}
}

func (s *Service) release() {
	if !s.guard.Release() {
		log.Printf("Warning: recognition guard released twice")
	}
}

// OnStop tears everything down in order. Safe to call more than once.
func (s *Service) OnStop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	sess := s.session
	created := s.created
	s.mu.Unlock()

	if sess != nil {
		sess.display.Release()
		sess.reader.Close()
	}
	if created {
		if err := s.deps.Overlay.Remove(); err != nil {
			log.Printf("Warning: failed to remove overlay control: %v", err)
		}
	}
	if sess != nil {
		sess.projection.Stop()
	}
	if s.deps.Recognizer != nil {
		if err := s.deps.Recognizer.Close(); err != nil {
			log.Printf("Warning: failed to release recognizer: %v", err)
		}
	}
	s.cancel()
	s.pool.Close()
	if created {
		s.deps.Foreground.StopForeground()
	}
	log.Printf("Service stopped")
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return Stopped
	case s.guard.Held():
		return Recognizing
	case s.session != nil:
		return Mirroring
	default:
		return Idle
	}
}

// DisplayMetrics returns the metrics the virtual display was created with.
func (s *Service) DisplayMetrics() (display.Metrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return display.Metrics{}, false
	}
	return s.session.metrics, true
}
