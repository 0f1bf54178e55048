package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"screen-ocr-overlay/src/apperr"
	"screen-ocr-overlay/src/display"
	"screen-ocr-overlay/src/mirror"
	"screen-ocr-overlay/src/notification"
	"screen-ocr-overlay/src/ocr"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLog(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	log.SetOutput(buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return buf
}

type fakeGrabber struct {
	width, height int
	short         bool
}

func (g *fakeGrabber) Grab() (*image.RGBA, error) {
	if g.short {
		return &image.RGBA{Pix: make([]byte, 16), Stride: g.width * 4, Rect: image.Rect(0, 0, g.width, g.height)}, nil
	}
	return image.NewRGBA(image.Rect(0, 0, g.width, g.height)), nil
}

type countingProjector struct {
	*mirror.Manager
	calls atomic.Int32
}

func (p *countingProjector) GetProjection(c mirror.Consent) (*mirror.Projection, error) {
	p.calls.Add(1)
	return p.Manager.GetProjection(c)
}

type fakeMetrics struct {
	m   display.Metrics
	err error
}

func (f fakeMetrics) RealMetrics() (display.Metrics, error) { return f.m, f.err }

type fakeOverlay struct {
	mu      sync.Mutex
	shown   int
	removed int
	onTap   func()
}

func (o *fakeOverlay) Show(onTap func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown++
	o.onTap = onTap
	return nil
}

func (o *fakeOverlay) Remove() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed++
	return nil
}

type fakeForeground struct {
	started []notification.Notification
	stopped int
}

func (f *fakeForeground) StartForeground(n notification.Notification) error {
	f.started = append(f.started, n)
	return nil
}

func (f *fakeForeground) StopForeground() { f.stopped++ }

type fakeEngine struct {
	text    string
	err     error
	block   chan struct{}
	entered chan struct{}
	calls   atomic.Int32
	closed  atomic.Bool
}

func (*fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	e.calls.Add(1)
	if e.entered != nil {
		e.entered <- struct{}{}
	}
	if e.block != nil {
		<-e.block
	}
	return e.text, e.err
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

type result struct {
	outcome Outcome
	err     error
}

type harness struct {
	svc       *Service
	projector *countingProjector
	overlay   *fakeOverlay
	fg        *fakeForeground
	engine    *fakeEngine
	outcomes  chan result
}

func newHarness(t *testing.T, grabber *fakeGrabber, m display.Metrics, engine *fakeEngine, deadline time.Duration) *harness {
	t.Helper()
	h := &harness{
		projector: &countingProjector{Manager: mirror.NewManager(grabber, time.Hour)},
		overlay:   &fakeOverlay{},
		fg:        &fakeForeground{},
		engine:    engine,
		outcomes:  make(chan result, 16),
	}
	h.svc = New(Deps{
		Projector:  h.projector,
		Metrics:    fakeMetrics{m: m},
		Overlay:    h.overlay,
		Foreground: h.fg,
		Recognizer: ocr.NewRecognizer(engine, deadline),
		Observer: func(o Outcome, err error) {
			h.outcomes <- result{o, err}
		},
	})
	t.Cleanup(h.svc.OnStop)
	return h
}

func (h *harness) wait(t *testing.T) result {
	t.Helper()
	select {
	case r := <-h.outcomes:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for recognition outcome")
		return result{}
	}
}

var (
	small   = display.Metrics{Width: 64, Height: 32, DensityDPI: 96}
	consent = mirror.Consent{ResultCode: mirror.ResultOK, Token: "first"}
)

func startedHarness(t *testing.T, engine *fakeEngine) *harness {
	t.Helper()
	h := newHarness(t, &fakeGrabber{width: small.Width, height: small.Height}, small, engine, 0)
	if err := h.svc.StartForegroundService(consent); err != nil {
		t.Fatalf("StartForegroundService() error = %v", err)
	}
	return h
}

func TestOnStartUsesRealMetrics(t *testing.T) {
	captureLog(t)
	m := display.Metrics{Width: 1080, Height: 2400, DensityDPI: 420}
	h := newHarness(t, &fakeGrabber{width: 1080, height: 2400}, m, &fakeEngine{}, 0)

	if got := h.svc.State(); got != Idle {
		t.Fatalf("State() = %v, want idle", got)
	}
	if err := h.svc.OnStart(consent); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}

	got, ok := h.svc.DisplayMetrics()
	if !ok || got != m {
		t.Errorf("DisplayMetrics() = %v, %v; want %v", got, ok, m)
	}
	sess := h.svc.session
	if sess.display.Name() != VirtualDisplayName {
		t.Errorf("display name = %q", sess.display.Name())
	}
	if sess.display.Width() != 1080 || sess.display.Height() != 2400 || sess.display.DensityDPI() != 420 {
		t.Errorf("display = %dx%d@%d, want 1080x2400@420",
			sess.display.Width(), sess.display.Height(), sess.display.DensityDPI())
	}
	if sess.reader.Width() != 1080 || sess.reader.Height() != 2400 || sess.reader.MaxImages() != 2 {
		t.Errorf("reader = %dx%d/%d, want 1080x2400/2",
			sess.reader.Width(), sess.reader.Height(), sess.reader.MaxImages())
	}
	if got := h.svc.State(); got != Mirroring {
		t.Errorf("State() = %v, want mirroring", got)
	}
}

func TestOnStartIgnoresSecondConsent(t *testing.T) {
	buf := captureLog(t)
	h := startedHarness(t, &fakeEngine{})
	first := h.svc.session

	if err := h.svc.OnStart(mirror.Consent{ResultCode: mirror.ResultOK, Token: "second"}); err != nil {
		t.Fatalf("second OnStart() error = %v", err)
	}
	if h.svc.session != first {
		t.Error("second consent replaced the session")
	}
	if n := h.projector.calls.Load(); n != 1 {
		t.Errorf("GetProjection called %d times, want 1", n)
	}
	if !strings.Contains(buf.String(), "ignoring new consent") {
		t.Errorf("expected ignore message, log = %q", buf.String())
	}
}

func TestOnStartDeniedConsent(t *testing.T) {
	captureLog(t)
	h := newHarness(t, &fakeGrabber{width: 8, height: 8}, small, &fakeEngine{}, 0)

	err := h.svc.OnStart(mirror.Consent{ResultCode: mirror.ResultCanceled})
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("OnStart() error = %v, want permission denied", err)
	}
	if h.projector.calls.Load() != 0 {
		t.Error("projection requested for denied consent")
	}
	if h.svc.State() != Idle {
		t.Errorf("State() = %v, want idle", h.svc.State())
	}
}

func TestOnStartMetricsFailure(t *testing.T) {
	captureLog(t)
	svc := New(Deps{
		Projector: mirror.NewManager(&fakeGrabber{width: 8, height: 8}, time.Hour),
		Metrics:   fakeMetrics{err: errors.New("no display")},
	})
	defer svc.OnStop()

	if err := svc.OnStart(consent); err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("OnStart() error = %v, want metrics failure", err)
	}
	if svc.State() != Idle {
		t.Errorf("State() = %v, want idle after failed start", svc.State())
	}
}

func TestTapsDroppedWhileRecognizing(t *testing.T) {
	buf := captureLog(t)
	engine := &fakeEngine{text: "hello\nworld", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	h := startedHarness(t, engine)

	if !h.svc.OnTap() {
		t.Fatal("first tap should be accepted")
	}
	select {
	case <-engine.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never called")
	}
	if got := h.svc.State(); got != Recognizing {
		t.Errorf("State() = %v, want recognizing", got)
	}
	for i := 0; i < 5; i++ {
		if h.svc.OnTap() {
			t.Fatalf("tap %d accepted while recognizing", i+2)
		}
	}

	close(engine.block)
	r := h.wait(t)
	if r.outcome != Recognized || r.err != nil {
		t.Fatalf("outcome = %v, %v; want recognized", r.outcome, r.err)
	}
	if n := engine.calls.Load(); n != 1 {
		t.Errorf("engine called %d times, want 1", n)
	}
	if h.svc.guard.Held() {
		t.Error("guard still held after completion")
	}
	if got := h.svc.State(); got != Mirroring {
		t.Errorf("State() = %v, want mirroring", got)
	}
	if !strings.Contains(buf.String(), `OCR result (11 chars): hello\nworld`) {
		t.Errorf("result not logged: %q", buf.String())
	}

	// Guard is free again.
	if !h.svc.OnTap() {
		t.Fatal("tap after completion should be accepted")
	}
	h.wait(t)
	if strings.Contains(buf.String(), "released twice") {
		t.Error("guard released twice")
	}
}

func TestNoFrameReleasesGuard(t *testing.T) {
	buf := captureLog(t)
	engine := &fakeEngine{}
	h := startedHarness(t, engine)

	// Drain the frame queued at display creation.
	if _, ok := h.svc.session.reader.AcquireLatestImage(); !ok {
		t.Fatal("expected an initial frame")
	}

	if !h.svc.OnTap() {
		t.Fatal("tap should be accepted")
	}
	r := h.wait(t)
	if r.outcome != NoFrame || !errors.Is(r.err, apperr.ErrNoFrame) {
		t.Fatalf("outcome = %v, %v; want no-frame", r.outcome, r.err)
	}
	if engine.calls.Load() != 0 {
		t.Error("recognizer called without a frame")
	}
	if h.svc.guard.Held() {
		t.Error("guard still held")
	}
	out := buf.String()
	if !strings.Contains(out, "Warning:") || !strings.Contains(out, "No frame available for OCR.") {
		t.Errorf("missing no-frame warning: %q", out)
	}
	if strings.Contains(out, "released twice") {
		t.Error("guard released twice")
	}
}

func TestConversionFailureReleasesGuard(t *testing.T) {
	buf := captureLog(t)
	engine := &fakeEngine{}
	h := newHarness(t, &fakeGrabber{width: small.Width, height: small.Height, short: true}, small, engine, 0)
	if err := h.svc.OnStart(consent); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}

	h.svc.OnTap()
	r := h.wait(t)
	if r.outcome != ConversionFailed || !errors.Is(r.err, apperr.ErrConversion) {
		t.Fatalf("outcome = %v, %v; want conversion-failed", r.outcome, r.err)
	}
	if engine.calls.Load() != 0 {
		t.Error("recognizer called after conversion failure")
	}
	if h.svc.guard.Held() {
		t.Error("guard still held")
	}
	if !strings.Contains(buf.String(), "Failed to convert frame to bitmap.") {
		t.Errorf("missing conversion warning: %q", buf.String())
	}
}

func TestRecognitionFailureReleasesGuard(t *testing.T) {
	buf := captureLog(t)
	h := startedHarness(t, &fakeEngine{err: errors.New("engine broke")})

	h.svc.OnTap()
	r := h.wait(t)
	if r.outcome != RecognitionFailed || !errors.Is(r.err, apperr.ErrRecognition) {
		t.Fatalf("outcome = %v, %v; want recognition-failed", r.outcome, r.err)
	}
	if h.svc.guard.Held() {
		t.Error("guard still held")
	}
	out := buf.String()
	if !strings.Contains(out, "ERROR:") || !strings.Contains(out, "engine broke") {
		t.Errorf("missing recognition error: %q", out)
	}
	if strings.Contains(out, "released twice") {
		t.Error("guard released twice")
	}
}

func TestDeadlineReleasesGuard(t *testing.T) {
	captureLog(t)
	engine := &fakeEngine{block: make(chan struct{})}
	defer close(engine.block)
	h := newHarness(t, &fakeGrabber{width: small.Width, height: small.Height}, small, engine, 20*time.Millisecond)
	if err := h.svc.OnStart(consent); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}

	h.svc.OnTap()
	r := h.wait(t)
	if r.outcome != RecognitionFailed || !errors.Is(r.err, context.DeadlineExceeded) {
		t.Fatalf("outcome = %v, %v; want deadline failure", r.outcome, r.err)
	}
	if !h.svc.OnTap() {
		t.Error("tap after deadline should be accepted")
	}
}

func TestOnCreateIdempotent(t *testing.T) {
	captureLog(t)
	engine := &fakeEngine{}
	h := newHarness(t, &fakeGrabber{width: small.Width, height: small.Height}, small, engine, 0)

	for i := 0; i < 3; i++ {
		if err := h.svc.OnCreate(); err != nil {
			t.Fatalf("OnCreate() error = %v", err)
		}
	}
	if h.overlay.shown != 1 || len(h.fg.started) != 1 {
		t.Fatalf("shown=%d started=%d, want 1/1", h.overlay.shown, len(h.fg.started))
	}
	if n := h.fg.started[0]; n.Title != "OCR overlay running" || !n.Ongoing {
		t.Errorf("unexpected notification %+v", n)
	}

	// The overlay tap drives recognition.
	if err := h.svc.OnStart(consent); err != nil {
		t.Fatal(err)
	}
	h.overlay.onTap()
	if r := h.wait(t); r.outcome != Recognized {
		t.Errorf("outcome = %v, want recognized", r.outcome)
	}
}

func TestOnStopIdempotent(t *testing.T) {
	captureLog(t)
	engine := &fakeEngine{}
	h := startedHarness(t, engine)
	sess := h.svc.session

	h.svc.OnStop()
	h.svc.OnStop()

	if h.overlay.removed != 1 {
		t.Errorf("overlay removed %d times, want 1", h.overlay.removed)
	}
	if h.fg.stopped != 1 {
		t.Errorf("foreground stopped %d times, want 1", h.fg.stopped)
	}
	if !sess.reader.Closed() {
		t.Error("image reader not closed")
	}
	if !sess.projection.Stopped() {
		t.Error("projection not stopped")
	}
	if !engine.closed.Load() {
		t.Error("recognizer resources not released")
	}
	if got := h.svc.State(); got != Stopped {
		t.Errorf("State() = %v, want stopped", got)
	}
	if h.svc.OnTap() {
		t.Error("tap accepted after stop")
	}
	if err := h.svc.OnStart(mirror.Consent{ResultCode: mirror.ResultOK, Token: "late"}); err != nil {
		t.Errorf("OnStart() after stop error = %v", err)
	}
	if h.projector.calls.Load() != 1 {
		t.Error("consent honored after stop")
	}
}

func TestOnStopBeforeStart(t *testing.T) {
	captureLog(t)
	h := newHarness(t, &fakeGrabber{width: 8, height: 8}, small, &fakeEngine{}, 0)
	h.svc.OnStop()
	if h.overlay.removed != 0 || h.fg.stopped != 0 {
		t.Error("nothing was created, nothing should be torn down")
	}
}
