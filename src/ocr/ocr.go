package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"screen-ocr-overlay/src/apperr"
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/llm"
)

var ErrRecognizerClosed = errors.New("recognizer closed")

// Engine reads text from an image. Implementations may block; the
// Recognizer runs them off the caller's goroutine.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// Callbacks are invoked on the recognizer's completion goroutine. Exactly one
// of OnSuccess or OnFailure runs, then OnComplete runs exactly once.
type Callbacks struct {
	OnSuccess  func(text string)
	OnFailure  func(err error)
	OnComplete func()
}

// Recognizer runs an Engine asynchronously and reports through Callbacks.
type Recognizer struct {
	engine   Engine
	deadline time.Duration

	mu     sync.Mutex
	closed bool
}

// NewRecognizer wraps engine. A positive deadline bounds every call; zero
// lets a call run for as long as the engine takes.
func NewRecognizer(engine Engine, deadline time.Duration) *Recognizer {
	return &Recognizer{engine: engine, deadline: deadline}
}

// New builds the engine selected by cfg.
func New(cfg *config.Config) (*Recognizer, error) {
	var engine Engine
	switch cfg.Engine {
	case config.EngineLLM:
		client, err := llm.New(llm.Config{APIKey: cfg.APIKey, Model: cfg.Model, Providers: cfg.Providers})
		if err != nil {
			return nil, fmt.Errorf("llm engine: %w", err)
		}
		engine = NewLLMEngine(client)
	default:
		engine = NewTesseract()
	}
	return NewRecognizer(engine, time.Duration(cfg.OCRDeadlineSec)*time.Second), nil
}

func (r *Recognizer) Engine() Engine { return r.engine }

// Process starts recognition of img and returns without waiting for it.
func (r *Recognizer) Process(img image.Image, cb Callbacks) *Task {
	t := &Task{done: make(chan struct{})}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		go t.settle("", apperr.Wrap(ErrRecognizerClosed, apperr.RecognitionFailure, "OCR failed."), cb)
		return t
	}

	go func() {
		ctx, cancel := r.context()
		defer cancel()

		type outcome struct {
			text string
			err  error
		}
		resCh := make(chan outcome, 1)
		go func() {
			text, err := r.engine.Recognize(ctx, img)
			resCh <- outcome{text: text, err: err}
		}()

		var res outcome
		select {
		case res = <-resCh:
		case <-ctx.Done():
			// The engine keeps running in the background; its result is dropped.
			res = outcome{err: ctx.Err()}
		}
		if res.err != nil {
			res.err = apperr.Wrap(res.err, apperr.RecognitionFailure, fmt.Sprintf("%s OCR failed.", r.engine.Name()))
		}
		t.settle(res.text, res.err, cb)
	}()
	return t
}

func (r *Recognizer) context() (context.Context, context.CancelFunc) {
	if r.deadline > 0 {
		return context.WithTimeout(context.Background(), r.deadline)
	}
	return context.WithCancel(context.Background())
}

// Close releases engine resources. Calls already in flight still complete.
// Safe to call more than once.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.engine.Close()
}

// Task is the pending result of Process.
type Task struct {
	done chan struct{}
	text string
	err  error
}

// Done is closed after OnComplete has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result is valid once Done is closed.
func (t *Task) Result() (string, error) {
	<-t.done
	return t.text, t.err
}

func (t *Task) settle(text string, err error, cb Callbacks) {
	t.text, t.err = text, err
	defer close(t.done)
	defer func() {
		if cb.OnComplete != nil {
			cb.OnComplete()
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			log.Printf("PANIC in recognition callback: %v", p)
		}
	}()

	if err != nil {
		if cb.OnFailure != nil {
			cb.OnFailure(err)
		}
		return
	}
	if cb.OnSuccess != nil {
		cb.OnSuccess(text)
	}
}
