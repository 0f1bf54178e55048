// Package apperr classifies the failures a recognition attempt can end in.
// Every kind is terminal for the attempt and never for the process.
package apperr

import (
	"errors"
	"fmt"
	"log"
)

type Kind int

const (
	Unknown Kind = iota
	PermissionDenied
	NoFrameAvailable
	ConversionFailure
	RecognitionFailure
	Config
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case NoFrameAvailable:
		return "NO_FRAME_AVAILABLE"
	case ConversionFailure:
		return "CONVERSION_FAILURE"
	case RecognitionFailure:
		return "RECOGNITION_FAILURE"
	case Config:
		return "CONFIG"
	default:
		return "UNKNOWN"
	}
}

// Warning reports whether the kind is logged at warning rather than error level.
func (k Kind) Warning() bool {
	switch k {
	case PermissionDenied, NoFrameAvailable, ConversionFailure:
		return true
	default:
		return false
	}
}

// Error carries a Kind plus an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same Kind, so sentinels like ErrNoFrame work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrPermissionDenied = &Error{Kind: PermissionDenied}
	ErrNoFrame          = &Error{Kind: NoFrameAvailable}
	ErrConversion       = &Error{Kind: ConversionFailure}
	ErrRecognition      = &Error{Kind: RecognitionFailure}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Log writes err at the level its kind calls for. Nil is ignored.
func Log(err error) {
	if err == nil {
		return
	}
	if KindOf(err).Warning() {
		log.Printf("Warning: %v", err)
		return
	}
	log.Printf("ERROR: %v", err)
}
