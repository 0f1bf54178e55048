// Package overlay shows the floating control that triggers recognition.
package overlay

import (
	"errors"
	"fmt"
	"strings"
)

// ButtonLabel is the text on the floating control.
const ButtonLabel = "OCR"

// WrapContent sizes the window to its content.
const WrapContent = -2

// Gravity anchors the control to screen edges.
type Gravity int

const (
	GravityTop Gravity = 1 << iota
	GravityBottom
	GravityStart
	GravityEnd
)

func (g Gravity) String() string {
	var parts []string
	for _, p := range []struct {
		bit  Gravity
		name string
	}{{GravityTop, "top"}, {GravityBottom, "bottom"}, {GravityStart, "start"}, {GravityEnd, "end"}} {
		if g&p.bit != 0 {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// LayoutParams places the floating control.
type LayoutParams struct {
	Width   int
	Height  int
	Gravity Gravity
	// X and Y are offsets from the gravity edges.
	X int
	Y int

	Focusable      bool
	TouchModal     bool
	LayoutInScreen bool
	Translucent    bool
}

// DefaultLayoutParams puts a wrap-content, non-focusable, non-modal control
// near the top-right corner.
func DefaultLayoutParams() LayoutParams {
	return LayoutParams{
		Width:          WrapContent,
		Height:         WrapContent,
		Gravity:        GravityTop | GravityEnd,
		X:              32,
		Y:              120,
		Focusable:      false,
		TouchModal:     false,
		LayoutInScreen: true,
		Translucent:    true,
	}
}

func (p LayoutParams) String() string {
	return fmt.Sprintf("gravity=%s x=%d y=%d size=%s focusable=%v touchModal=%v", p.Gravity, p.X, p.Y, sizeString(p.Width, p.Height), p.Focusable, p.TouchModal)
}

func sizeString(w, h int) string {
	if w == WrapContent && h == WrapContent {
		return "wrap"
	}
	return fmt.Sprintf("%dx%d", w, h)
}

var ErrAlreadyShown = errors.New("overlay control already shown")

// Control is a floating view. Show wires taps to onTap; Remove is safe to
// call when nothing is shown.
type Control interface {
	Show(onTap func()) error
	Remove() error
}
