// Package notification keeps the persistent "service running" notice that
// accompanies an active capture session.
package notification

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"runtime"
)

type Importance int

const (
	ImportanceMin Importance = iota
	ImportanceLow
	ImportanceDefault
	ImportanceHigh
)

const (
	ForegroundID = 1001
	ChannelID    = "ocr_overlay"
	ChannelName  = "OCR Overlay"
)

// Notification is a persistent notice shown while the service runs.
type Notification struct {
	ID          int
	ChannelID   string
	ChannelName string
	Importance  Importance
	Title       string
	Text        string
	Icon        []byte
	// Ongoing notifications offer no dismiss action.
	Ongoing bool
}

// Foreground returns the fixed notification of the capture service.
func Foreground() Notification {
	return Notification{
		ID:          ForegroundID,
		ChannelID:   ChannelID,
		ChannelName: ChannelName,
		Importance:  ImportanceLow,
		Title:       "OCR overlay running",
		Text:        "Tap the floating OCR button to scan the screen.",
		Icon:        SearchIcon(),
		Ongoing:     true,
	}
}

// SearchIcon returns a 32px magnifier icon encoded for the current
// platform's tray: ICO on Windows, PNG elsewhere.
func SearchIcon() []byte {
	data := searchIconPNG(32)
	if runtime.GOOS == "windows" {
		return wrapICO(data, 32)
	}
	return data
}

func searchIconPNG(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	ink := color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
	s := float64(size)
	cx, cy, r := s*0.42, s*0.42, s*0.26
	thickness := s * 0.08

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			// Lens ring.
			if d := math.Hypot(px-cx, py-cy); math.Abs(d-r) <= thickness {
				img.SetNRGBA(x, y, ink)
				continue
			}
			// Handle: a thick segment running down-right from the ring.
			if px > cx+r*0.6 && py > cy+r*0.6 && math.Abs((px-cx)-(py-cy)) <= thickness*1.4 && px < s*0.92 {
				img.SetNRGBA(x, y, ink)
			}
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO embeds PNG data in a single-image ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	header := struct {
		Reserved, Type, Count uint16
	}{0, 1, 1}
	entry := struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{
		Width:    uint8(size % 256),
		Height:   uint8(size % 256),
		Planes:   1,
		BitCount: 32,
		Size:     uint32(len(pngData)),
		Offset:   6 + 16,
	}
	_ = binary.Write(&buf, binary.LittleEndian, header)
	_ = binary.Write(&buf, binary.LittleEndian, entry)
	buf.Write(pngData)
	return buf.Bytes()
}
