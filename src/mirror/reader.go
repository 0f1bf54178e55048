package mirror

import (
	"fmt"
	"sync"
	"time"
)

// BytesPerPixel is the size of one RGBA_8888 pixel.
const BytesPerPixel = 4

// Plane is a raw pixel buffer. RowStride may exceed Width*PixelStride when
// rows are padded for alignment.
type Plane struct {
	Pix         []byte
	RowStride   int
	PixelStride int
}

// Frame is one mirrored screen image.
type Frame struct {
	Width     int
	Height    int
	Plane     Plane
	Timestamp time.Time
}

// ImageReader is a bounded frame queue fed by a virtual display. When full,
// the oldest frame is dropped to make room.
type ImageReader struct {
	width     int
	height    int
	maxImages int

	mu     sync.Mutex
	frames []*Frame
	closed bool
}

func NewImageReader(width, height, maxImages int) (*ImageReader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image reader size %dx%d", width, height)
	}
	if maxImages <= 0 {
		return nil, fmt.Errorf("maxImages must be positive, got %d", maxImages)
	}
	return &ImageReader{width: width, height: height, maxImages: maxImages}, nil
}

func (r *ImageReader) Width() int     { return r.width }
func (r *ImageReader) Height() int    { return r.height }
func (r *ImageReader) MaxImages() int { return r.maxImages }

// queue adds a frame. It reports false once the reader is closed.
func (r *ImageReader) queue(f *Frame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if len(r.frames) == r.maxImages {
		r.frames[0] = nil
		r.frames = r.frames[1:]
	}
	r.frames = append(r.frames, f)
	return true
}

// AcquireLatestImage returns the newest queued frame and discards the older
// ones. It never blocks; ok is false when nothing is queued.
func (r *ImageReader) AcquireLatestImage() (*Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.frames) == 0 {
		return nil, false
	}
	latest := r.frames[len(r.frames)-1]
	clear(r.frames)
	r.frames = r.frames[:0]
	return latest, true
}

// Pending returns the number of queued frames.
func (r *ImageReader) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Close drops queued frames. Safe to call more than once.
func (r *ImageReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.frames = nil
}

func (r *ImageReader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
