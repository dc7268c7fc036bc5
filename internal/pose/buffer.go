package pose

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfOrder is returned when a frame is appended with a time earlier
// than the last frame in the buffer.
var ErrOutOfOrder = errors.New("frame time precedes last buffered frame")

// Frame is a single processed video frame with a detected body.
type Frame struct {
	Time      float64   `json:"time"` // seconds from clip start
	Landmarks Landmarks `json:"landmarks"`
}

// Buffer is an append-only sequence of frames ordered by non-decreasing time.
// The zero value is an empty buffer ready to use.
type Buffer struct {
	frames []Frame
}

// NewBuffer creates a Buffer with room for capacity frames.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{frames: make([]Frame, 0, capacity)}
}

// Append adds a frame to the end of the buffer.
func (b *Buffer) Append(f Frame) error {
	if n := len(b.frames); n > 0 && f.Time < b.frames[n-1].Time {
		return fmt.Errorf("%w: %.3fs after %.3fs", ErrOutOfOrder, f.Time, b.frames[n-1].Time)
	}
	b.frames = append(b.frames, f)
	return nil
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.frames)
}

// Frames returns the buffered frames. The slice must not be modified.
func (b *Buffer) Frames() []Frame {
	if b == nil {
		return nil
	}
	return b.frames
}

// At returns the frame at index i.
func (b *Buffer) At(i int) Frame {
	return b.frames[i]
}

// Nearest returns the index of the frame whose time is closest to t.
// When two frames are equally close the earlier one wins.
// Returns -1 for an empty buffer.
func (b *Buffer) Nearest(t float64) int {
	if b == nil {
		return -1
	}
	return NearestIndex(b.frames, t)
}

// NearestIndex is Nearest over a plain time-ordered frame slice.
func NearestIndex(frames []Frame, t float64) int {
	n := len(frames)
	if n == 0 {
		return -1
	}

	// First frame at or after t.
	i := sort.Search(n, func(i int) bool { return frames[i].Time >= t })

	switch {
	case i == 0:
		return 0
	case i == n:
		return n - 1
	}

	// Equal times can repeat; step back to the first of a run so ties
	// keep resolving to the earliest candidate.
	before := i - 1
	for before > 0 && frames[before-1].Time == frames[before].Time {
		before--
	}

	if t-frames[before].Time <= frames[i].Time-t {
		return before
	}
	return i
}
