package capture

import (
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// Player plays back a finished clip one decoded frame at a time.
// ReadFrame returns io.EOF once the clip is exhausted.
type Player interface {
	ReadFrame() (Frame, error)
	// Duration is the clip length in seconds, or 0 when unknown.
	Duration() float64
	Close() error
}

// filePlayer decodes a video file with GoCV.
type filePlayer struct {
	path     string
	capture  *gocv.VideoCapture
	duration float64
	mu       sync.Mutex
	closed   bool
}

// OpenFile opens a video file for playback.
func OpenFile(path string) (Player, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %s: not a readable video", path)
	}

	var duration float64
	if fps := vc.Get(gocv.VideoCaptureFPS); fps > 0 {
		duration = vc.Get(gocv.VideoCaptureFrameCount) / fps
	}

	return &filePlayer{
		path:     path,
		capture:  vc,
		duration: duration,
	}, nil
}

// ReadFrame decodes the next frame. Its Time is the decoder's position of
// that frame in seconds.
func (p *filePlayer) ReadFrame() (Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Frame{}, io.EOF
	}

	mat := gocv.NewMat()
	if ok := p.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return Frame{}, io.EOF
	}

	pos := p.capture.Get(gocv.VideoCapturePosMsec) / 1000
	return Frame{Mat: &mat, Time: pos}, nil
}

// Duration returns the clip length derived from frame count and rate.
func (p *filePlayer) Duration() float64 {
	return p.duration
}

// Close releases the decoder. Calling Close more than once is a no-op.
func (p *filePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.capture.Close()
}
