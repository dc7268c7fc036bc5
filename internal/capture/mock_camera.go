package capture

import (
	"errors"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	fps     int
	mu      sync.Mutex
	running bool
	ticks   int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	c.ticks = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame. Frames are stamped as if
// captured at the configured FPS.
func (c *MockCamera) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return Frame{}, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return Frame{}, errors.New("no frames available")
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return Frame{}, errors.New("no more frames")
		}
		c.index = 0
	}

	// Clone so callers can close what they get
	mat := c.frames[c.index].Clone()
	c.index++
	t := float64(c.ticks) / float64(c.fps)
	c.ticks++

	return Frame{Mat: &mat, Time: t}, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return DefaultWidth, DefaultHeight
	}
	return c.frames[0].Cols(), c.frames[0].Rows()
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// MockPlayer plays back a clip described only by its frame timestamps.
// Every frame is an empty Mat; pair it with a mock detector.
type MockPlayer struct {
	times    []float64
	duration float64
	index    int
	err      error
	errAt    int
	mu       sync.Mutex
	closed   bool
	reads    int
}

// NewMockPlayer creates a player yielding one frame per timestamp.
func NewMockPlayer(times []float64, duration float64) *MockPlayer {
	return &MockPlayer{
		times:    times,
		duration: duration,
		errAt:    -1,
	}
}

// FailAt makes the read of frame i return err instead of a frame.
func (p *MockPlayer) FailAt(i int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errAt = i
	p.err = err
}

func (p *MockPlayer) ReadFrame() (Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reads++
	if p.closed || p.index >= len(p.times) {
		return Frame{}, io.EOF
	}
	if p.index == p.errAt {
		p.index++
		return Frame{}, p.err
	}

	mat := gocv.NewMat()
	t := p.times[p.index]
	p.index++
	return Frame{Mat: &mat, Time: t}, nil
}

func (p *MockPlayer) Duration() float64 {
	return p.duration
}

func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (p *MockPlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Reads returns the number of ReadFrame calls so far.
func (p *MockPlayer) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}
