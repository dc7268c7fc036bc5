package capture

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// RecorderCodec is the FourCC used for recorded clips.
const RecorderCodec = "MJPG"

// Recorder writes live frames to a video file.
type Recorder struct {
	path    string
	writer  *gocv.VideoWriter
	mu      sync.Mutex
	frames  int
	started time.Time
	closed  bool
}

// NewRecorder creates the output file and prepares it for width x height
// frames at fps.
func NewRecorder(path string, fps, width, height int) (*Recorder, error) {
	if fps <= 0 {
		fps = DefaultFPS
	}

	w, err := gocv.VideoWriterFile(path, RecorderCodec, float64(fps), width, height, true)
	if err != nil {
		return nil, fmt.Errorf("create recording %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("create recording %s: encoder %s unavailable", path, RecorderCodec)
	}

	return &Recorder{
		path:    path,
		writer:  w,
		started: time.Now(),
	}, nil
}

// Write appends one frame to the recording.
func (r *Recorder) Write(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("write to closed recording %s", r.path)
	}
	if f.Mat == nil || f.Mat.Empty() {
		return ErrEmptyFrame
	}

	if err := r.writer.Write(*f.Mat); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	r.frames++
	return nil
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Elapsed returns the wall-clock time since the recording was created.
func (r *Recorder) Elapsed() time.Duration {
	return time.Since(r.started)
}

// Close finalizes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.writer.Close()
}
