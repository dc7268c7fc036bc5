package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/acecoach/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	pose     *pose.Landmarks
	sequence []*pose.Landmarks
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the landmarks returned by every Detect call.
// A nil pose simulates an empty scene.
func (m *MockDetector) SetPose(lm *pose.Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = lm
	m.sequence = nil
}

// SetSequence queues landmarks returned one per Detect call. Once the
// queue is drained the last entry keeps being returned.
func (m *MockDetector) SetSequence(seq []*pose.Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	if len(m.sequence) > 0 {
		lm := m.sequence[0]
		if len(m.sequence) > 1 {
			m.sequence = m.sequence[1:]
		}
		return lm, nil
	}
	return m.pose, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// RestingLandmarks returns a standing pose with both arms hanging at the sides.
func RestingLandmarks() pose.Landmarks {
	var lm pose.Landmarks

	lm[pose.Nose] = pose.Landmark{X: 0.50, Y: 0.20}
	lm[pose.LeftShoulder] = pose.Landmark{X: 0.58, Y: 0.35}
	lm[pose.RightShoulder] = pose.Landmark{X: 0.42, Y: 0.35}
	lm[pose.LeftElbow] = pose.Landmark{X: 0.60, Y: 0.48}
	lm[pose.RightElbow] = pose.Landmark{X: 0.40, Y: 0.48}
	lm[pose.LeftWrist] = pose.Landmark{X: 0.61, Y: 0.60}
	lm[pose.RightWrist] = pose.Landmark{X: 0.39, Y: 0.60}
	lm[pose.LeftHip] = pose.Landmark{X: 0.55, Y: 0.62}
	lm[pose.RightHip] = pose.Landmark{X: 0.45, Y: 0.62}
	lm[pose.LeftKnee] = pose.Landmark{X: 0.55, Y: 0.80}
	lm[pose.RightKnee] = pose.Landmark{X: 0.45, Y: 0.80}
	lm[pose.LeftAnkle] = pose.Landmark{X: 0.55, Y: 0.95}
	lm[pose.RightAnkle] = pose.Landmark{X: 0.45, Y: 0.95}

	return lm
}

// RaisedHandLandmarks returns a standing pose with the wrist on the given
// side held above its shoulder, offset horizontally by dx.
func RaisedHandLandmarks(side pose.Side, dx float64) pose.Landmarks {
	lm := RestingLandmarks()

	if side == pose.Right {
		lm[pose.RightElbow] = pose.Landmark{X: 0.36, Y: 0.28}
		lm[pose.RightWrist] = pose.Landmark{X: 0.36 + dx, Y: 0.15}
	} else {
		lm[pose.LeftElbow] = pose.Landmark{X: 0.64, Y: 0.28}
		lm[pose.LeftWrist] = pose.Landmark{X: 0.64 + dx, Y: 0.15}
	}

	return lm
}
