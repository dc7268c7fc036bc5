// Package detector provides the pose landmark source consumed by the gesture
// trigger and the frame collection loop.
package detector

import (
	"errors"

	"gocv.io/x/gocv"

	"github.com/ayusman/acecoach/internal/pose"
)

// ErrSourceUnavailable is returned when pose detection cannot run at all,
// for example because the model service failed to start. It is a setup
// error and is not retried.
var ErrSourceUnavailable = errors.New("pose source unavailable")

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the single
	// tracked body. Returns nil landmarks and a nil error when no body is
	// visible.
	Detect(frame *gocv.Mat) (*pose.Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the pose model variant (0 lite, 1 full, 2 heavy).
	ModelComplexity int `yaml:"model_complexity"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// ScriptPath overrides the location of the pose service script.
	ScriptPath string `yaml:"script_path"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
