// Package pose provides the body landmark data model shared by the gesture
// trigger and the serve key-moment extractor.
package pose

import (
	"math"

	"github.com/golang/geo/r3"
)

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark is a normalized body joint position. X and Y are image-relative
// in [0,1] with the origin at the top left, so a smaller Y is higher up.
// Z is depth relative to the hips as reported by the pose model.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks is one complete detection: exactly one Landmark per joint index.
type Landmarks [NumLandmarks]Landmark

// Side selects the left or right half of the body.
type Side int

const (
	Left Side = iota
	Right
)

// String returns "left" or "right".
func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Wrist returns the wrist landmark on the given side.
func (l *Landmarks) Wrist(s Side) Landmark {
	if s == Right {
		return l[RightWrist]
	}
	return l[LeftWrist]
}

// Elbow returns the elbow landmark on the given side.
func (l *Landmarks) Elbow(s Side) Landmark {
	if s == Right {
		return l[RightElbow]
	}
	return l[LeftElbow]
}

// Shoulder returns the shoulder landmark on the given side.
func (l *Landmarks) Shoulder(s Side) Landmark {
	if s == Right {
		return l[RightShoulder]
	}
	return l[LeftShoulder]
}

// Distance2D returns the Euclidean distance between a and b in the image
// plane, ignoring depth.
func Distance2D(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ElbowAngle returns the angle in degrees at the elbow between the
// elbow->wrist and elbow->shoulder vectors, measured in the image plane.
// ok is false when either vector has zero length.
func ElbowAngle(shoulder, elbow, wrist Landmark) (deg float64, ok bool) {
	toWrist := r3.Vector{X: wrist.X - elbow.X, Y: wrist.Y - elbow.Y}
	toShoulder := r3.Vector{X: shoulder.X - elbow.X, Y: shoulder.Y - elbow.Y}

	if toWrist.Norm() == 0 || toShoulder.Norm() == 0 {
		return 0, false
	}

	cos := toWrist.Dot(toShoulder) / (toWrist.Norm() * toShoulder.Norm())
	// Rounding can push the cosine just outside [-1,1].
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * 180 / math.Pi, true
}
