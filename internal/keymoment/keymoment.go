// Package keymoment locates the biomechanical key moments of a tennis serve
// in a recorded sequence of pose frames.
//
// Extraction runs three passes over progressively later parts of the
// buffer. Each pass starts where the previous event was found, so the
// reported events always follow the serve's natural order:
//
//	Serve Start -> Toss Peak -> Trophy Pose -> Contact Point
//
// When an intermediate event cannot be found every later event is reported
// absent. Absent is distinct from a zero timestamp.
package keymoment

import (
	"encoding/json"

	"github.com/ayusman/acecoach/internal/pose"
)

// Event names a key moment.
type Event string

const (
	ServeStart   Event = "Serve Start"
	TossPeak     Event = "Toss Peak"
	TrophyPose   Event = "Trophy Pose"
	ContactPoint Event = "Contact Point"
)

// Events lists every key moment in serve order.
var Events = [...]Event{ServeStart, TossPeak, TrophyPose, ContactPoint}

// Extraction thresholds.
const (
	// MinFrames is the smallest buffer that geometric inference runs on.
	MinFrames = 10
	// TrophyMinAngle and TrophyMaxAngle bound the elbow angle, exclusive,
	// in degrees for the trophy position.
	TrophyMinAngle = 80.0
	TrophyMaxAngle = 130.0
)

// Moment is one key moment. Found is false when the event was not located,
// in which case Time and Index carry no meaning.
type Moment struct {
	Name  Event
	Time  float64
	Index int // buffer index of the frame, -1 when not tied to a frame
	Found bool
}

// MarshalJSON encodes an absent moment with null time and frame index.
func (m Moment) MarshalJSON() ([]byte, error) {
	out := struct {
		Name  Event    `json:"name"`
		Time  *float64 `json:"time"`
		Index *int     `json:"frame_index"`
	}{Name: m.Name}

	if m.Found {
		t := m.Time
		out.Time = &t
		if m.Index >= 0 {
			i := m.Index
			out.Index = &i
		}
	}
	return json.Marshal(out)
}

// Moments holds exactly one entry per Event, in serve order.
type Moments [len(Events)]Moment

// Get returns the moment with the given name.
func (ms Moments) Get(name Event) (Moment, bool) {
	for _, m := range ms {
		if m.Name == name {
			return m, true
		}
	}
	return Moment{Name: name, Index: -1}, false
}

// Time returns the timestamp of the named moment, or false when absent.
func (ms Moments) Time(name Event) (float64, bool) {
	m, ok := ms.Get(name)
	if !ok || !m.Found {
		return 0, false
	}
	return m.Time, true
}

func absent() Moments {
	var ms Moments
	for i, name := range Events {
		ms[i] = Moment{Name: name, Index: -1}
	}
	return ms
}

// FrameFor returns the buffered frame a moment was taken from.
func FrameFor(frames []pose.Frame, m Moment) (pose.Frame, bool) {
	if !m.Found || m.Index < 0 || m.Index >= len(frames) {
		return pose.Frame{}, false
	}
	return frames[m.Index], true
}
