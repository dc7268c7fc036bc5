// Package fixtures provides recorded pose sequences for tests.
package fixtures

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ayusman/acecoach/internal/keymoment"
	"github.com/ayusman/acecoach/internal/pose"
)

//go:embed testdata/*.json
var clipsFS embed.FS

// ClipFrame is one decoded video frame. Landmarks is nil when no body was
// visible in the frame.
type ClipFrame struct {
	Time      float64         `json:"time"`
	Landmarks *pose.Landmarks `json:"landmarks"`
}

// Clip is a pose sequence as the detector would report it for a video.
type Clip struct {
	Name     string                  `json:"name"`
	FPS      int                     `json:"fps"`
	Duration float64                 `json:"duration"`
	Expected map[keymoment.Event]int `json:"expected"`
	Frames   []ClipFrame             `json:"frames"`
}

// LoadClip loads the clip stored as testdata/<name>.json.
func LoadClip(name string) (*Clip, error) {
	data, err := clipsFS.ReadFile("testdata/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load clip %s: %w", name, err)
	}

	var c Clip
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode clip %s: %w", name, err)
	}
	return &c, nil
}

// Serve loads the right-handed serve clip.
func Serve() (*Clip, error) {
	return LoadClip("serve")
}

// Times returns the presentation time of every frame.
func (c *Clip) Times() []float64 {
	times := make([]float64, len(c.Frames))
	for i, f := range c.Frames {
		times[i] = f.Time
	}
	return times
}

// Sequence returns the detector output for every frame, nil where no body
// was found.
func (c *Clip) Sequence() []*pose.Landmarks {
	seq := make([]*pose.Landmarks, len(c.Frames))
	for i, f := range c.Frames {
		seq[i] = f.Landmarks
	}
	return seq
}

// Poses returns the frames with a detected body, as the collector buffers them.
func (c *Clip) Poses() []pose.Frame {
	var out []pose.Frame
	for _, f := range c.Frames {
		if f.Landmarks != nil {
			out = append(out, pose.Frame{Time: f.Time, Landmarks: *f.Landmarks})
		}
	}
	return out
}
