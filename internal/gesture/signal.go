// Package gesture provides the hands-free start/stop trigger: a held-still
// raised hand recognized over a trailing run of frames.
package gesture

import (
	"github.com/ayusman/acecoach/internal/pose"
)

// State is the reported state of the gesture trigger.
type State int

const (
	// StateIdle means no hand is raised above its shoulder.
	StateIdle State = iota
	// StateDetecting means a hand is raised and stillness is being counted.
	StateDetecting
	// StateLocked means the hand was held still long enough. Terminal until Reset.
	StateLocked
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateDetecting:
		return "detecting"
	case StateLocked:
		return "locked"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Default trigger tuning.
const (
	// DefaultStillnessThreshold is the maximum wrist travel, in normalized
	// image units, between ticks that still counts as holding still.
	DefaultStillnessThreshold = 0.02
	// DefaultRequiredStillFrames is the number of consecutive still ticks
	// needed to lock.
	DefaultRequiredStillFrames = 120
)

// Config holds the trigger thresholds.
type Config struct {
	StillnessThreshold  float64 `yaml:"stillness_threshold"`
	RequiredStillFrames int     `yaml:"required_still_frames"`
}

// DefaultConfig returns the standard trigger thresholds.
func DefaultConfig() Config {
	return Config{
		StillnessThreshold:  DefaultStillnessThreshold,
		RequiredStillFrames: DefaultRequiredStillFrames,
	}
}

// Detector is a single-shot raised-hand trigger. It is fed one landmark
// detection per tick and reports state changes only. Once locked it ignores
// further input until Reset is called.
//
// A Detector is not safe for concurrent use.
type Detector struct {
	config Config

	state    State
	reported bool

	lastPos    pose.Landmark
	hasLast    bool
	stillCount int

	// OnStateChange, if set, is called with every reported transition.
	OnStateChange func(State)
}

// New creates a Detector. Zero or negative config values fall back to defaults.
func New(config Config) *Detector {
	if config.StillnessThreshold <= 0 {
		config.StillnessThreshold = DefaultStillnessThreshold
	}
	if config.RequiredStillFrames <= 0 {
		config.RequiredStillFrames = DefaultRequiredStillFrames
	}
	return &Detector{config: config}
}

// Update processes one tick. lm is nil when no body was detected.
// It returns the current state and whether it differs from the state
// reported on the previous tick. The first tick after New or Reset always
// counts as a change.
func (d *Detector) Update(lm *pose.Landmarks) (State, bool) {
	if d.state == StateLocked {
		return StateLocked, false
	}

	wrist, raised := raisedWrist(lm)
	if !raised {
		d.stillCount = 0
		d.hasLast = false
		return d.report(StateIdle)
	}

	if !d.hasLast || pose.Distance2D(wrist, d.lastPos) >= d.config.StillnessThreshold {
		d.stillCount = 1
		d.lastPos = wrist
		d.hasLast = true
	} else {
		d.stillCount++
	}

	if d.stillCount >= d.config.RequiredStillFrames {
		return d.report(StateLocked)
	}
	return d.report(StateDetecting)
}

// State returns the last reported state.
func (d *Detector) State() State {
	return d.state
}

// StillCount returns the current run of consecutive still ticks.
func (d *Detector) StillCount() int {
	return d.stillCount
}

// Reset clears all tracking so the detector can trigger again.
func (d *Detector) Reset() {
	d.state = StateIdle
	d.reported = false
	d.lastPos = pose.Landmark{}
	d.hasLast = false
	d.stillCount = 0
}

func (d *Detector) report(s State) (State, bool) {
	changed := !d.reported || s != d.state
	d.state = s
	d.reported = true

	if changed && d.OnStateChange != nil {
		d.OnStateChange(s)
	}
	return s, changed
}

// raisedWrist returns the wrist that is above its own shoulder, checking the
// left side first.
func raisedWrist(lm *pose.Landmarks) (pose.Landmark, bool) {
	if lm == nil {
		return pose.Landmark{}, false
	}

	for _, side := range []pose.Side{pose.Left, pose.Right} {
		if w := lm.Wrist(side); w.Y < lm.Shoulder(side).Y {
			return w, true
		}
	}
	return pose.Landmark{}, false
}
