// Package hook discovers and runs external programs that react to serve
// analysis events.
//
// A hook lives in its own subdirectory of the hooks directory and is
// described by a hook.json manifest. The executor sends a JSON Request on
// the hook's stdin and reads a JSON Response from its stdout.
package hook

import (
	"encoding/json"

	"github.com/ayusman/acecoach/internal/keymoment"
)

// ManifestFile is the manifest file name looked up in each hook directory.
const ManifestFile = "hook.json"

// Event names something a hook can subscribe to.
type Event string

// EventSessionAnalyzed fires after a session's key moments are stored.
const EventSessionAnalyzed Event = "session.analyzed"

// Manifest describes a hook's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []Event         `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is sent to a hook on stdin.
type Request struct {
	Event     Event             `json:"event"`
	SessionID string            `json:"session_id"`
	VideoPath string            `json:"video_path"`
	Duration  float64           `json:"duration"`
	Moments   keymoment.Moments `json:"moments"`
	Config    json.RawMessage   `json:"config,omitempty"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribed to ev.
func (h *Hook) Handles(ev Event) bool {
	for _, e := range h.Manifest.Events {
		if e == ev {
			return true
		}
	}
	return false
}
