// Package api provides HTTP API handlers for the acecoach serve analyzer.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ayusman/acecoach/internal/keymoment"
	"github.com/ayusman/acecoach/internal/pose"
	"github.com/ayusman/acecoach/internal/store"
)

// SessionHandler handles HTTP requests for analyzed sessions.
type SessionHandler struct {
	store         *store.Store
	recordingsDir string
}

// NewSessionHandler creates a new SessionHandler with the given store.
// Deleting a session also removes its clip when the clip lives under
// recordingsDir.
func NewSessionHandler(s *store.Store, recordingsDir string) *SessionHandler {
	return &SessionHandler{store: s, recordingsDir: recordingsDir}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/pose.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.list(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch rest {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "pose":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.pose(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type sessionResponse struct {
	*store.Session
	Moments *keymoment.Moments `json:"moments,omitempty"`
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type poseResponse struct {
	Index     int            `json:"index"`
	Time      float64        `json:"time"`
	Landmarks pose.Landmarks `json:"landmarks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[API] encode response: %v", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id} and returns the session with its key moments.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	resp := sessionResponse{Session: sess}
	ms, err := h.store.Moments().GetBySession(id)
	switch {
	case err == nil:
		resp.Moments = &ms
	case !errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusInternalServerError, "Failed to get key moments")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err == nil {
		err = h.store.Sessions().Delete(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	if h.ownsClip(sess.VideoPath) {
		if err := os.Remove(sess.VideoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[API] remove clip %s: %v", sess.VideoPath, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// pose handles GET /api/sessions/{id}/pose?t=<seconds>, which returns the
// stored frame closest to t, and GET /api/sessions/{id}/pose?moment=<name>,
// which returns the frame a key moment was taken from.
func (h *SessionHandler) pose(w http.ResponseWriter, r *http.Request, id string) {
	q := r.URL.Query()
	moment := keymoment.Event(q.Get("moment"))

	var t float64
	if moment == "" {
		var err error
		t, err = strconv.ParseFloat(q.Get("t"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Query parameter t must be a number of seconds")
			return
		}
	}

	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	buf, err := h.store.Frames().GetBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pose frames")
		return
	}

	if moment != "" {
		h.momentPose(w, id, moment, buf.Frames())
		return
	}

	i := buf.Nearest(t)
	if i < 0 {
		writeError(w, http.StatusNotFound, "Session has no pose frames")
		return
	}

	f := buf.At(i)
	writeJSON(w, http.StatusOK, poseResponse{Index: i, Time: f.Time, Landmarks: f.Landmarks})
}

func (h *SessionHandler) momentPose(w http.ResponseWriter, id string, name keymoment.Event, frames []pose.Frame) {
	ms, err := h.store.Moments().GetBySession(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session has no key moments")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get key moments")
		return
	}

	m, ok := ms.Get(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown key moment "+strconv.Quote(string(name)))
		return
	}

	f, ok := keymoment.FrameFor(frames, m)
	if !ok {
		writeError(w, http.StatusNotFound, "Key moment not found in this serve")
		return
	}
	writeJSON(w, http.StatusOK, poseResponse{Index: m.Index, Time: f.Time, Landmarks: f.Landmarks})
}

// ownsClip reports whether path lies inside the recordings directory.
func (h *SessionHandler) ownsClip(path string) bool {
	if h.recordingsDir == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(h.recordingsDir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
