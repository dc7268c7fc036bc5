package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/acecoach/internal/app"
)

// Controller is the part of app.Controller driven over HTTP.
type Controller interface {
	Status() app.Status
	Arm() error
	Disarm()
	Stop() bool
}

// ControlHandler handles POST /api/arm, /api/disarm and /api/stop.
type ControlHandler struct {
	ctrl Controller
}

// NewControlHandler creates a new ControlHandler for ctrl.
func NewControlHandler(ctrl Controller) *ControlHandler {
	return &ControlHandler{ctrl: ctrl}
}

type statusResponse struct {
	Status app.Status `json:"status"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/") {
	case "arm":
		if err := h.ctrl.Arm(); err != nil {
			if errors.Is(err, app.ErrAlreadyArmed) {
				writeError(w, http.StatusConflict, "Already armed")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case "disarm":
		h.ctrl.Disarm()
	case "stop":
		if !h.ctrl.Stop() {
			writeError(w, http.StatusConflict, "Not recording")
			return
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: h.ctrl.Status()})
}
