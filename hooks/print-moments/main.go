// Package main provides a hook that logs the key moments of each analyzed
// serve to moments.log in the hook directory.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Request represents the input from the hook executor.
type Request struct {
	Event     string   `json:"event"`
	SessionID string   `json:"session_id"`
	VideoPath string   `json:"video_path"`
	Duration  float64  `json:"duration"`
	Moments   []Moment `json:"moments"`
}

// Moment is one key moment; Time is nil when it was not found.
type Moment struct {
	Name  string   `json:"name"`
	Time  *float64 `json:"time"`
	Frame *int     `json:"frame_index"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "session.analyzed" {
		writeErrorResponse(fmt.Sprintf("unsupported event: %s", req.Event))
		return
	}

	line := summarize(req)
	if err := appendLine("moments.log", line); err != nil {
		writeErrorResponse(fmt.Sprintf("write log: %v", err))
		return
	}

	data, _ := json.Marshal(map[string]string{"summary": line})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// summarize formats the moments as "session: Name=1.23s Name=- ...".
func summarize(req Request) string {
	parts := make([]string, 0, len(req.Moments))
	for _, m := range req.Moments {
		if m.Time == nil {
			parts = append(parts, m.Name+"=-")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%.2fs", m.Name, *m.Time))
	}
	return fmt.Sprintf("%s (%.2fs): %s", req.SessionID, req.Duration, strings.Join(parts, " "))
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintln(f, line)
	return err
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}
