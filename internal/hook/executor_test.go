package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/acecoach/internal/keymoment"
)

// writeHook creates an executable shell script hook in a fresh directory.
func writeHook(t *testing.T, name, script string) *Hook {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))

	return &Hook{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Events:     []Event{EventSessionAnalyzed},
		},
		Path:       dir,
		Executable: path,
	}
}

func analyzedRequest() *Request {
	return &Request{
		Event:     EventSessionAnalyzed,
		SessionID: "s-1",
		VideoPath: "/data/s-1.avi",
		Duration:  1.5,
		Moments:   keymoment.Extract(nil, 0),
	}
}

func TestExecutor_Execute(t *testing.T) {
	h := writeHook(t, "ok", `echo '{"success":true,"data":{"message":"hello"}}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, analyzedRequest())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.JSONEq(t, `{"message":"hello"}`, string(resp.Data))
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	h := writeHook(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)
	h.Manifest.Config = json.RawMessage(`{"threshold":3}`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, analyzedRequest())
	require.NoError(t, err)
	require.True(t, resp.Success)

	var got struct {
		Event     Event            `json:"event"`
		SessionID string           `json:"session_id"`
		Duration  float64          `json:"duration"`
		Moments   []map[string]any `json:"moments"`
		Config    map[string]any   `json:"config"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &got))

	assert.Equal(t, EventSessionAnalyzed, got.Event)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, 1.5, got.Duration)
	require.Len(t, got.Moments, 4)
	assert.Equal(t, "Serve Start", got.Moments[0]["name"])
	assert.Nil(t, got.Moments[1]["time"], "absent moments are null")
	assert.Equal(t, float64(3), got.Config["threshold"], "manifest config is forwarded")
}

func TestExecutor_Timeout(t *testing.T) {
	h := writeHook(t, "slow", `exec sleep 10
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), h, analyzedRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutor_ContextCancelled(t *testing.T) {
	h := writeHook(t, "slow", `exec sleep 10
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5*time.Second).Execute(ctx, h, analyzedRequest())
	assert.Error(t, err)
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	h := writeHook(t, "fails", `echo '{"success":false,"error":"something went wrong"}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, analyzedRequest())
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "something went wrong", resp.Error)
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	h := writeHook(t, "crash", `echo "bad things" >&2
exit 3
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, analyzedRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad things")
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	h := writeHook(t, "garbage", `echo 'not json'
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, analyzedRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse hook response")
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewExecutor(0).Timeout())
	assert.Equal(t, time.Second, NewExecutor(time.Second).Timeout())
}
