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
)

// installHook writes a hook directory with a manifest and script under root.
func installHook(t *testing.T, root string, m Manifest, script string) {
	t.Helper()

	dir := filepath.Join(root, m.Name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644))

	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, m.Executable), []byte("#!/bin/sh\n"+script), 0755))
	}
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	installHook(t, root, Manifest{
		Name:        "notify",
		Version:     "1.0.0",
		Description: "A test hook",
		Executable:  "run",
		Events:      []Event{EventSessionAnalyzed},
	}, "")

	mgr := NewManager(root)
	require.NoError(t, mgr.Discover())

	hooks := mgr.List()
	require.Len(t, hooks, 1)

	h := hooks[0]
	assert.Equal(t, "notify", h.Manifest.Name)
	assert.Equal(t, "1.0.0", h.Manifest.Version)
	assert.Equal(t, filepath.Join(root, "notify"), h.Path)
	assert.Equal(t, filepath.Join(root, "notify", "run"), h.Executable)
	assert.True(t, h.Handles(EventSessionAnalyzed))
	assert.False(t, h.Handles("session.deleted"))

	got, err := mgr.Get("notify")
	require.NoError(t, err)
	assert.Same(t, h, got)
	assert.Equal(t, root, mgr.HooksDir())
}

func TestManager_Discover_Skips(t *testing.T) {
	root := t.TempDir()

	// no manifest
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	// invalid JSON
	bad := filepath.Join(root, "bad")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, ManifestFile), []byte("{"), 0644))

	// missing executable
	installHook(t, root, Manifest{Name: "noexec"}, "")

	// plain file at the top level
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("hi"), 0644))

	installHook(t, root, Manifest{Name: "good", Executable: "run"}, "")

	mgr := NewManager(root)
	require.NoError(t, mgr.Discover())

	hooks := mgr.List()
	require.Len(t, hooks, 1)
	assert.Equal(t, "good", hooks[0].Manifest.Name)
}

func TestManager_Discover_MissingDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, mgr.Discover())
	assert.Empty(t, mgr.List())
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	installHook(t, root, Manifest{Name: "a", Executable: "run"}, "")

	mgr := NewManager(root)
	require.NoError(t, mgr.Discover())
	require.Len(t, mgr.List(), 1)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "a")))
	require.NoError(t, mgr.Discover())
	assert.Empty(t, mgr.List(), "rediscovery replaces the known set")
}

func TestManager_Get_NotFound(t *testing.T) {
	mgr := NewManager(t.TempDir())
	_, err := mgr.Get("ghost")
	assert.ErrorIs(t, err, ErrHookNotFound)
}

func TestManager_Subscribers(t *testing.T) {
	root := t.TempDir()
	installHook(t, root, Manifest{Name: "zeta", Executable: "run", Events: []Event{EventSessionAnalyzed}}, "")
	installHook(t, root, Manifest{Name: "alpha", Executable: "run", Events: []Event{EventSessionAnalyzed}}, "")
	installHook(t, root, Manifest{Name: "other", Executable: "run", Events: []Event{"session.deleted"}}, "")

	mgr := NewManager(root)
	require.NoError(t, mgr.Discover())

	subs := mgr.Subscribers(EventSessionAnalyzed)
	require.Len(t, subs, 2)
	assert.Equal(t, "alpha", subs[0].Manifest.Name)
	assert.Equal(t, "zeta", subs[1].Manifest.Name)
}

func TestManager_Fire(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "seen")

	installHook(t, root, Manifest{Name: "broken", Executable: "run.sh", Events: []Event{EventSessionAnalyzed}},
		`echo '{"success":false,"error":"nope"}'
`)
	installHook(t, root, Manifest{Name: "writer", Executable: "run.sh", Events: []Event{EventSessionAnalyzed}},
		`cat > "`+out+`"
echo '{"success":true}'
`)

	mgr := NewManager(root)
	require.NoError(t, mgr.Discover())

	err := mgr.Fire(context.Background(), NewExecutor(5*time.Second), *analyzedRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook broken")
	assert.Contains(t, err.Error(), "nope")

	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr, "a failing hook does not stop the others")
	assert.Contains(t, string(data), `"session_id":"s-1"`)
}

func TestManager_Fire_NoSubscribers(t *testing.T) {
	mgr := NewManager(t.TempDir())
	require.NoError(t, mgr.Discover())
	assert.NoError(t, mgr.Fire(context.Background(), NewExecutor(0), *analyzedRequest()))
}
