package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/acecoach/internal/pose"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	cfg.fillPaths()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30, cfg.Camera.FPS)
	assert.Equal(t, 0.02, cfg.Gesture.StillnessThreshold)
	assert.Equal(t, 120, cfg.Gesture.RequiredStillFrames)
	assert.Equal(t, 30*time.Second, cfg.Recording.MaxDuration)
	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "acecoach.db"), cfg.Storage.DBPath)
	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "recordings"), cfg.Recording.Dir)
	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "hooks"), cfg.Hooks.Dir)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
camera:
  device: 2
  fps: 60
detector:
  model_complexity: 2
  min_confidence: 0.7
gesture:
  stillness_threshold: 0.03
  required_still_frames: 90
recording:
  max_duration: 45s
analysis:
  serving_side: left
  pace: 10ms
storage:
  data_dir: /var/lib/acecoach
hooks:
  timeout: 2s
server:
  addr: ":9000"
  web_dir: ./web
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source())
	assert.Equal(t, 2, cfg.Camera.Device)
	assert.Equal(t, 60, cfg.Camera.FPS)
	assert.Equal(t, 2, cfg.Detector.ModelComplexity)
	assert.Equal(t, 0.7, cfg.Detector.MinConfidence)
	assert.Equal(t, 0.5, cfg.Detector.MinTrackingConf, "unset keys keep defaults")
	assert.Equal(t, 0.03, cfg.Gesture.StillnessThreshold)
	assert.Equal(t, 90, cfg.Gesture.RequiredStillFrames)
	assert.Equal(t, 45*time.Second, cfg.Recording.MaxDuration)
	assert.Equal(t, 10*time.Millisecond, cfg.Analysis.Pace)
	assert.Equal(t, "/var/lib/acecoach/acecoach.db", cfg.Storage.DBPath)
	assert.Equal(t, "/var/lib/acecoach/recordings", cfg.Recording.Dir)
	assert.Equal(t, 2*time.Second, cfg.Hooks.Timeout)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "./web", cfg.Server.WebDir)

	side, err := cfg.ServingSide()
	require.NoError(t, err)
	assert.Equal(t, pose.Left, side)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Camera, cfg.Camera)
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "camera:\n  fsp: 30\n"))
	assert.Error(t, err)
}

func TestLoad_Candidates(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Source(), "no candidate found, running on defaults")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config", "test"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "test", "config.yaml"), []byte("camera:\n  fps: 15\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("camera:\n  fps: 5\n"), 0644))

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("config", "test", "config.yaml"), cfg.Source())
	assert.Equal(t, 15, cfg.Camera.FPS, "environment file wins over the working directory file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Root)
	}{
		{"zero fps", func(c *Root) { c.Camera.FPS = 0 }},
		{"model complexity", func(c *Root) { c.Detector.ModelComplexity = 3 }},
		{"confidence", func(c *Root) { c.Detector.MinConfidence = 1.5 }},
		{"tracking confidence", func(c *Root) { c.Detector.MinTrackingConf = -0.1 }},
		{"threshold", func(c *Root) { c.Gesture.StillnessThreshold = 0 }},
		{"frames", func(c *Root) { c.Gesture.RequiredStillFrames = -1 }},
		{"max duration", func(c *Root) { c.Recording.MaxDuration = 0 }},
		{"pace", func(c *Root) { c.Analysis.Pace = -time.Second }},
		{"hook timeout", func(c *Root) { c.Hooks.Timeout = 0 }},
		{"addr", func(c *Root) { c.Server.Addr = "" }},
		{"serving side", func(c *Root) { c.Analysis.ServingSide = "both" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "data"), expandHome("~/data"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "rel/~x", expandHome("rel/~x"))
}
