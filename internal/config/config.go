// Package config loads the acecoach YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/acecoach/internal/detector"
	"github.com/ayusman/acecoach/internal/gesture"
	"github.com/ayusman/acecoach/internal/pose"
)

type Camera struct {
	Device int `yaml:"device"`
	FPS    int `yaml:"fps"`
}

type Recording struct {
	MaxDuration time.Duration `yaml:"max_duration"`
	Dir         string        `yaml:"dir"`
}

type Analysis struct {
	// ServingSide is "right" or "left".
	ServingSide string        `yaml:"serving_side"`
	Pace        time.Duration `yaml:"pace"`
}

type Storage struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
}

type Hooks struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type Server struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
}

type Root struct {
	Camera    Camera          `yaml:"camera"`
	Detector  detector.Config `yaml:"detector"`
	Gesture   gesture.Config  `yaml:"gesture"`
	Recording Recording       `yaml:"recording"`
	Analysis  Analysis        `yaml:"analysis"`
	Storage   Storage         `yaml:"storage"`
	Hooks     Hooks           `yaml:"hooks"`
	Server    Server          `yaml:"server"`

	// source is the file the configuration was read from, empty for defaults.
	source string
}

// Default returns the configuration used when no file is found.
func Default() *Root {
	dataDir := "acecoach-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".acecoach")
	}

	return &Root{
		Camera:    Camera{Device: 0, FPS: 30},
		Detector:  detector.DefaultConfig(),
		Gesture:   gesture.DefaultConfig(),
		Recording: Recording{MaxDuration: 30 * time.Second},
		Analysis:  Analysis{ServingSide: "right"},
		Storage:   Storage{DataDir: dataDir},
		Hooks:     Hooks{Timeout: 5 * time.Second},
		Server:    Server{Addr: "127.0.0.1:8080"},
	}
}

// Candidates lists the files Load tries, in order, when no explicit path is
// given. CONFIG_ENV selects the environment directory and defaults to "dev".
func Candidates() []string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		guess = append(guess, filepath.Join(home, ".acecoach", "config.yaml"))
	}
	return guess
}

// Load reads the configuration from path, or from the first readable
// candidate when path is empty. Values missing from the file keep their
// defaults. With no explicit path and no candidate found, Load returns the
// defaults. The result is validated.
func Load(path string) (*Root, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	} else {
		for _, p := range Candidates() {
			err := cfg.decodeFile(p)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Root) decodeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.source = path
	return nil
}

// fillPaths derives unset file locations from the data directory.
func (c *Root) fillPaths() {
	c.Storage.DataDir = expandHome(c.Storage.DataDir)
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.Storage.DataDir, "acecoach.db")
	}
	if c.Recording.Dir == "" {
		c.Recording.Dir = filepath.Join(c.Storage.DataDir, "recordings")
	}
	if c.Hooks.Dir == "" {
		c.Hooks.Dir = filepath.Join(c.Storage.DataDir, "hooks")
	}
	c.Storage.DBPath = expandHome(c.Storage.DBPath)
	c.Recording.Dir = expandHome(c.Recording.Dir)
	c.Hooks.Dir = expandHome(c.Hooks.Dir)
}

// Validate reports the first invalid setting.
func (c *Root) Validate() error {
	switch {
	case c.Camera.FPS <= 0:
		return fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS)
	case c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 2:
		return fmt.Errorf("detector.model_complexity must be 0, 1 or 2, got %d", c.Detector.ModelComplexity)
	case c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1:
		return fmt.Errorf("detector.min_confidence must be within [0, 1], got %g", c.Detector.MinConfidence)
	case c.Detector.MinTrackingConf < 0 || c.Detector.MinTrackingConf > 1:
		return fmt.Errorf("detector.min_tracking_confidence must be within [0, 1], got %g", c.Detector.MinTrackingConf)
	case c.Gesture.StillnessThreshold <= 0:
		return fmt.Errorf("gesture.stillness_threshold must be positive, got %g", c.Gesture.StillnessThreshold)
	case c.Gesture.RequiredStillFrames <= 0:
		return fmt.Errorf("gesture.required_still_frames must be positive, got %d", c.Gesture.RequiredStillFrames)
	case c.Recording.MaxDuration <= 0:
		return fmt.Errorf("recording.max_duration must be positive, got %s", c.Recording.MaxDuration)
	case c.Analysis.Pace < 0:
		return fmt.Errorf("analysis.pace must not be negative, got %s", c.Analysis.Pace)
	case c.Hooks.Timeout <= 0:
		return fmt.Errorf("hooks.timeout must be positive, got %s", c.Hooks.Timeout)
	case c.Server.Addr == "":
		return errors.New("server.addr must be set")
	}
	if _, err := c.ServingSide(); err != nil {
		return err
	}
	return nil
}

// ServingSide parses Analysis.ServingSide.
func (c *Root) ServingSide() (pose.Side, error) {
	switch strings.ToLower(c.Analysis.ServingSide) {
	case "", "right":
		return pose.Right, nil
	case "left":
		return pose.Left, nil
	}
	return pose.Right, fmt.Errorf("analysis.serving_side must be left or right, got %q", c.Analysis.ServingSide)
}

// Source returns the file the configuration was loaded from, or "" when
// running on defaults.
func (c *Root) Source() string {
	return c.source
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
