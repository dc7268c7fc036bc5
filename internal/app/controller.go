// Package app ties the live gesture trigger, clip recording and offline
// key-moment analysis together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/acecoach/internal/capture"
	"github.com/ayusman/acecoach/internal/collect"
	"github.com/ayusman/acecoach/internal/detector"
	"github.com/ayusman/acecoach/internal/gesture"
	"github.com/ayusman/acecoach/internal/hook"
	"github.com/ayusman/acecoach/internal/keymoment"
	"github.com/ayusman/acecoach/internal/pose"
	"github.com/ayusman/acecoach/internal/store"
)

// Status is the controller's position in its arm/record/analyze cycle.
type Status string

const (
	StatusDisarmed  Status = "disarmed"
	StatusArmed     Status = "armed"
	StatusRecording Status = "recording"
	StatusAnalyzing Status = "analyzing"
)

// DefaultMaxRecording bounds a recording when Config.MaxRecording is unset.
const DefaultMaxRecording = 30 * time.Second

// ErrAlreadyArmed is returned by Arm when the pipeline is running.
var ErrAlreadyArmed = errors.New("controller already armed")

// FrameWriter receives the frames of a recording.
type FrameWriter interface {
	Write(f capture.Frame) error
	Path() string
	Close() error
}

// Config holds the controller's collaborators and settings.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Store    *store.Store // optional
	Hooks    *hook.Manager
	HookExec *hook.Executor

	// AnalysisDetector runs the offline pass so the live tracker state
	// never carries into a clip; defaults to Detector.
	AnalysisDetector detector.Detector

	Gesture       gesture.Config
	RecordingsDir string
	MaxRecording  time.Duration
	ServingSide   pose.Side
	AnalysisPace  time.Duration

	// OpenPlayer opens a recorded clip; defaults to capture.OpenFile.
	OpenPlayer func(path string) (capture.Player, error)
	// NewRecorder creates the writer for a new clip; defaults to capture.NewRecorder.
	NewRecorder func(path string, fps, width, height int) (FrameWriter, error)
}

// Analysis is the result of analyzing one clip.
type Analysis struct {
	Session *store.Session
	Moments keymoment.Moments
	Buffer  *pose.Buffer
}

// Controller arms the raised-hand trigger on the live camera, records a
// clip between triggers and analyzes it.
type Controller struct {
	cfg Config
	hub *Hub

	mu      sync.Mutex
	status  Status
	cancel  context.CancelFunc
	done    chan struct{}
	stopRec context.CancelFunc

	// analyzeMu keeps one analysis running at a time.
	analyzeMu sync.Mutex
}

// New creates a disarmed Controller.
func New(cfg Config) *Controller {
	if cfg.MaxRecording <= 0 {
		cfg.MaxRecording = DefaultMaxRecording
	}
	if cfg.OpenPlayer == nil {
		cfg.OpenPlayer = capture.OpenFile
	}
	if cfg.NewRecorder == nil {
		cfg.NewRecorder = func(path string, fps, width, height int) (FrameWriter, error) {
			return capture.NewRecorder(path, fps, width, height)
		}
	}
	if cfg.HookExec == nil {
		cfg.HookExec = hook.NewExecutor(hook.DefaultTimeout)
	}
	if cfg.AnalysisDetector == nil {
		cfg.AnalysisDetector = cfg.Detector
	}

	return &Controller{
		cfg:    cfg,
		hub:    NewHub(),
		status: StatusDisarmed,
	}
}

// Hub returns the hub the controller publishes events on.
func (c *Controller) Hub() *Hub {
	return c.hub
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsArmed reports whether the pipeline is running.
func (c *Controller) IsArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()

	if changed {
		log.Printf("[Controller] %s", s)
		c.hub.Publish(Event{Type: EventStatus, Status: s})
	}
}

// Arm opens the camera and starts watching for the raised-hand trigger.
func (c *Controller) Arm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyArmed
	}
	if c.cfg.Camera == nil || c.cfg.Detector == nil {
		return errors.New("controller needs a camera and a detector to arm")
	}

	if err := c.cfg.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)

	return nil
}

// Disarm halts the pipeline and releases the camera and the detector. A
// recording in progress is closed but not analyzed. It blocks until the
// pipeline exits.
func (c *Controller) Disarm() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if err := c.cfg.Camera.Close(); err != nil {
		log.Printf("[Controller] close camera: %v", err)
	}
	if err := c.cfg.Detector.Close(); err != nil {
		log.Printf("[Controller] close detector: %v", err)
	}

	c.setStatus(StatusDisarmed)
}

// Stop ends the recording in progress, which is then analyzed. It reports
// whether a recording was running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	stop := c.stopRec
	c.mu.Unlock()

	if stop == nil {
		return false
	}
	stop()
	return true
}

// run is the pipeline loop: armed until the trigger locks, then recording
// until it locks again, is stopped or times out, then analyzing. A pose
// source that becomes unavailable ends the loop and disarms.
func (c *Controller) run(parent context.Context, done chan struct{}) {
	defer close(done)

	ctx, halt := context.WithCancel(parent)
	defer halt()

	src := &liveSource{camera: c.cfg.Camera, detector: c.cfg.Detector, halt: halt}
	trigger := gesture.New(c.cfg.Gesture)

	defer func() {
		err := src.failure()
		if err == nil || parent.Err() != nil {
			return
		}
		log.Printf("[Controller] pose source failed, disarming: %v", err)
		c.hub.Publish(Event{Type: EventError, Error: err.Error()})
		go c.Disarm()
	}()

	for ctx.Err() == nil {
		c.setStatus(StatusArmed)
		trigger.Reset()

		if !c.watch(ctx, src, trigger) {
			return
		}

		id := uuid.New().String()
		path, err := c.record(ctx, id, src, trigger)
		if err != nil {
			log.Printf("[Controller] recording failed: %v", err)
			c.hub.Publish(Event{Type: EventError, Error: err.Error()})
			continue
		}
		if ctx.Err() != nil {
			log.Printf("[Controller] disarmed while recording, keeping %s unanalyzed", path)
			return
		}

		c.setStatus(StatusAnalyzing)
		if _, err := c.analyze(ctx, id, path); err != nil {
			log.Printf("[Controller] analysis of %s failed: %v", path, err)
			c.hub.Publish(Event{Type: EventError, SessionID: id, Error: err.Error()})
		}
	}
}

// watch feeds the trigger from the live source until it locks. It returns
// false when ctx ended first.
func (c *Controller) watch(ctx context.Context, src gesture.LandmarkSource, trigger *gesture.Detector) bool {
	ticker := time.NewTicker(c.frameInterval())
	defer ticker.Stop()

	locked := false
	for st := range gesture.Watch(ctx, src, ticker.C, trigger) {
		c.publishGesture(st)
		if st == gesture.StateLocked {
			locked = true
		}
	}
	return locked
}

// record writes live frames to a new clip until the trigger locks again,
// Stop is called, MaxRecording elapses or ctx ends.
func (c *Controller) record(ctx context.Context, id string, src *liveSource, trigger *gesture.Detector) (string, error) {
	if err := os.MkdirAll(c.cfg.RecordingsDir, 0755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}

	path := filepath.Join(c.cfg.RecordingsDir, id+".avi")
	w, h := c.cfg.Camera.Size()
	rec, err := c.cfg.NewRecorder(path, c.cfg.Camera.FPS(), w, h)
	if err != nil {
		return "", err
	}

	recCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxRecording)
	defer cancel()

	c.mu.Lock()
	c.stopRec = cancel
	c.mu.Unlock()

	src.setRecorder(rec)
	trigger.Reset()
	c.setStatus(StatusRecording)
	log.Printf("[Controller] recording to %s", path)

	relocked := c.watch(recCtx, src, trigger)

	c.mu.Lock()
	c.stopRec = nil
	c.mu.Unlock()
	src.setRecorder(nil)

	switch {
	case relocked:
		log.Printf("[Controller] recording stopped by gesture")
	case errors.Is(recCtx.Err(), context.DeadlineExceeded):
		log.Printf("[Controller] recording reached %s limit", c.cfg.MaxRecording)
	default:
		log.Printf("[Controller] recording stopped")
	}

	if err := rec.Close(); err != nil {
		return path, fmt.Errorf("finalize recording: %w", err)
	}
	return path, nil
}

// Analyze runs the offline pass over an existing clip and stores the
// result as a new session.
func (c *Controller) Analyze(ctx context.Context, path string) (*Analysis, error) {
	return c.analyze(ctx, uuid.New().String(), path)
}

func (c *Controller) analyze(ctx context.Context, id, path string) (*Analysis, error) {
	c.analyzeMu.Lock()
	defer c.analyzeMu.Unlock()

	if c.cfg.AnalysisDetector == nil {
		return nil, errors.New("no pose detector configured")
	}

	player, err := c.cfg.OpenPlayer(path)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := collect.New(player, c.cfg.AnalysisDetector, collect.WithPace(c.cfg.AnalysisPace)).
		Run(ctx, func(p float64) {
			c.hub.Publish(Event{Type: EventProgress, SessionID: id, Progress: p})
		})
	if err != nil {
		return nil, fmt.Errorf("collect poses: %w", err)
	}
	if res.Cancelled {
		return nil, fmt.Errorf("analysis of %s cancelled: %w", path, ctx.Err())
	}

	frames := res.Buffer.Frames()
	moments := keymoment.Extractor{ServingSide: c.cfg.ServingSide}.Extract(frames, res.Duration)
	log.Printf("[Controller] analyzed %s: %d poses in %s", path, len(frames), time.Since(started).Round(time.Millisecond))

	sess := &store.Session{
		ID:         id,
		VideoPath:  path,
		Duration:   res.Duration,
		FrameCount: len(frames),
	}
	if err := c.persist(sess, moments, frames); err != nil {
		return nil, err
	}

	if c.cfg.Hooks != nil {
		req := hook.Request{
			Event:     hook.EventSessionAnalyzed,
			SessionID: sess.ID,
			VideoPath: sess.VideoPath,
			Duration:  sess.Duration,
			Moments:   moments,
		}
		if err := c.cfg.Hooks.Fire(ctx, c.cfg.HookExec, req); err != nil {
			log.Printf("[Controller] hooks: %v", err)
		}
	}

	c.hub.Publish(Event{Type: EventSession, SessionID: sess.ID})
	return &Analysis{Session: sess, Moments: moments, Buffer: res.Buffer}, nil
}

func (c *Controller) persist(sess *store.Session, moments keymoment.Moments, frames []pose.Frame) error {
	if c.cfg.Store == nil {
		return nil
	}

	if err := c.cfg.Store.Sessions().Create(sess); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := c.cfg.Store.Moments().Save(sess.ID, moments); err != nil {
		c.rollback(sess.ID)
		return fmt.Errorf("store moments: %w", err)
	}
	if err := c.cfg.Store.Frames().Save(sess.ID, frames); err != nil {
		c.rollback(sess.ID)
		return fmt.Errorf("store frames: %w", err)
	}
	return nil
}

// rollback removes a session whose moments or frames could not be stored.
func (c *Controller) rollback(id string) {
	if err := c.cfg.Store.Sessions().Delete(id); err != nil {
		log.Printf("[Controller] roll back session %s: %v", id, err)
	}
}

func (c *Controller) publishGesture(st gesture.State) {
	c.hub.Publish(Event{Type: EventGesture, Gesture: &st})
}

func (c *Controller) frameInterval() time.Duration {
	fps := c.cfg.Camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// liveSource reads camera frames, tees them to the active recorder and
// detects a pose in each. When the detector reports its source
// unavailable, liveSource keeps the error and calls halt.
type liveSource struct {
	camera   capture.Camera
	detector detector.Detector
	halt     context.CancelFunc

	mu     sync.Mutex
	rec    FrameWriter
	failed error
}

func (s *liveSource) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *liveSource) setRecorder(rec FrameWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
}

func (s *liveSource) NextLandmarks() (*pose.Landmarks, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	s.mu.Lock()
	rec := s.rec
	s.mu.Unlock()

	if rec != nil {
		if err := rec.Write(frame); err != nil {
			log.Printf("[Controller] write frame: %v", err)
		}
	}

	lm, err := s.detector.Detect(frame.Mat)
	if errors.Is(err, detector.ErrSourceUnavailable) {
		s.mu.Lock()
		first := s.failed == nil
		if first {
			s.failed = err
		}
		s.mu.Unlock()
		if first && s.halt != nil {
			s.halt()
		}
	}
	return lm, err
}
