// Package collect drives a recorded clip through a pose detector and gathers
// the resulting landmark frames.
package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ayusman/acecoach/internal/capture"
	"github.com/ayusman/acecoach/internal/detector"
	"github.com/ayusman/acecoach/internal/pose"
)

// DefaultCapacity is the initial buffer size, about ten seconds at 30 fps.
const DefaultCapacity = 300

// Result is the outcome of a collection run.
type Result struct {
	Buffer    *pose.Buffer
	Duration  float64 // clip length in seconds as reported by the player
	Processed int     // frames handed to the detector
	Cancelled bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithPace reads one frame per tick of d. Zero reads as fast as the clip decodes.
func WithPace(d time.Duration) Option {
	return func(c *Collector) {
		c.pace = d
	}
}

// WithCapacity sets the initial buffer capacity.
func WithCapacity(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// Collector runs one pass over a player.
type Collector struct {
	player   capture.Player
	detector detector.Detector
	pace     time.Duration
	capacity int
}

// New creates a Collector. It takes ownership of player and closes it when
// Run returns. The detector stays owned by the caller.
func New(player capture.Player, det detector.Detector, opts ...Option) *Collector {
	c := &Collector{
		player:   player,
		detector: det,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run plays the clip to the end, detecting a pose in each newly presented
// frame. onProgress, if non-nil, receives the percentage of the clip played,
// clamped to [0, 100]; it is called with exactly 100 when playback completes.
//
// Cancelling ctx stops the run and returns what was collected so far with
// Cancelled set and a nil error.
func (c *Collector) Run(ctx context.Context, onProgress func(float64)) (Result, error) {
	defer func() {
		if err := c.player.Close(); err != nil {
			log.Printf("[Collector] close player: %v", err)
		}
	}()

	res := Result{
		Buffer:   pose.NewBuffer(c.capacity),
		Duration: c.player.Duration(),
	}

	progress := func(p float64) {
		if onProgress == nil {
			return
		}
		onProgress(clampPercent(p))
	}

	var tick <-chan time.Time
	if c.pace > 0 {
		ticker := time.NewTicker(c.pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	last := -1.0
	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				res.Cancelled = true
				return res, nil
			case <-tick:
			}
		}

		frame, err := c.player.ReadFrame()
		if errors.Is(err, io.EOF) {
			progress(100)
			log.Printf("[Collector] done: %d frames processed, %d poses", res.Processed, res.Buffer.Len())
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read frame: %w", err)
		}

		// Paused or stalled playback presents the same frame again.
		if frame.Time <= last {
			frame.Close()
			continue
		}
		last = frame.Time

		lm, err := c.detector.Detect(frame.Mat)
		frame.Close()
		res.Processed++
		if err != nil {
			return res, fmt.Errorf("detect pose at %.3fs: %w", frame.Time, err)
		}

		if lm != nil {
			if err := res.Buffer.Append(pose.Frame{Time: frame.Time, Landmarks: *lm}); err != nil {
				return res, err
			}
		}

		if res.Duration > 0 {
			progress(frame.Time / res.Duration * 100)
		} else {
			progress(0)
		}
	}
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
