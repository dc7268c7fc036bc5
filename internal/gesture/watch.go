package gesture

import (
	"context"
	"log"
	"time"

	"github.com/ayusman/acecoach/internal/pose"
)

// LandmarkSource yields the most recent detection from a live feed.
// A nil result with a nil error means no body is visible.
type LandmarkSource interface {
	NextLandmarks() (*pose.Landmarks, error)
}

// LandmarkSourceFunc adapts a function to LandmarkSource.
type LandmarkSourceFunc func() (*pose.Landmarks, error)

// NextLandmarks calls f.
func (f LandmarkSourceFunc) NextLandmarks() (*pose.Landmarks, error) {
	return f()
}

// Watch drives d from src, pulling one detection per tick, and sends every
// state transition on the returned channel. The channel is closed after the
// locked transition has been delivered, when ctx is cancelled, or when
// ticks is closed.
//
// Source errors are logged and treated as an empty scene, so an unavailable
// source keeps the trigger idle and can never lock it.
func Watch(ctx context.Context, src LandmarkSource, ticks <-chan time.Time, d *Detector) <-chan State {
	out := make(chan State, 1)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
			}

			lm, err := src.NextLandmarks()
			if err != nil {
				log.Printf("[Gesture] landmark source error: %v", err)
				lm = nil
			}

			state, changed := d.Update(lm)
			if changed {
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			}

			if state == StateLocked {
				return
			}
		}
	}()

	return out
}
