package keymoment

import (
	"github.com/ayusman/acecoach/internal/pose"
)

// Extractor finds key moments for a player serving with ServingSide.
// The ball is tossed with the opposite hand.
type Extractor struct {
	ServingSide pose.Side
}

// Extract finds the key moments of a right-handed serve.
// frames must be ordered by time; duration is the clip length in seconds.
func Extract(frames []pose.Frame, duration float64) Moments {
	return Extractor{ServingSide: pose.Right}.Extract(frames, duration)
}

// Extract finds the key moments in frames. It has no side effects and
// always returns the same result for the same input.
func (e Extractor) Extract(frames []pose.Frame, duration float64) Moments {
	ms := absent()
	clamp := clampTo(duration)

	if len(frames) == 0 {
		ms[0] = Moment{Name: ServeStart, Time: 0, Index: -1, Found: true}
		return ms
	}

	ms[0] = Moment{Name: ServeStart, Time: clamp(frames[0].Time), Index: 0, Found: true}
	if len(frames) < MinFrames {
		return ms
	}

	tossSide := pose.Left
	if e.ServingSide == pose.Left {
		tossSide = pose.Right
	}

	toss := highestWristFirst(frames, 0, tossSide)
	if toss < 0 {
		return ms
	}
	ms[1] = Moment{Name: TossPeak, Time: clamp(frames[toss].Time), Index: toss, Found: true}

	trophy := firstTrophyPose(frames, toss, e.ServingSide)
	if trophy < 0 {
		return ms
	}
	ms[2] = Moment{Name: TrophyPose, Time: clamp(frames[trophy].Time), Index: trophy, Found: true}

	contact := highestWristLast(frames, trophy, e.ServingSide)
	if contact < 0 {
		return ms
	}
	ms[3] = Moment{Name: ContactPoint, Time: clamp(frames[contact].Time), Index: contact, Found: true}

	return ms
}

// highestWristFirst returns the index of the frame, from start on, where the
// wrist is highest. Ties keep the earliest frame.
func highestWristFirst(frames []pose.Frame, start int, side pose.Side) int {
	best := -1
	for i := start; i < len(frames); i++ {
		if best < 0 || frames[i].Landmarks.Wrist(side).Y < frames[best].Landmarks.Wrist(side).Y {
			best = i
		}
	}
	return best
}

// highestWristLast is highestWristFirst with ties going to the latest frame.
// Toss Peak and Contact Point intentionally keep different tie rules.
func highestWristLast(frames []pose.Frame, start int, side pose.Side) int {
	best := -1
	for i := start; i < len(frames); i++ {
		if best < 0 || frames[i].Landmarks.Wrist(side).Y <= frames[best].Landmarks.Wrist(side).Y {
			best = i
		}
	}
	return best
}

// firstTrophyPose returns the first frame from start on where the serving arm
// is cocked: elbow angle strictly inside the trophy range and wrist above
// elbow. Frames with degenerate arm vectors are skipped.
func firstTrophyPose(frames []pose.Frame, start int, side pose.Side) int {
	for i := start; i < len(frames); i++ {
		lm := &frames[i].Landmarks
		shoulder, elbow, wrist := lm.Shoulder(side), lm.Elbow(side), lm.Wrist(side)

		angle, ok := pose.ElbowAngle(shoulder, elbow, wrist)
		if !ok {
			continue
		}

		if angle > TrophyMinAngle && angle < TrophyMaxAngle && wrist.Y < elbow.Y {
			return i
		}
	}
	return -1
}

func clampTo(duration float64) func(float64) float64 {
	return func(t float64) float64 {
		if duration <= 0 {
			return t
		}
		if t < 0 {
			return 0
		}
		if t > duration {
			return duration
		}
		return t
	}
}
