package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func framesAt(times ...float64) []Frame {
	frames := make([]Frame, len(times))
	for i, t := range times {
		frames[i] = Frame{Time: t}
	}
	return frames
}

func TestBuffer_Append(t *testing.T) {
	t.Run("accepts non-decreasing times", func(t *testing.T) {
		var b Buffer
		for _, f := range framesAt(0, 0.033, 0.033, 0.1) {
			require.NoError(t, b.Append(f))
		}
		assert.Equal(t, 4, b.Len())
		assert.InDelta(t, 0.1, b.At(3).Time, epsilon)
	})

	t.Run("rejects a frame earlier than the last", func(t *testing.T) {
		b := NewBuffer(2)
		require.NoError(t, b.Append(Frame{Time: 1.0}))

		err := b.Append(Frame{Time: 0.5})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfOrder))
		assert.Equal(t, 1, b.Len())
	})

	t.Run("nil buffer reports empty", func(t *testing.T) {
		var b *Buffer
		assert.Equal(t, 0, b.Len())
		assert.Nil(t, b.Frames())
		assert.Equal(t, -1, b.Nearest(1))
	})
}

func TestNearestIndex(t *testing.T) {
	frames := framesAt(0.0, 0.1, 0.2, 0.2, 0.4)

	tests := []struct {
		name string
		t    float64
		want int
	}{
		{name: "before first frame", t: -1, want: 0},
		{name: "after last frame", t: 9, want: 4},
		{name: "exact match", t: 0.1, want: 1},
		{name: "closer to later frame", t: 0.17, want: 2},
		{name: "closer to earlier frame", t: 0.12, want: 1},
		{name: "midpoint ties resolve to earlier", t: 0.05, want: 0},
		{name: "duplicate times resolve to first of run", t: 0.2, want: 2},
		{name: "tie after duplicate run resolves to first of run", t: 0.3, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestIndex(frames, tt.t))
		})
	}

	t.Run("empty slice", func(t *testing.T) {
		assert.Equal(t, -1, NearestIndex(nil, 0))
	})
}

func TestDistance2D(t *testing.T) {
	a := Landmark{X: 0.1, Y: 0.1, Z: 5}
	b := Landmark{X: 0.4, Y: 0.5, Z: -5}

	// Depth is ignored.
	assert.InDelta(t, 0.5, Distance2D(a, b), epsilon)
	assert.InDelta(t, 0.0, Distance2D(a, a), epsilon)
}

func TestElbowAngle(t *testing.T) {
	elbow := Landmark{X: 0.5, Y: 0.5}

	tests := []struct {
		name     string
		shoulder Landmark
		wrist    Landmark
		want     float64
	}{
		{
			name:     "right angle",
			shoulder: Landmark{X: 0.4, Y: 0.5},
			wrist:    Landmark{X: 0.5, Y: 0.3},
			want:     90,
		},
		{
			name:     "straight arm",
			shoulder: Landmark{X: 0.3, Y: 0.5},
			wrist:    Landmark{X: 0.7, Y: 0.5},
			want:     180,
		},
		{
			name:     "folded arm",
			shoulder: Landmark{X: 0.3, Y: 0.5},
			wrist:    Landmark{X: 0.4, Y: 0.5},
			want:     0,
		},
		{
			name:     "depth does not change the angle",
			shoulder: Landmark{X: 0.4, Y: 0.5, Z: 0.9},
			wrist:    Landmark{X: 0.5, Y: 0.3, Z: -0.9},
			want:     90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ElbowAngle(tt.shoulder, elbow, tt.wrist)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}

	t.Run("zero length vector is rejected", func(t *testing.T) {
		_, ok := ElbowAngle(Landmark{X: 0.4, Y: 0.4}, elbow, elbow)
		assert.False(t, ok)

		_, ok = ElbowAngle(elbow, elbow, Landmark{X: 0.4, Y: 0.4})
		assert.False(t, ok)
	})

	t.Run("result stays within range", func(t *testing.T) {
		got, ok := ElbowAngle(Landmark{X: 0.1, Y: 0.9}, Landmark{X: 0.2, Y: 0.8}, Landmark{X: 0.3, Y: 0.7})
		require.True(t, ok)
		assert.False(t, math.IsNaN(got))
		assert.InDelta(t, 180, got, 1e-3)
	})
}

func TestLandmarks_SideAccessors(t *testing.T) {
	var lm Landmarks
	lm[LeftWrist] = Landmark{X: 1}
	lm[RightWrist] = Landmark{X: 2}
	lm[LeftElbow] = Landmark{X: 3}
	lm[RightElbow] = Landmark{X: 4}
	lm[LeftShoulder] = Landmark{X: 5}
	lm[RightShoulder] = Landmark{X: 6}

	assert.Equal(t, 1.0, lm.Wrist(Left).X)
	assert.Equal(t, 2.0, lm.Wrist(Right).X)
	assert.Equal(t, 3.0, lm.Elbow(Left).X)
	assert.Equal(t, 4.0, lm.Elbow(Right).X)
	assert.Equal(t, 5.0, lm.Shoulder(Left).X)
	assert.Equal(t, 6.0, lm.Shoulder(Right).X)
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
}
