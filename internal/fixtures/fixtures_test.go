package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/acecoach/internal/keymoment"
	"github.com/ayusman/acecoach/internal/pose"
)

func TestServe(t *testing.T) {
	clip, err := Serve()
	require.NoError(t, err)

	assert.Equal(t, 30, clip.FPS)
	require.Len(t, clip.Frames, 20)
	assert.Len(t, clip.Times(), 20)

	seq := clip.Sequence()
	assert.Nil(t, seq[16], "frame 16 has no body")
	assert.Len(t, clip.Poses(), 19)

	times := clip.Times()
	for i := 1; i < len(times); i++ {
		assert.Greater(t, times[i], times[i-1])
	}
}

func TestServe_ExpectedMoments(t *testing.T) {
	clip, err := Serve()
	require.NoError(t, err)

	ms := keymoment.Extractor{ServingSide: pose.Right}.Extract(clip.Poses(), clip.Duration)

	require.Len(t, clip.Expected, len(keymoment.Events))
	for i, ev := range keymoment.Events {
		want, ok := clip.Expected[ev]
		require.True(t, ok, "expected index for %s", ev)
		assert.True(t, ms[i].Found, "%s found", ev)
		assert.Equal(t, want, ms[i].Index, "%s index", ev)
	}
}

func TestLoadClip_Missing(t *testing.T) {
	_, err := LoadClip("volley")
	assert.Error(t, err)
}
