package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	toss := 0.5
	got := summarize(Request{
		SessionID: "abc",
		Duration:  1.25,
		Moments: []Moment{
			{Name: "Toss Peak", Time: &toss},
			{Name: "Trophy Pose"},
		},
	})
	assert.Equal(t, "abc (1.25s): Toss Peak=0.50s Trophy Pose=-", got)
}
