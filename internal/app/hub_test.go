package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/acecoach/internal/gesture"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()

	a, unsubA := hub.Subscribe(4)
	b, unsubB := hub.Subscribe(4)
	defer unsubB()
	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(Event{Type: EventStatus, Status: StatusArmed})

	ev := <-a
	assert.Equal(t, StatusArmed, ev.Status)
	assert.False(t, ev.Time.IsZero(), "publish stamps the event")
	assert.Equal(t, StatusArmed, (<-b).Status)

	unsubA()
	unsubA() // idempotent
	_, open := <-a
	assert.False(t, open, "unsubscribe closes the channel")
	assert.Equal(t, 1, hub.SubscriberCount())
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub()
	ch, unsub := hub.Subscribe(1)
	defer unsub()

	hub.Publish(Event{Type: EventProgress, Progress: 10})
	hub.Publish(Event{Type: EventProgress, Progress: 20})

	assert.Equal(t, 10.0, (<-ch).Progress)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	ch, unsub := hub.Subscribe(0)

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount())

	unsub() // safe after Close
}

func TestEvent_JSON(t *testing.T) {
	st := gesture.StateLocked
	data, err := json.Marshal(Event{Type: EventGesture, Gesture: &st})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "gesture", got["type"])
	assert.Equal(t, "locked", got["gesture"])
	assert.NotContains(t, got, "status")
	assert.NotContains(t, got, "session_id")
}
