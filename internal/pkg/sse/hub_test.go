package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesTopicSubscribers(t *testing.T) {
	hub := NewHub(4)

	events, cleanup := hub.Subscribe("attendance")
	defer cleanup()
	other, cleanupOther := hub.Subscribe("payroll")
	defer cleanupOther()

	hub.Publish(Event{Topic: "attendance", Event: "record.created", Data: "W-1"})

	select {
	case ev := <-events:
		assert.Equal(t, "record.created", ev.Event)
		assert.Equal(t, "W-1", ev.Data)
	default:
		t.Fatal("expected an event on the attendance topic")
	}

	select {
	case <-other:
		t.Fatal("payroll subscriber must not receive attendance events")
	default:
	}
}

func TestHub_CleanupRemovesSubscriber(t *testing.T) {
	hub := NewHub(1)

	events, cleanup := hub.Subscribe("attendance")
	require.Equal(t, 1, hub.SubscriberCount("attendance"))

	cleanup()
	cleanup()

	assert.Equal(t, 0, hub.SubscriberCount("attendance"))
	_, open := <-events
	assert.False(t, open)
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := NewHub(1)
	events, cleanup := hub.Subscribe("attendance")
	defer cleanup()

	hub.Publish(Event{Topic: "attendance", Event: "first"})
	hub.Publish(Event{Topic: "attendance", Event: "second"})

	ev := <-events
	assert.Equal(t, "first", ev.Event)
	assert.Len(t, events, 0)
}
