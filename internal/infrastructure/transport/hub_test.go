package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iacgenius/app/usecase"
)

func TestEventHubFanOut(t *testing.T) {
	hub := NewEventHub()

	a := hub.Subscribe("s1")
	b := hub.Subscribe("s1")
	other := hub.Subscribe("s2")

	hub.Publish(usecase.SessionEvent{SessionID: "s1", Type: "generated"})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Len(t, other, 0, "events stay within their session")

	hub.Unsubscribe("s1", a)
	ev, open := <-a
	require.True(t, open, "the buffered event drains before the close")
	assert.Equal(t, "generated", ev.Type)
	_, open = <-a
	assert.False(t, open, "unsubscribe closes the channel")

	// Publishing after a partial unsubscribe still reaches the rest.
	hub.Publish(usecase.SessionEvent{SessionID: "s1", Type: "stopped"})
	assert.Len(t, b, 2)
}

func TestEventHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe("s1")

	for i := 0; i < cap(ch)+5; i++ {
		hub.Publish(usecase.SessionEvent{SessionID: "s1", Type: "generated"})
	}
	assert.Len(t, ch, cap(ch), "slow consumers lose events instead of blocking")
}
