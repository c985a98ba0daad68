// file: internal/search/events_test.go
// version: 1.0.0
// guid: 3f7a0c58-e2d4-4916-b07e-9c4d1a6f8b52

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConsumeOnce(t *testing.T) {
	ev := newEvent(EventFinished, 1)
	assert.False(t, ev.Consumed())
	assert.True(t, ev.Consume())
	assert.False(t, ev.Consume())
	assert.True(t, ev.Consumed())

	var zero Event
	assert.False(t, zero.Consume())
}

func TestEventChannelTerminalDisplacesProgress(t *testing.T) {
	var ec eventChannel
	ch := ec.subscribe()
	for i := 0; i < eventBuffer+10; i++ {
		ec.send(newEvent(EventProgress, 1))
	}
	ec.send(newEvent(EventFinished, 1))

	var last Event
	n := 0
	for n < eventBuffer {
		last = <-ch
		n++
		if last.IsTerminal() {
			break
		}
	}
	require.True(t, last.IsTerminal())
	assert.Equal(t, EventFinished, last.Kind)
}

func TestEventChannelWithoutSubscriber(t *testing.T) {
	var ec eventChannel
	ec.send(newEvent(EventProgress, 1))
	ec.send(newEvent(EventCancelled, 1))

	got, ok := ec.lastTerminal()
	require.True(t, ok)
	assert.Equal(t, EventCancelled, got.Kind)

	ch := ec.subscribe()
	assert.Equal(t, EventCancelled, (<-ch).Kind)

	ec.reset()
	_, ok = ec.lastTerminal()
	assert.False(t, ok)
}
