package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var got []CompletionChange
	bus.Subscribe(func(c CompletionChange) { got = append(got, c) })
	bus.Subscribe(func(c CompletionChange) { got = append(got, c) })

	now := time.Now()
	bus.Publish(NewCompletionChange(7, true, &now, false, "toggle"))

	require.Len(t, got, 2)
	assert.Equal(t, uint(7), got[0].TaskID)
	assert.True(t, got[0].IsCompleted)
	assert.Equal(t, "toggle", got[0].Source)
	assert.NotEmpty(t, got[0].EventID)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	cancel := bus.Subscribe(func(CompletionChange) { calls++ })

	bus.Publish(NewCompletionChange(1, true, nil, false, "toggle"))
	cancel()
	bus.Publish(NewCompletionChange(1, false, nil, false, "toggle"))

	assert.Equal(t, 1, calls)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(NewCompletionChange(1, true, nil, true, "cascade"))
	})
}
