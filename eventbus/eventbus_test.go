package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var got []int

	done := make(chan struct{})
	bus.Subscribe(TopicSignal, func(ev Event) {
		n := ev.Payload.(int)
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		if n == 9 {
			close(done)
		}
	})

	for i := 0; i < 10; i++ {
		bus.Publish(TopicSignal, i)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 10)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := New()

	slowStarted := make(chan struct{})
	release := make(chan struct{})
	bus.Subscribe(TopicSignal, func(ev Event) {
		close(slowStarted)
		<-release
	})

	fastDone := make(chan struct{})
	bus.Subscribe(TopicSignalLive, func(ev Event) {
		close(fastDone)
	})

	bus.Publish(TopicSignal, 1)
	<-slowStarted

	bus.Publish(TopicSignalLive, 1)

	select {
	case <-fastDone:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber blocked by slow one on a different topic")
	}

	close(release)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	var count int
	var mu sync.Mutex
	unsub := bus.Subscribe(TopicError, func(ev Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(TopicError, "one")
	time.Sleep(20 * time.Millisecond)
	unsub()
	bus.Publish(TopicError, "two")
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
