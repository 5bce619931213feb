// Package eventbus implements the in-process, per-subscriber-ordered
// publish/subscribe bus spec.md §4.8 and §5 describe. There is no
// pack library suited to an in-process typed pub/sub primitive (the pack's
// only message-broker dependency, redis/go-redis, is an out-of-process
// client and the wrong fit for same-process ordered delivery), so this is
// built directly on sync/channels, matching how the teacher builds small
// concurrency primitives (sim.Engine's own mutex-guarded state) rather than
// reaching for a framework.
package eventbus

import "sync"

// Event is one published message. Topic discriminates; Payload is whatever
// the publisher attached (a signal.TickResult, a progress struct, etc).
type Event struct {
	Topic   Topic
	Payload any
}

// Handler consumes one event. A subscriber's handler calls complete, in
// order, before the next queued event for that subscriber is delivered.
type Handler func(Event)

// Bus is a serialized, per-subscriber publish/subscribe dispatcher. The
// zero value is not usable; use New().
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]*subscriber
}

type subscriber struct {
	mu      sync.Mutex
	queue   []Event
	notify  chan struct{}
	done    chan struct{}
	handler Handler
	closed  bool
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]*subscriber)}
}

// Unsubscribe stops delivery to a previously registered handler. Any events
// already queued for it are dropped without being delivered.
type Unsubscribe func()

// Subscribe registers handler to receive every event published to topic,
// in publication order, on a dedicated goroutine so that a slow handler on
// one topic never blocks publishers or other subscribers.
func (b *Bus) Subscribe(topic Topic, handler Handler) Unsubscribe {
	s := &subscriber{
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		handler: handler,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	go s.run()

	return func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)

		b.mu.Lock()
		list := b.subs[topic]
		for i, cur := range list {
			if cur == s {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}

// Publish delivers ev.Topic = topic to every current subscriber of topic.
// Publish never blocks on a subscriber's handler; it only appends to each
// subscriber's private queue.
func (b *Bus) Publish(topic Topic, payload any) {
	ev := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.enqueue(ev)
	}
}

func (s *subscriber) enqueue(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			s.mu.Lock()
			if s.closed || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.handler(ev)
		}
	}
}
