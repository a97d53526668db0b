package output_storage

import (
	"fmt"
	"sync"
)

// Broadcaster fans a stream of notifications out to subscribers. Delivery
// never blocks the publisher: a subscriber whose buffer is full loses its
// oldest pending value.
type Broadcaster[T any] struct {
	messageReceiver chan T
	mu              sync.Mutex
	subscribers     map[chan T]struct{}
	stopped         bool
	done            chan struct{}
}

func RunNewBroadcaster[T any]() *Broadcaster[T] {
	broadcaster := &Broadcaster[T]{
		messageReceiver: make(chan T, 1),
		subscribers:     make(map[chan T]struct{}),
		done:            make(chan struct{}),
	}

	go broadcaster.start()

	return broadcaster
}

func (broadcaster *Broadcaster[T]) start() {
	defer close(broadcaster.done)

	for msg := range broadcaster.messageReceiver {
		// Sends never block, so the lock is held across delivery. This keeps
		// Unsubscribe from closing a channel mid-send.
		broadcaster.mu.Lock()
		for s := range broadcaster.subscribers {
			deliverLatest(s, msg)
		}
		broadcaster.mu.Unlock()
	}

	broadcaster.mu.Lock()
	for s := range broadcaster.subscribers {
		close(s)
	}
	broadcaster.subscribers = nil
	broadcaster.stopped = true
	broadcaster.mu.Unlock()
}

// deliverLatest sends msg on ch, dropping the oldest buffered value if ch is full.
func deliverLatest[T any](ch chan T, msg T) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Stop closes every subscriber once pending messages are delivered. It must
// be called at most once, and Publish must not be called afterwards.
func (broadcaster *Broadcaster[T]) Stop() {
	close(broadcaster.messageReceiver)
	<-broadcaster.done
}

func (broadcaster *Broadcaster[T]) Subscribe() (chan T, error) {
	// Use a buffer of 1 so we can drop stale notifications without blocking.
	ch := make(chan T, 1)
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.stopped {
		return nil, fmt.Errorf("failed to subscribe: broadcaster is stopped")
	}
	broadcaster.subscribers[ch] = struct{}{}
	return ch, nil
}

func (broadcaster *Broadcaster[T]) Unsubscribe(subscriberSender chan T) {
	broadcaster.mu.Lock()
	_, ok := broadcaster.subscribers[subscriberSender]
	delete(broadcaster.subscribers, subscriberSender)
	broadcaster.mu.Unlock()
	if ok {
		close(subscriberSender)
	}
}

func (broadcaster *Broadcaster[T]) Publish(msg T) {
	deliverLatest(broadcaster.messageReceiver, msg)
}
