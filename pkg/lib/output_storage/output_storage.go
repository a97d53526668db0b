package output_storage

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// node represents an element in the singly linked list.
// The list uses a sentinel head node so readers never need the lock.
type node struct {
	data lib.Output
	next atomic.Pointer[node]
}

// OutputStorage is the event/output channel of a session: an append-only
// list of lib.Output records with replaying subscriptions. It implements
// lib.Sink.
//
// Appends are serialized by a mutex; readers walk the list lock-free and see
// a best-effort snapshot.
type OutputStorage struct {
	head *node // sentinel head, immutable; nil for a stream

	mu      sync.Mutex
	tail    *node // last element in the list (or sentinel if empty)
	stopped bool

	broadcaster *Broadcaster[struct{}]
}

// RunNewOutputStorage creates a new, empty OutputStorage.
func RunNewOutputStorage() *OutputStorage {
	sentinel := &node{}
	return &OutputStorage{
		head:        sentinel,
		tail:        sentinel,
		broadcaster: RunNewBroadcaster[struct{}](),
	}
}

// RunNewOutputStream creates an OutputStorage that does not retain records.
// Subscribers only see records appended after they subscribe, and a record
// is released once every subscriber has read past it. ForEach, Events and
// Lines see nothing.
func RunNewOutputStream() *OutputStorage {
	return &OutputStorage{
		tail:        &node{},
		broadcaster: RunNewBroadcaster[struct{}](),
	}
}

// Stop closes every subscription after it has drained the stored records.
// Records appended afterwards are stored but not delivered.
func (s *OutputStorage) Stop() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.broadcaster.Stop()
}

// Append adds o to the end of the list. A zero Time is set to now.
func (s *OutputStorage) Append(o lib.Output) {
	if s == nil {
		return
	}
	if o.Time.IsZero() {
		o.Time = time.Now()
	}

	newTail := &node{data: o}

	s.mu.Lock()
	s.tail.next.Store(newTail)
	s.tail = newTail
	stopped := s.stopped
	if !stopped {
		// Publish under the lock so it cannot race with Stop closing the broadcaster.
		s.broadcaster.Publish(struct{}{})
	}
	s.mu.Unlock()
}

// Publish implements lib.Sink.
func (s *OutputStorage) Publish(o lib.Output) {
	s.Append(o)
}

func (s *OutputStorage) subscribeRunning(prev *node, notifier chan struct{}, ch chan lib.Output) {
	for {
		current := prev.next.Load()
		if current == nil {
			if _, ok := <-notifier; !ok {
				// Drain whatever was appended before the stop.
				s.drainFrom(prev, ch)
				return
			}
			continue
		}
		prev = current

		ch <- current.data
	}
}

func (s *OutputStorage) drainFrom(prev *node, ch chan lib.Output) {
	for current := prev.next.Load(); current != nil; current = current.next.Load() {
		ch <- current.data
	}
	close(ch)
}

// Subscribe returns a channel that first replays every stored record and then
// follows new ones until the storage is stopped, at which point it is closed.
// The subscriber must keep reading until the channel closes.
func (s *OutputStorage) Subscribe(capacity int) <-chan lib.Output {
	ch := make(chan lib.Output, capacity)

	start := s.head
	if start == nil {
		s.mu.Lock()
		start = s.tail
		s.mu.Unlock()
	}

	notifier, err := s.broadcaster.Subscribe()
	if err == nil {
		go s.subscribeRunning(start, notifier, ch)
	} else {
		go s.drainFrom(start, ch)
	}

	return ch
}

// ForEach iterates over all stored records in insertion order.
// If iter returns false, iteration stops early.
func (s *OutputStorage) ForEach(iter func(lib.Output) bool) {
	if s == nil || s.head == nil || iter == nil {
		return
	}
	cur := s.head.next.Load() // skip sentinel
	for cur != nil {
		if !iter(cur.data) {
			return
		}
		cur = cur.next.Load()
	}
}

// Events returns the lifecycle events stored so far, in order.
func (s *OutputStorage) Events() []lib.AppEvent {
	var events []lib.AppEvent
	s.ForEach(func(o lib.Output) bool {
		if o.IsEvent() {
			events = append(events, o.Event)
		}
		return true
	})
	return events
}

// Lines returns the text of every log record stored so far.
func (s *OutputStorage) Lines() []string {
	var lines []string
	s.ForEach(func(o lib.Output) bool {
		if !o.IsEvent() {
			lines = append(lines, o.Text)
		}
		return true
	})
	return lines
}

// String returns all log lines joined by newlines.
func (s *OutputStorage) String() string {
	return strings.Join(s.Lines(), "\n")
}
