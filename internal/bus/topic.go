// Package bus provides named in-process topics with multiple subscribers.
//
// Publishing never blocks: when a subscriber's queue is full its oldest queued
// message is evicted to make room and counted as dropped, so a slow reader
// always catches up on the newest messages. The number of live subscribers is
// observable, which the marker node uses to hold off publishing until someone
// is listening.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/banshee-data/add-markers/internal/monitoring"
)

// ErrClosed is returned when subscribing to a closed topic.
var ErrClosed = errors.New("bus: topic closed")

// Topic is a named fan-out channel of messages of type T.
type Topic[T any] struct {
	name string

	mu          sync.Mutex
	subscribers map[string]*Subscription[T]
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Subscription is one subscriber's queue on a Topic.
type Subscription[T any] struct {
	ID    string
	topic *Topic[T]
	ch    chan T
	once  sync.Once
}

// NewTopic creates an empty topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{
		name:        name,
		subscribers: make(map[string]*Subscription[T]),
	}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string { return t.name }

// Subscribe registers a new subscriber with a queue of the given depth.
// A depth below one is treated as one.
func (t *Topic[T]) Subscribe(depth int) (*Subscription[T], error) {
	if depth < 1 {
		depth = 1
	}
	sub := &Subscription[T]{
		ID:    uuid.NewString(),
		topic: t,
		ch:    make(chan T, depth),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.subscribers[sub.ID] = sub
	n := len(t.subscribers)
	t.mu.Unlock()

	monitoring.Logf("[Bus] %s: subscriber %s attached (total: %d)", t.name, sub.ID, n)
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channel.
func (t *Topic[T]) Unsubscribe(id string) {
	t.mu.Lock()
	sub, ok := t.subscribers[id]
	if ok {
		delete(t.subscribers, id)
	}
	n := len(t.subscribers)
	t.mu.Unlock()

	if ok {
		sub.once.Do(func() { close(sub.ch) })
		monitoring.Logf("[Bus] %s: subscriber %s detached (remaining: %d)", t.name, id, n)
	}
}

// NumSubscribers returns the number of live subscribers.
func (t *Topic[T]) NumSubscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Publish queues msg for every subscriber and returns how many received it.
func (t *Topic[T]) Publish(msg T) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}
	t.published.Add(1)

	for _, sub := range t.subscribers {
		if sub.offer(msg) {
			t.dropped.Add(1)
		}
	}
	return len(t.subscribers)
}

// offer queues msg, evicting the oldest entry while the queue is full. It
// reports whether anything was evicted. Callers hold the topic lock, so only
// the reader competes for the queue and can only free space.
func (s *Subscription[T]) offer(msg T) (evicted bool) {
	for {
		select {
		case s.ch <- msg:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			evicted = true
		default:
		}
	}
}

// Close detaches all subscribers. Later publishes are ignored and later
// subscribes fail with ErrClosed.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	t.closed = true
	subs := t.subscribers
	t.subscribers = make(map[string]*Subscription[T])
	t.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Stats returns publish and drop counters.
func (t *Topic[T]) Stats() TopicStats {
	return TopicStats{
		Name:        t.name,
		Subscribers: t.NumSubscribers(),
		Published:   t.published.Load(),
		Dropped:     t.dropped.Load(),
	}
}

// TopicStats contains topic statistics.
type TopicStats struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// C returns the channel messages are delivered on. It is closed when the
// subscription ends.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// TryRecv returns the next queued message without blocking.
func (s *Subscription[T]) TryRecv() (T, bool) {
	select {
	case msg, ok := <-s.ch:
		return msg, ok
	default:
		var zero T
		return zero, false
	}
}

// Close unsubscribes from the topic.
func (s *Subscription[T]) Close() {
	s.topic.Unsubscribe(s.ID)
}
