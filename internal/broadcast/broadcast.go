// Package broadcast fans processed frames out to any number of subscribers.
//
// Every subscriber owns a small bounded queue. Publish never blocks: when a queue is
// full its oldest message is dropped, so a slow client only ever lags by the queue
// depth and never slows the producer or other clients.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/ayusman/handrehab/internal/engine"
	"github.com/google/uuid"
)

// ErrClosed is returned by Next once the subscription or broadcaster is closed.
var ErrClosed = errors.New("broadcast closed")

// Queue depth limits.
const (
	DefaultDepth = 1
	MaxDepth     = 2
)

// Message is one annotated frame and the engine snapshot it was drawn from.
// Frame is JPEG data; encoding/json renders it as base64.
type Message struct {
	Frame    []byte          `json:"frame"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// Subscription is a single consumer of a Broadcaster.
type Subscription struct {
	ID uuid.UUID

	ch      chan Message
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Next blocks until a message is available, the subscription ends or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-s.ch:
		if !ok {
			return Message{}, ErrClosed
		}
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many messages were discarded for this subscriber.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// offer enqueues m, evicting the oldest queued message when the queue is full.
func (s *Subscription) offer(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
}

// Broadcaster distributes messages from one producer to many subscribers.
type Broadcaster struct {
	depth  int
	subs   map[uuid.UUID]*Subscription
	mu     sync.RWMutex
	closed bool
}

// New creates a Broadcaster whose subscribers queue up to depth messages.
// depth is clamped to [1, MaxDepth].
func New(depth int) *Broadcaster {
	if depth < DefaultDepth {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	return &Broadcaster{
		depth: depth,
		subs:  make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed broadcaster returns
// a subscription that is already closed.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{
		ID:   uuid.New(),
		ch:   make(chan Message, b.depth),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		s.close()
		return s
	}
	b.subs[s.ID] = s
	return s
}

// Unsubscribe removes and closes a subscriber. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()

	if ok {
		s.close()
	}
}

// Publish offers m to every subscriber without blocking.
func (b *Broadcaster) Publish(m Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, s := range b.subs {
		s.offer(m)
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		s.close()
		delete(b.subs, id)
	}
}
