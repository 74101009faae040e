// Package events is an in-process typed publish/subscribe bus used to tell
// interested parties (SSE streams, workers) that shared state changed.
package events

import "sync"

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Bus fans events of type T out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]subscriber[T]
	next   uint64
	buffer int
	closed bool
}

type subscriber[T any] struct {
	ch     chan T
	filter func(T) bool
}

func NewBus[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus[T]{subs: make(map[uint64]subscriber[T]), buffer: buffer}
}

// Subscribe registers a subscriber for every event. cancel must be called to
// release it; it is safe to call more than once.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	return b.SubscribeFunc(nil)
}

// SubscribeFunc registers a subscriber that only receives events for which
// filter returns true. Filtered events never take buffer space. A nil filter
// accepts everything.
func (b *Bus[T]) SubscribeFunc(filter func(T) bool) (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = subscriber[T]{ch: ch, filter: filter}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every matching subscriber with room in its buffer and
// returns how many received it.
func (b *Bus[T]) Publish(ev T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscriptions get a closed channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
