package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Bus fans events out to topic subscribers. Delivery is synchronous on the
// publisher's goroutine, in subscription order. A panicking handler is
// logged and does not stop delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	closed bool

	published    atomic.Uint64
	droppedCount atomic.Uint64
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBus creates an open bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]map[uint64]Handler),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers h for topic. The returned function removes the
// subscription and is safe to call more than once.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || h == nil {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers ev to every subscriber of ev.Topic. Events published
// after Close are counted as dropped.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		count := b.droppedCount.Add(1)
		if count%10 == 1 {
			b.logger.Warn().Str("topic", ev.Topic).Uint64("dropped", count).Msg("bus closed, dropping event")
		}
		return
	}
	ids := make([]uint64, 0, len(b.subs[ev.Topic]))
	for id := range b.subs[ev.Topic] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = b.subs[ev.Topic][id]
	}
	b.mu.RUnlock()

	b.published.Add(1)
	for _, h := range handlers {
		b.deliver(h, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Str("topic", ev.Topic).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	h(ev)
}

// Subscribers returns the number of handlers on topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// PublishedCount returns how many events were delivered.
func (b *Bus) PublishedCount() uint64 {
	return b.published.Load()
}

// DroppedCount returns how many events were published after Close.
func (b *Bus) DroppedCount() uint64 {
	return b.droppedCount.Load()
}

// Close removes all subscribers. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[uint64]Handler)
}
