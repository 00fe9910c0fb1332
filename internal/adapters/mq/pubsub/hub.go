// Package pubsub fans live updates out to subscribers of named channels.
//
// Delivery is fire-and-forget: a message published to a channel with no
// subscribers is dropped, and a subscriber whose buffer is full misses it.
package pubsub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/okian/sportsday/pkg/metrics"
)

const defaultBufferSize = 16

// Subscription receives the messages published on one channel.
type Subscription struct {
	ID      string
	Channel string

	messages chan string
	once     sync.Once
}

// Messages returns the delivery channel. It is closed on unsubscribe.
func (s *Subscription) Messages() <-chan string {
	return s.messages
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.messages) })
}

// Hub is an in-process channel registry.
type Hub struct {
	bufferSize int

	mu       sync.RWMutex
	channels map[string]map[string]*Subscription
	closed   bool
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		bufferSize: defaultBufferSize,
		channels:   make(map[string]map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber on channel.
func (h *Hub) Subscribe(channel string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		ID:       uuid.NewString(),
		Channel:  channel,
		messages: make(chan string, h.bufferSize),
	}
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[string]*Subscription)
		h.channels[channel] = subs
	}
	subs[sub.ID] = sub
	metrics.AddSubscribers(1)
	return sub, nil
}

// Unsubscribe removes sub and closes its delivery channel. It is safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[sub.Channel]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.channels, sub.Channel)
	}
	sub.close()
	metrics.AddSubscribers(-1)
}

// Publish sends msg to every subscriber of channel without blocking and
// returns how many received it.
func (h *Hub) Publish(channel, msg string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.channels[channel]
	if h.closed || len(subs) == 0 {
		metrics.RecordDropped(channel, "no_subscribers")
		return 0
	}

	delivered := 0
	for _, sub := range subs {
		select {
		case sub.messages <- msg:
			delivered++
		default:
			metrics.RecordDropped(channel, "buffer_full")
		}
	}
	metrics.RecordPublished(channel)
	return delivered
}

// Subscribers returns the number of subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Close unsubscribes everyone. Later subscriptions fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for name, subs := range h.channels {
		for _, sub := range subs {
			sub.close()
			metrics.AddSubscribers(-1)
		}
		delete(h.channels, name)
	}
}
