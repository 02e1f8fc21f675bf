package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscriber represents a single client that receives rendered HTML fragments from the Hub.
type Subscriber struct {
	// ID identifies the subscriber in logs.
	ID string

	// Send is a buffered channel of outbound messages. The Hub sends messages
	// to this channel, and the client is responsible for reading from it.
	// The Hub closes it when the subscriber is removed.
	Send chan []byte
}

// NewSubscriber creates a subscriber with a fresh ID and the given buffer size.
func NewSubscriber(buffer int) *Subscriber {
	return &Subscriber{
		ID:   uuid.NewString(),
		Send: make(chan []byte, buffer),
	}
}

// Hub maintains the set of active subscribers and broadcasts messages to them.
// All bookkeeping happens on the goroutine running Run.
type Hub struct {
	subscribers map[*Subscriber]bool

	// Broadcast is the channel for outbound messages. Any component can send a
	// message to this channel to have it delivered to all subscribers.
	Broadcast chan []byte

	// Register is a channel for new subscribers to register with the hub.
	Register chan *Subscriber

	// Unregister is a channel for subscribers to unregister from the hub.
	Unregister chan *Subscriber

	count atomic.Int64
	done  chan struct{}
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Broadcast:   make(chan []byte, 16),
		Register:    make(chan *Subscriber),
		Unregister:  make(chan *Subscriber),
		subscribers: make(map[*Subscriber]bool),
		done:        make(chan struct{}),
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes hub traffic until ctx is cancelled. It must be run in its own
// goroutine. On exit every remaining subscriber's Send channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for subscriber := range h.subscribers {
				h.remove(subscriber)
			}
			return

		case subscriber := <-h.Register:
			h.subscribers[subscriber] = true
			h.count.Store(int64(len(h.subscribers)))
			slog.Info("New subscriber registered", "event", "hub_register", "subscriber_id", subscriber.ID, "total_subscribers", len(h.subscribers))

		case subscriber := <-h.Unregister:
			if _, ok := h.subscribers[subscriber]; ok {
				h.remove(subscriber)
				slog.Info("Subscriber unregistered", "event", "hub_unregister", "subscriber_id", subscriber.ID, "total_subscribers", len(h.subscribers))
			}

		case message := <-h.Broadcast:
			slog.Debug("Broadcasting message", "event", "hub_broadcast", "recipient_count", len(h.subscribers), "bytes", len(message))
			for subscriber := range h.subscribers {
				// A full buffer means the client is lagging or gone.
				select {
				case subscriber.Send <- message:
				default:
					h.remove(subscriber)
					slog.Warn("Unregistering slow subscriber", "event", "hub_drop_slow", "subscriber_id", subscriber.ID, "total_subscribers", len(h.subscribers))
				}
			}
		}
	}
}

func (h *Hub) remove(subscriber *Subscriber) {
	delete(h.subscribers, subscriber)
	close(subscriber.Send)
	h.count.Store(int64(len(h.subscribers)))
}

// ErrStopped is returned by Publish once Run has returned.
var ErrStopped = errors.New("hub stopped")

// Publish queues message for broadcast unless ctx ends first or the hub has stopped.
func (h *Hub) Publish(ctx context.Context, message []byte) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.Broadcast <- message:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
