// Package feed is the push side of the messaging backend: it routes newly
// stored messages and notifications to the streams subscribed to them.
package feed

import (
	"errors"
	"sync"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/metrics"
)

// ErrNoSubscribers is returned by Publish when nobody listens on the topic.
var ErrNoSubscribers = errors.New("no subscribers")

// StreamSender defines the minimal interface the hub needs from a stream: the
// ability to send Event messages to the connected client.
type StreamSender interface {
	Send(*v1.Event) error
}

// MessageTopic is the topic carrying new messages of one conversation.
func MessageTopic(conversationID string) string { return "conversation:" + conversationID }

// NotificationTopic is the topic carrying new notifications of one user.
func NotificationTopic(userID string) string { return "notifications:" + userID }

// connection serializes sends: a gRPC stream must not be written from two
// goroutines at once, and publishers run concurrently.
type connection struct {
	mu     sync.Mutex
	sender StreamSender
}

func (c *connection) send(ev *v1.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sender.Send(ev)
}

// Hub manages active push streams keyed by topic. A topic may have many
// connections (several devices, several viewers of one conversation).
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[int64]*connection
	nextID int64
}

// NewHub creates a new hub instance.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[int64]*connection)}
}

// Register attaches a stream to topic and returns a connection id to pass to
// Unregister when the stream closes.
func (h *Hub) Register(topic string, s StreamSender) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[int64]*connection)
	}

	h.nextID++
	id := h.nextID
	h.topics[topic][id] = &connection{sender: s}
	return id
}

// Unregister removes a previously-registered stream.
func (h *Hub) Unregister(topic string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.topics[topic]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Count returns how many streams are attached to topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish sends ev to every stream attached to topic. Delivery is best-effort:
// every stream is tried, streams that fail are unregistered, and the first
// error is returned.
func (h *Hub) Publish(topic string, ev *v1.Event) error {
	h.mu.RLock()
	conns := make(map[int64]*connection, len(h.topics[topic]))
	for id, c := range h.topics[topic] {
		conns[id] = c
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrNoSubscribers
	}

	var firstErr error
	var failedIDs []int64
	for id, c := range conns {
		if err := c.send(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
		}
	}

	for _, id := range failedIDs {
		metrics.FeedDeliveryFailures.Inc()
		h.Unregister(topic, id)
	}

	return firstErr
}
