// Package stream pushes journal change events to websocket clients.
package stream

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/journal"
	"github.com/newthinker/zella/internal/metrics"
)

type outbound struct {
	event journal.Event
	data  []byte
}

// Hub fans journal events out to connected clients. Trade events reach
// only clients allowed to read the affected journal.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
	metrics    *metrics.Registry
	logger     *zap.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(reg *metrics.Registry, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		metrics:    reg,
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.metrics.SetStreamClients(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.metrics.SetStreamClients(len(h.clients))
			h.logger.Debug("stream client connected",
				zap.String("user", c.principal.UserID),
				zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.metrics.SetStreamClients(len(h.clients))

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(msg.event) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("dropped slow stream client", zap.String("user", c.principal.UserID))
				}
			}
			h.metrics.SetStreamClients(len(h.clients))

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Publish queues an event for delivery. It never blocks; events are
// dropped when the queue is full.
func (h *Hub) Publish(e journal.Event) {
	data, err := jsoniter.Marshal(e)
	if err != nil {
		h.logger.Error("encoding stream event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- outbound{event: e, data: data}:
	default:
		h.logger.Warn("stream queue full, event dropped", zap.String("type", e.Type))
	}
}

// ClientCount returns the number of connected clients. It is zero once
// Run has returned.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
