package gateway

import (
	"context"
	"sync"

	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/metrics"
)

// Hub keeps the connected websocket clients and fans trade events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	logger logger.Interface
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub(log logger.Interface) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()

			metrics.WebsocketConnections.Inc()
			h.logger.Debug("Client connected",
				logger.NewField("client", client.id),
				logger.NewField("total", total),
			)

		case client := <-h.unregister:
			h.drop(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				if !client.enqueue(message) {
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				h.logger.Warn("Dropping slow client", logger.NewField("client", client.id))
				h.drop(client)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
				metrics.WebsocketConnections.Dec()
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.close()
	metrics.WebsocketConnections.Dec()

	h.logger.Debug("Client disconnected",
		logger.NewField("client", client.id),
		logger.NewField("total", len(h.clients)),
	)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every connected client.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ForwardTrades broadcasts every trade read from trades as a trade event
// until the channel closes.
func (h *Hub) ForwardTrades(trades <-chan tradepublisherv1.Trade) {
	for trade := range trades {
		message, err := newMessage(EventTrade, trade)
		if err != nil {
			h.logger.Error(err, logger.NewField("action", "encode_trade_event"))
			continue
		}
		h.Broadcast(message)
	}
}
