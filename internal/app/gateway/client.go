package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/engine"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	submitter OrderSubmitter
	logger    logger.Interface
	id        string

	mu     sync.Mutex
	send   chan []byte
	done   chan struct{}
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, submitter OrderSubmitter, log logger.Interface) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		submitter: submitter,
		logger:    log,
		id:        conn.RemoteAddr().String(),
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// enqueue queues message without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
		close(c.done)
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		// the hub may already have stopped
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "Websocket read failed", logger.NewField("error", err.Error()))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(ctx, errors.NewErrorDetails("message is not valid JSON", string(errors.GeneralBadRequestError), ""), "")
			continue
		}

		switch msg.Event {
		case EventOrderCreate:
			c.createOrder(ctx, msg.Data)
		default:
			c.sendError(ctx, errors.NewErrorDetails("unknown event "+msg.Event, string(errors.GeneralBadRequestError), "event"), "")
		}
	}
}

func (c *Client) createOrder(ctx context.Context, data json.RawMessage) {
	var req orderbookv1.PlaceOrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError(ctx, errors.NewErrorDetails("Invalid Order Data", string(errors.InvalidOrder), ""), "")
		return
	}

	ack, err := c.submitter.Submit(ctx, "websocket", req)
	if err != nil {
		c.sendError(ctx, err, "")
		return
	}

	c.sendEvent(ctx, EventOrderAck, ack)

	if ack.Done != nil {
		go c.watch(ctx, ack)
	}
}

// watch reports a matching failure of an acknowledged order to its sender.
// It returns once the client disconnects, even if the order never completes.
func (c *Client) watch(ctx context.Context, ack engine.Ack) {
	select {
	case res, ok := <-ack.Done:
		if ok && res.Err != nil {
			c.sendError(ctx, res.Err, ack.OrderID)
		}
	case <-c.done:
	}
}

func (c *Client) sendEvent(ctx context.Context, event string, data any) {
	message, err := newMessage(event, data)
	if err != nil {
		c.logger.ErrorContext(ctx, err, logger.NewField("action", "encode_event"))
		return
	}
	if !c.enqueue(message) {
		c.logger.WarnContext(ctx, "Client send buffer full", logger.NewField("event", event))
	}
}

func (c *Client) sendError(ctx context.Context, err error, orderID string) {
	resp := newErrorResponse(err)
	resp.OrderID = orderID
	if statusCode(err) == http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, err, logger.NewField("action", "websocket_order"))
	}
	c.sendEvent(ctx, EventError, resp)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
