package server

import (
	"sync"
	"time"

	"squeeze-trader/src/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	clientQueue    = 256
)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client is one websocket subscriber. An empty topic set means every event.
type Client struct {
	server *APIServer
	conn   *websocket.Conn
	events chan models.MEvent

	topicsMu sync.RWMutex
	topics   map[string]struct{}
}

func newClient(s *APIServer, conn *websocket.Conn) *Client {
	return &Client{
		server: s,
		conn:   conn,
		events: make(chan models.MEvent, clientQueue),
	}
}

// -----------------------------------------------------------------------------

// Subscribe restricts delivery to the given event types. No types resets the
// filter.
func (c *Client) Subscribe(types []string) {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	if len(types) == 0 {
		c.topics = nil
		return
	}
	c.topics = make(map[string]struct{}, len(types))
	for _, t := range types {
		c.topics[t] = struct{}{}
	}
}

// -----------------------------------------------------------------------------

// Wants reports whether the client subscribed to eventType. Status events are
// always delivered.
func (c *Client) Wants(eventType string) bool {
	if eventType == EventStatus || eventType == EventError {
		return true
	}
	c.topicsMu.RLock()
	defer c.topicsMu.RUnlock()
	if c.topics == nil {
		return true
	}
	_, ok := c.topics[eventType]
	return ok
}

// -----------------------------------------------------------------------------

// offer queues an event without blocking. It reports false when the client is
// too slow to keep up.
func (c *Client) offer(event models.MEvent) bool {
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// readPump consumes client commands and keeps the read deadline alive
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd MClientCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.Logger.Info("Websocket client dropped: %v", err)
			}
			return
		}
		c.server.HandleClientCommand(c, cmd)
	}
}

// -----------------------------------------------------------------------------
// writePump drains the event queue and sends keepalive pings
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.server.Logger.Debug("Websocket write failed: %v", err)
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
