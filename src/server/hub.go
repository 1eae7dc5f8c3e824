package server

import (
	"net/http"
	"strings"

	"squeeze-trader/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// EventStatus is sent to a client on connect and on request.
	EventStatus = "STATUS"
	// EventError answers a command the server could not act on.
	EventError = "ERROR"
)

// MClientCommand is what clients send over the socket:
// {"command":"status"}, {"command":"subscribe","events":["POSITION_CLOSED"]}
// or {"command":"unsubscribe"}.
type MClientCommand struct {
	Command string   `json:"command"`
	Events  []string `json:"events,omitempty"`
}

var knownEvents = map[string]struct{}{
	models.EventSignal:   {},
	models.EventOpen:     {},
	models.EventStops:    {},
	models.EventClose:    {},
	models.EventPanic:    {},
	models.EventSnapshot: {},
}

// -----------------------------------------------------------------------------
// Hub loop
// -----------------------------------------------------------------------------

// runHub owns the client set. It is the only goroutine closing client queues.
func (s *APIServer) runHub() {
	drop := func(c *Client) {
		if _, ok := s.clients[c]; ok {
			delete(s.clients, c)
			close(c.events)
		}
	}

	for {
		select {
		case <-s.done:
			s.stateMutex.Lock()
			for c := range s.clients {
				drop(c)
			}
			s.stateMutex.Unlock()
			return

		case c := <-s.register:
			s.stateMutex.Lock()
			s.clients[c] = struct{}{}
			s.stateMutex.Unlock()
			c.offer(s.statusEvent())

		case c := <-s.unregister:
			s.stateMutex.Lock()
			drop(c)
			s.stateMutex.Unlock()

		case event := <-s.broadcast:
			s.stateMutex.Lock()
			for c := range s.clients {
				if !c.Wants(event.Type) {
					continue
				}
				if !c.offer(event) {
					s.Logger.Warning("Websocket client lagging, disconnecting")
					drop(c)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) statusEvent() models.MEvent {
	status := s.status()
	return models.MEvent{Type: EventStatus, Symbol: status.Symbol, Timestamp: status.LastCandleTime, Payload: status}
}

// -----------------------------------------------------------------------------
// IDataExchanger
// -----------------------------------------------------------------------------

// UpdateStatus caches the runner status for health and status reads.
func (s *APIServer) UpdateStatus(status models.MStatus) {
	s.stateMutex.Lock()
	s.latestStatus = status
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast queues an event for subscribed clients. A full queue drops the
// event so the runner never waits on consumers.
func (s *APIServer) Broadcast(event models.MEvent) {
	select {
	case <-s.done:
	case s.broadcast <- event:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s event", event.Type)
	}
}

// -----------------------------------------------------------------------------
// Websocket endpoint
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Websocket upgrade failed: %v", err)
		return
	}

	client := newClient(s, conn)
	if topics := c.Query("events"); topics != "" {
		client.Subscribe(strings.Split(topics, ","))
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------

// HandleClientCommand applies a command received from client.
func (s *APIServer) HandleClientCommand(client *Client, cmd MClientCommand) {
	switch cmd.Command {
	case "status":
		s.reply(client, s.statusEvent())
	case "subscribe":
		for _, t := range cmd.Events {
			if _, ok := knownEvents[t]; !ok {
				s.reply(client, models.MEvent{Type: EventError, Payload: "unknown event type " + t})
				return
			}
		}
		client.Subscribe(cmd.Events)
	case "unsubscribe":
		client.Subscribe(nil)
	default:
		s.reply(client, models.MEvent{Type: EventError, Payload: "unknown command " + cmd.Command})
	}
}

// -----------------------------------------------------------------------------

// reply queues an event for a single client while it is still registered, so
// it never races the hub closing the queue.
func (s *APIServer) reply(client *Client, event models.MEvent) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	if _, ok := s.clients[client]; ok {
		client.offer(event)
	}
}
