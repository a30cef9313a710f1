package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/models"
)

const (
	feedBufferSize = 16
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type feedClient struct {
	id   string
	send chan models.CaseEvent
}

// Hub fans case change events out to every connected websocket client.
// A client whose buffer is full is disconnected rather than waited for.
type Hub struct {
	mutex   sync.Mutex
	clients map[string]*feedClient
}

// NewHub returns an empty Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*feedClient)}
}

// Publish implements caseform.Publisher
func (h *Hub) Publish(ev models.CaseEvent) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- ev:
		default:
			zap.S().Warnw("dropping slow feed client", "clientId", id)
			delete(h.clients, id)
			close(c.send)
		}
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) register() *feedClient {
	c := &feedClient{id: uuid.New().String(), send: make(chan models.CaseEvent, feedBufferSize)}
	h.mutex.Lock()
	h.clients[c.id] = c
	h.mutex.Unlock()
	return c
}

func (h *Hub) unregister(c *feedClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// FeedHandler upgrades the connection and streams case events to it
func (h *Hub) FeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := h.register()
	zap.S().Debugw("feed client connected", "clientId", c.id)

	go func() {
		// the feed is one way; reading only notices the close
		for {
			if _, _, err := conn.NextReader(); err != nil {
				h.unregister(c)
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		zap.S().Debugw("feed client disconnected", "clientId", c.id)
	}()
	for {
		select {
		case ev, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
