// Package wsapi fans out candle updates to subscribed UI clients over
// WebSocket, adapted from the teacher's client hub for the tick-to-candle
// engine's (symbol, timeframe, bucket_size, multiplier) slot model.
package wsapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of connected clients and their slot subscriptions.
type Hub struct {
	mu            sync.RWMutex
	clients       map[*client]bool
	subscriptions map[string]map[*client]bool // slot key -> subscribed clients
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*client]bool),
		subscriptions: make(map[string]map[*client]bool),
	}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	slots  map[string]bool
	slotMu sync.Mutex
}

// clientMessage is the inbound subscribe/unsubscribe envelope.
type clientMessage struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	BucketSz  float64 `json:"bucketSize"`
	Mult      int     `json:"multiplier"`
}

func slotKey(symbol, timeframe string, bucketSize float64, multiplier int) string {
	return symbol + "|" + timeframe + "|" + jsonFloat(bucketSize) + "|" + jsonInt(multiplier)
}

func jsonFloat(v float64) string { b, _ := json.Marshal(v); return string(b) }
func jsonInt(v int) string       { b, _ := json.Marshal(v); return string(b) }

// HandleWebSocket upgrades the HTTP connection and registers a new client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsapi: upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		id:    uuid.New().String(),
		slots: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for slot := range c.slots {
		if subs, ok := h.subscriptions[slot]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.subscriptions, slot)
			}
		}
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) subscribe(c *client, slot string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.slotMu.Lock()
	c.slots[slot] = true
	c.slotMu.Unlock()
	if h.subscriptions[slot] == nil {
		h.subscriptions[slot] = make(map[*client]bool)
	}
	h.subscriptions[slot][c] = true
}

func (h *Hub) unsubscribe(c *client, slot string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.slotMu.Lock()
	delete(c.slots, slot)
	c.slotMu.Unlock()
	if subs, ok := h.subscriptions[slot]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.subscriptions, slot)
		}
	}
}

// BroadcastCandle pushes a candle update to every client subscribed to its
// slot. Safe to call concurrently from any number of aggregator goroutines.
func (h *Hub) BroadcastCandle(symbol, timeframe string, bucketSize float64, multiplier int, payload any) {
	message, err := json.Marshal(payload)
	if err != nil {
		log.Printf("wsapi: marshal candle update: %v", err)
		return
	}

	slot := slotKey(symbol, timeframe, bucketSize, multiplier)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subscriptions[slot] {
		select {
		case c.send <- message:
		default:
			log.Printf("wsapi: client %s send buffer full, dropping update", c.id)
		}
	}
}

// ConnectedClients reports the current connection count.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("wsapi: client %s read error: %v", c.id, err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		slot := slotKey(msg.Symbol, msg.Timeframe, msg.BucketSz, msg.Mult)
		switch msg.Type {
		case "subscribe":
			c.hub.subscribe(c, slot)
		case "unsubscribe":
			c.hub.unsubscribe(c, slot)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
