package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	clientQueue  = 64
	writeTimeout = time.Second
)

// Update is the WebSocket message for one value.
type Update struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Hub streams values to WebSocket clients. Slow clients lose updates rather
// than slowing the publisher.
type Hub struct {
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	latest  map[string]float64
	order   []string
	clients map[*websocket.Conn]chan []byte
}

// NewHub returns a Hub with no clients.
func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		latest:  make(map[string]float64),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

func (h *Hub) PutNumber(key string, value float64) error {
	msg, err := json.Marshal(Update{Key: key, Value: value})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.latest[key]; !ok {
		h.order = append(h.order, key)
	}
	h.latest[key] = value
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Drop if client is behind
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams updates until the client goes
// away. New clients first receive the latest value of every key.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade", "remote", r.RemoteAddr, "error", err)
		return
	}

	ch := make(chan []byte, clientQueue)
	h.mu.Lock()
	for _, key := range h.order {
		msg, _ := json.Marshal(Update{Key: key, Value: h.latest[key]})
		select {
		case ch <- msg:
		default:
		}
	}
	h.clients[conn] = ch
	h.mu.Unlock()
	h.log.Infow("dashboard client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Reads only detect the close; clients do not send anything.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
		h.log.Infow("dashboard client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
