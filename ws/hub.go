// Package ws carries the binary game protocol over websocket connections.
package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kittens-server/config"
	"kittens-server/dispatch"
	"kittens-server/metrics"
)

// Hub maintains the set of active clients.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Dispatcher *dispatch.Server
	Config     *config.Config

	upgrader websocket.Upgrader
	logger   *zap.Logger
	done     chan struct{}
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, d *dispatch.Server, logger *zap.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Dispatcher: d,
		Config:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Allow all origins for development; restrict in production.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
		done:   make(chan struct{}),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled, every client is closed and Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("shutdown signal received, closing clients", zap.Int("clients", len(h.Clients)))
			for c := range h.Clients {
				c.Close()
			}
			metrics.ConnectionsActive.Set(0)
			return

		case c := <-h.Register:
			h.Clients[c] = true
			metrics.ConnectionsActive.Set(float64(len(h.Clients)))
			h.logger.Debug("client connected", zap.Int("clients", len(h.Clients)))

		case c := <-h.Unregister:
			if _, ok := h.Clients[c]; ok {
				delete(h.Clients, c)
				metrics.ConnectionsActive.Set(float64(len(h.Clients)))
				h.logger.Debug("client disconnected", zap.Int("clients", len(h.Clients)))
			}
		}
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// ServeWS handles WebSocket upgrade requests and starts a Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn)
	select {
	case h.Register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	c.session = h.Dispatcher.NewSession(c)

	go c.WritePump()
	go c.ReadPump()
}
