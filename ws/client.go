package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kittens-server/dispatch"
	"kittens-server/game"
	"kittens-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is a middleman between the websocket connection and the dispatcher.
// It implements dispatch.Conn.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	session *dispatch.Session
	logger  *zap.Logger

	// flushMu serializes calls into session between the read pump and the
	// flush loop, which keeps outbound frames in queue order.
	flushMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.Config.SendBufferSize),
		logger: h.logger.With(zap.String("remote", conn.RemoteAddr().String())),
		done:   make(chan struct{}),
	}
}

// Send queues a binary frame for the write pump and reports whether it was
// accepted. A client whose buffer is full is disconnected.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	if !wsutil.SafeSend(c.send, frame, c.logger) {
		c.logger.Warn("send buffer full, closing connection")
		c.Close()
		return false
	}
	return true
}

// Close stops both pumps. It is safe to call from any goroutine, more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump pumps frames from the websocket connection to the dispatcher.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		c.hub.unregister(c)
		c.flushMu.Lock()
		c.session.Closed()
		c.flushMu.Unlock()
	}()

	c.conn.SetReadLimit(c.hub.Config.MaxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("read error", zap.Error(err))
			}
			return
		}

		c.flushMu.Lock()
		before := c.session.Player()
		err = c.session.Receive(frame)
		after := c.session.Player()
		c.flushMu.Unlock()
		if err != nil {
			c.logger.Info("dropping connection", zap.String("conn", c.session.ID()), zap.Error(err))
			return
		}
		if before == nil && after != nil {
			go c.flushLoop(after)
		}
	}
}

// flushLoop delivers messages queued for p by other players' actions.
func (c *Client) flushLoop(p *game.Player) {
	for {
		select {
		case <-c.done:
			return
		case <-p.Wake():
			c.flushMu.Lock()
			select {
			case <-c.done:
			default:
				c.session.Flush()
			}
			c.flushMu.Unlock()
		}
	}
}

// WritePump pumps frames from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if c.drain() {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			return
		}
	}
}

// drain writes the frames still buffered when the client is closed, so a
// final refusal reaches the peer. It reports whether every write succeeded.
func (c *Client) drain() bool {
	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return false
			}
		default:
			return true
		}
	}
}
