package ws

import (
	"time"

	"rainet_server/internal/logger"
	"rainet_server/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 16 << 10
)

// Client is the transport half of a connection: two pumps around a
// gorilla conn. Protocol behavior lives in Conn; Client only moves
// frames and enforces the keep-alive window.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	keepAlive time.Duration
	sess      *Conn
}

func NewClient(wsConn *websocket.Conn, keepAlive time.Duration) *Client {
	return &Client{
		conn:      wsConn,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		keepAlive: keepAlive,
	}
}

// Run pumps until the connection drops, then reports the disconnect to
// the hub through the protocol session.
func (c *Client) Run(sess *Conn) {
	c.sess = sess
	ConnectionsActive.Inc()
	defer ConnectionsActive.Dec()

	go c.writePump()
	sess.onConnect()
	c.readPump()

	sess.onDisconnect()
}

// WriteFrame queues a frame without blocking the caller. A full buffer
// means the client stopped draining; the connection is torn down and
// the keep-alive path turns that into a forfeit.
func (c *Client) WriteFrame(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	default:
		logger.Warn("send buffer full, dropping connection")
		c.conn.Close()
		return websocket.ErrCloseSent
	}
}

func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(2 * c.keepAlive))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * c.keepAlive))
		return nil
	})

	for {
		kind, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			logger.Warn("non-binary frame", "kind", kind)
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(2 * c.keepAlive))
		if err := c.sess.HandleFrame(frame); err != nil {
			logger.Info("closing connection", "error", err)
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.keepAlive)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			// Both a ws ping and a KeepAlive packet; the ping arms the
			// pong deadline, the packet is the visible probe from the
			// packet table.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			probe, _ := protocol.Frame(protocol.PacketKeepAlive, nil, nil)
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, probe); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
