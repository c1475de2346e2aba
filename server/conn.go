package server

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaywf/relay-go/internal/infrastructure/config"
)

// wsConn adapts a gorilla websocket connection to session.Conn.
//
// gorilla permits only one concurrent writer, so all writes (frames and
// keepalive pings) serialise on writeMu. Expected close errors are mapped to
// io.EOF so the session can treat them as normal termination without knowing
// the transport library.
type wsConn struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	pingWait time.Duration
	readWait time.Duration
}

func newWSConn(conn *websocket.Conn, cfg config.WebSocketConfig) *wsConn {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	readWait := pingInterval + pongWait

	c := &wsConn{
		conn:     conn,
		pingWait: pongWait,
		readWait: readWait,
	}

	conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	return c
}

// ReadMessage returns the next text frame. Normal peer closure surfaces as
// io.EOF.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	// Any frame resets the read deadline, keeping the connection alive even
	// when the peer never answers protocol-level pings.
	//nolint:errcheck // Best-effort deadline reset
	c.conn.SetReadDeadline(time.Now().Add(c.readWait))
	return data, nil
}

// WriteMessage sends one text frame.
func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	//nolint:errcheck // Best-effort deadline; write error caught below
	c.conn.SetWriteDeadline(time.Now().Add(c.pingWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (c *wsConn) Close() error {
	return c.conn.Close()
}

// keepalive sends protocol-level pings until the context is cancelled or the
// session ends. A failed ping ends the loop; the read side notices the dead
// connection through its deadline.
func (c *wsConn) keepalive(ctx context.Context, done <-chan struct{}) {
	interval := c.readWait - c.pingWait
	if interval <= 0 {
		interval = c.pingWait
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	//nolint:errcheck // Best-effort deadline; ping error caught by caller
	c.conn.SetWriteDeadline(time.Now().Add(c.pingWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}
