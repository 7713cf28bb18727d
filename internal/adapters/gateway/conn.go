// Package gateway is the websocket transport: it upgrades, authenticates,
// pumps frames and translates inbound envelopes into orchestrator calls.
// Everything stateful lives behind core.Session; the gateway owns only the
// wire.
package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// Conn is one live websocket bound to a user. It implements core.Session.
// Events are encoded at enqueue time so a slow socket cannot block the
// caller; a full buffer is reported as backpressure and the registry drops
// the session.
type Conn struct {
	id   core.SessionID
	uid  domain.UserID
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(id core.SessionID, uid domain.UserID, ws *websocket.Conn, buffer int) *Conn {
	return &Conn{
		id:   id,
		uid:  uid,
		conn: ws,
		send: make(chan []byte, buffer),
	}
}

func (c *Conn) ID() core.SessionID    { return c.id }
func (c *Conn) UserID() domain.UserID { return c.uid }

func (c *Conn) TrySend(ev core.Event) error {
	data, err := core.Encode(ev)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Conn) enqueue(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// writePump owns all writes on the socket, data and pings both. It exits
// when the send channel closes or a write fails; either way the socket is
// dead afterward.
func (c *Conn) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "adapters.gateway").
					Str("sid", string(c.id)).Msg("write failed")
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
