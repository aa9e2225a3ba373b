package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/meiao/sizematters-server/internal/protocol"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const writeWait = 5 * time.Second

// Client is one participant's websocket connection. It implements
// room.Sender: a full or closed send buffer is a delivery failure,
// which the room subsystem treats as an implicit leave.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.RWMutex
	closed bool
}

func newClient(userID string, conn *websocket.Conn, sendBuffer int) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) UserID() string { return c.userID }

// Send encodes the message and queues it for the write pump without
// blocking.
func (c *Client) Send(msg protocol.Outbound) error {
	data, err := protocol.EncodeOutbound(msg)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
	log.Info().Str("module", "ws").Str("user", c.userID).Msg("connection closed")
}
