package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client is one WebSocket connection streaming a single channel
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	sub    *Subscription
	userID string

	done      chan struct{}
	closeOnce sync.Once
}

// Serve subscribes conn to ref and pumps events until either side closes.
// It blocks until the connection ends.
func Serve(hub *Hub, conn *websocket.Conn, ref domain.ChannelRef, userID string) error {
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		done:   make(chan struct{}),
	}

	sub, err := hub.Subscribe(ref, c.onEvent)
	if err != nil {
		conn.Close() //nolint:errcheck
		return err
	}
	c.sub = sub

	go c.WritePump()
	c.ReadPump()
	return nil
}

// onEvent runs on the subscription goroutine
func (c *Client) onEvent(ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		// a slow socket cannot keep up; drop it so the client reconnects and reconciles
		log := pkglogger.WithChannel(ev.Channel.Key())
		log.Warn().Str("user_id", c.userID).Msg("websocket send buffer full, closing")
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		c.conn.Close() //nolint:errcheck
	})
}

// ReadPump reads messages from the WebSocket (handles pong/close)
func (c *Client) ReadPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		// Client messages are ignored (server-push only)
	}
}

// WritePump sends messages to the WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))   //nolint:errcheck
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message) //nolint:errcheck
			if err := w.Close(); err != nil {
				return
			}

		case <-c.sub.Done():
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
