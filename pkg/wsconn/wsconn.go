package wsconn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteWait = 10 * time.Second
)

// Conn is a websocket connection that is safe for concurrent writers.
// gorilla/websocket allows at most one concurrent writer and one reader.
type Conn struct {
	ws        *websocket.Conn
	id        string
	writeWait time.Duration
	mu        sync.Mutex
}

func New(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:        ws,
		id:        uuid.NewString(),
		writeWait: defaultWriteWait,
	}
}

// ID identifies the connection in logs.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}

	return c.ws.WriteJSON(v)
}

func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// KeepAlive pings the peer every pingPeriod until ctx is done and expires
// the read side when nothing, pongs included, arrives within pongWait.
// It must be called before the read loop starts.
func (c *Conn) KeepAlive(ctx context.Context, pingPeriod, pongWait time.Duration) {
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}
