// Package client keeps a local player in sync with a SyncBeats room. It
// reconnects on transport failure and rejoins the room it was in.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syncbeats/server/internal/client/autoqueue"
	"github.com/syncbeats/server/internal/client/playsync"
	"github.com/syncbeats/server/internal/client/reconnect"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/wsconn"
	"github.com/syncbeats/server/pkg/wsrouter"
	"github.com/syncbeats/server/pkg/ytmedia"
)

const (
	defaultSyncInterval      = 2 * time.Second
	defaultKeepAliveInterval = 5 * time.Minute
	defaultRetryDelay        = time.Second
	defaultAdvanceDelay      = 2 * time.Second
	defaultResyncDelay       = 500 * time.Millisecond

	pingPeriod = 30 * time.Second
	pongWait   = 90 * time.Second
)

// Events raised locally, in addition to the server events.
const (
	Connected    = "connected"
	Disconnected = "disconnected"
	Notice       = "notice"
)

var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNotInRoom     = errors.New("not in a room")
)

// Media resolves streams and searches the catalogue. *ytmedia.Client
// implements it.
type Media interface {
	playsync.Resolver
	autoqueue.Searcher
}

type Event struct {
	Type    string
	Message string
}

// Config configures a Client. Player and Media are required.
type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://localhost:3001/api/v1/ws.
	ServerURL string
	Player    playsync.Player
	Media     Media
	Dialer    *websocket.Dialer
	Logger    *slog.Logger
	OnEvent   func(Event)

	SyncInterval      time.Duration
	KeepAliveInterval time.Duration
	RetryDelay        time.Duration
	AdvanceDelay      time.Duration
	ResyncDelay       time.Duration
	ReadyTimeout      time.Duration
}

// RoomState is the client's view of the room.
type RoomState struct {
	RoomCode     string
	UserID       string
	IsHost       bool
	Queue        []domain.Track
	CurrentIndex int
	IsPlaying    bool
	Users        []domain.User
	Repeat       bool
	AutoQueue    bool
}

// CurrentTrack returns the track at the cursor.
func (s RoomState) CurrentTrack() (domain.Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return domain.Track{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

type Client struct {
	serverURL string
	dialer    *websocket.Dialer
	player    playsync.Player
	media     Media
	logger    *slog.Logger
	onEvent   func(Event)

	syncInterval      time.Duration
	keepAliveInterval time.Duration
	retryDelay        time.Duration
	advanceDelay      time.Duration
	resyncDelay       time.Duration

	wsmux      *wsrouter.WSRouter
	membership *reconnect.Manager
	syncer     *playsync.Syncer
	advisor    *autoqueue.Advisor

	mu        sync.Mutex
	conn      *wsconn.Conn
	room      RoomState
	loadedRef string
}

func New(cfg *Config) *Client {
	c := &Client{
		serverURL:         cfg.ServerURL,
		dialer:            cfg.Dialer,
		player:            cfg.Player,
		media:             cfg.Media,
		logger:            cfg.Logger,
		onEvent:           cfg.OnEvent,
		syncInterval:      orDefault(cfg.SyncInterval, defaultSyncInterval),
		keepAliveInterval: orDefault(cfg.KeepAliveInterval, defaultKeepAliveInterval),
		retryDelay:        orDefault(cfg.RetryDelay, defaultRetryDelay),
		advanceDelay:      orDefault(cfg.AdvanceDelay, defaultAdvanceDelay),
		resyncDelay:       orDefault(cfg.ResyncDelay, defaultResyncDelay),
		membership:        reconnect.NewManager(),
	}

	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.onEvent == nil {
		c.onEvent = func(Event) {}
	}

	c.syncer = playsync.NewSyncer(c.player, c.media, &playsync.Config{ReadyTimeout: cfg.ReadyTimeout})
	c.advisor = autoqueue.NewAdvisor(c.media, nil)
	c.wsmux = c.getWSRouter()

	return c
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Run keeps a connection to the server until ctx is done, redialing after
// every transport failure.
func (c *Client) Run(ctx context.Context) error {
	go c.followTrackEnds(ctx)

	for {
		err := c.serve(ctx)

		c.membership.ConnectionLost()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.WarnContext(ctx, "connection lost", "error", err, "retry_in", c.retryDelay)
		c.emit(Event{Type: Disconnected, Message: err.Error()})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Client) serve(ctx context.Context) error {
	ws, _, err := c.dialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.serverURL, err)
	}

	conn := wsconn.New(ws)
	defer conn.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() { conn.Close() })
	defer stop()

	c.setConn(conn)
	defer c.setConn(nil)

	conn.KeepAlive(connCtx, pingPeriod, pongWait)
	go c.keepAlive(connCtx)

	c.logger.InfoContext(ctx, "connected", "server_url", c.serverURL, "conn_id", conn.ID())
	c.emit(Event{Type: Connected})

	c.rejoin(connCtx)

	return c.wsmux.ServeConn(connCtx, conn)
}

// rejoin asks the server to take this connection back into the room the
// previous connection was in.
func (c *Client) rejoin(ctx context.Context) {
	decision, err := c.membership.Reconnected()
	if err != nil {
		c.leftRoom()
		c.logger.InfoContext(ctx, "rejoin failed", "error", err)
		c.emit(Event{Type: protocol.RejoinFailed, Message: err.Error()})
		return
	}
	if !decision.Rejoin {
		return
	}

	c.logger.InfoContext(ctx, "rejoining room", "room_code", decision.Membership.RoomCode, "attempt", c.membership.Attempts())
	if err := c.send(ctx, protocol.JoinRoom, protocol.JoinRoomInput{
		RoomCode:    decision.Membership.RoomCode,
		DisplayName: decision.Membership.DisplayName,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to send rejoin", "error", err)
	}
}

// followTrackEnds tells the room when the local player finishes a track.
// Only the host reports; every guest's player ends at about the same time.
func (c *Client) followTrackEnds(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.player.Ended():
			room := c.Room()
			if !room.IsHost || c.State() != reconnect.InRoom {
				continue
			}

			c.logger.DebugContext(ctx, "track ended", "index", room.CurrentIndex)
			if err := c.SongEnded(ctx); err != nil {
				c.logger.WarnContext(ctx, "failed to report track end", "error", err)
			}
		}
	}
}

func (c *Client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.send(ctx, protocol.PingKeepAlive, nil); err != nil {
				c.logger.DebugContext(ctx, "failed to send keep alive", "error", err)
			}
		}
	}
}

func (c *Client) setConn(conn *wsconn.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

// Connected reports whether a connection to the server is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// State reports the membership state.
func (c *Client) State() reconnect.State {
	return c.membership.State()
}

// Room returns a copy of the client's view of the room.
func (c *Client) Room() RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.room
	room.Queue = append([]domain.Track(nil), c.room.Queue...)
	room.Users = append([]domain.User(nil), c.room.Users...)
	return room
}

func (c *Client) send(ctx context.Context, msgType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	if err := conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	c.logger.DebugContext(ctx, "message sent", "type", msgType)
	return nil
}

func (c *Client) emit(event Event) {
	c.onEvent(event)
}

// after runs fn once d has passed, unless the membership ends first.
func (c *Client) after(d time.Duration, fn func()) {
	timer := time.AfterFunc(d, fn)
	c.membership.Track(func() { timer.Stop() })
}

// leftRoom drops the membership and silences the player.
func (c *Client) leftRoom() {
	c.membership.Reset()
	c.syncer.Stop()

	c.mu.Lock()
	c.room = RoomState{}
	c.loadedRef = ""
	c.mu.Unlock()
}

// Search looks up songs to add.
func (c *Client) Search(ctx context.Context, query string) ([]ytmedia.SearchResult, error) {
	return c.media.Search(ctx, query)
}
