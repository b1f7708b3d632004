package client

import (
	"context"
	"errors"

	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/wsconn"
	"github.com/syncbeats/server/pkg/wsrouter"
)

func (c *Client) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.HandleError(c.handleWSError)

	wsrouter.Handle(mux, protocol.RoomCreated, c.handleRoomEntered)
	wsrouter.Handle(mux, protocol.RoomJoined, c.handleRoomEntered)
	wsrouter.Handle(mux, protocol.UserJoined, c.handleUserJoined)
	wsrouter.Handle(mux, protocol.UserLeft, c.handleUserLeft)
	wsrouter.Handle(mux, protocol.QueueUpdated, c.handleQueueUpdated)
	wsrouter.Handle(mux, protocol.SongChanged, c.handleSongChanged)
	wsrouter.Handle(mux, protocol.PlaybackState, c.handlePlaybackState)
	wsrouter.Handle(mux, protocol.TimeSync, c.handleTimeSync)
	wsrouter.Handle(mux, protocol.FullSync, c.handleFullSync)
	wsrouter.Handle(mux, protocol.SettingsUpdated, c.handleSettingsUpdated)
	wsrouter.Handle(mux, protocol.RoomClosed, c.handleRoomClosed)
	wsrouter.Handle(mux, protocol.LeftRoom, c.handleLeftRoom)
	wsrouter.Handle(mux, protocol.Error, c.handleError)

	return mux
}

func (c *Client) handleWSError(ctx context.Context, conn *wsconn.Conn, err error) {
	if errors.Is(err, wsrouter.ErrUnknownMessageType) {
		c.logger.DebugContext(ctx, "ignoring message", "conn_id", conn.ID(), "error", err)
		return
	}

	c.logger.WarnContext(ctx, "failed to handle message",
		"conn_id", conn.ID(),
		"type", wsrouter.GetMessageTypeFromCtx(ctx),
		"error", err,
	)
}
