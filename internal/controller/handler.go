package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/ctxlogger"
	"github.com/syncbeats/server/pkg/wsconn"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	conn := wsconn.New(ws)
	defer conn.Close()

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", conn.ID()))
	defer c.disconnect(ctx, conn)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.KeepAlive(ctx, pingPeriod, pongWait)
	c.logger.InfoContext(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.logger.InfoContext(ctx, "websocket closed unexpectedly", "error", err)
			return
		}
		c.logger.DebugContext(ctx, "websocket closed", "error", err)
	}
}

// disconnect treats a dropped connection like an explicit leave.
func (c controller) disconnect(ctx context.Context, conn *wsconn.Conn) {
	ctx = context.WithoutCancel(ctx)

	leaveResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{Conn: conn})
	if err != nil {
		if !errors.Is(err, room.ErrNotInRoom) {
			c.logger.WarnContext(ctx, "failed to leave room on disconnect", "error", err)
		}
		return
	}

	c.logLeave(ctx, &leaveResp)
}

func (c controller) logLeave(ctx context.Context, leaveResp *room.LeaveRoomResponse) {
	c.logger.InfoContext(ctx, "user left room",
		"room_code", leaveResp.Session.RoomCode,
		"user_id", leaveResp.User.ID,
		"room_closed", leaveResp.RoomClosed,
	)
}
