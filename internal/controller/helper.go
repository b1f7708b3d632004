package controller

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/wsconn"
)

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func writeToConn(ctx context.Context, logger *slog.Logger, conn *wsconn.Conn, msg *protocol.Message) error {
	if err := conn.WriteJSON(msg); err != nil {
		logger.DebugContext(ctx, "failed to write message", "conn_id", conn.ID(), "type", msg.Type, "error", err)
		return err
	}

	return nil
}

func (c controller) writeError(ctx context.Context, conn *wsconn.Conn, message string) error {
	return writeToConn(ctx, c.logger, conn, &protocol.Message{
		Type:    protocol.Error,
		Payload: protocol.MessagePayload{Message: message},
	})
}
