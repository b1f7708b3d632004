package controller

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/validator"
	"github.com/syncbeats/server/pkg/wsconn"
	"github.com/syncbeats/server/pkg/wsrouter"
)

// senderErrors are reported back to the connection that caused them.
var senderErrors = []struct {
	err     error
	message string
}{
	{room.ErrRoomNotFound, protocol.MessageRoomNotFound},
	{room.ErrTrackNotFound, protocol.MessageTrackNotFound},
	{room.ErrAlreadyInRoom, protocol.MessageAlreadyInRoom},
	{room.ErrRoomFull, protocol.MessageRoomFull},
	{room.ErrQueueFull, protocol.MessageQueueFull},
}

// ignoredErrors are dropped without a reply so that guests learn nothing
// about who hosts the room.
var ignoredErrors = []error{
	room.ErrPermissionDenied,
	room.ErrNotInRoom,
	room.ErrNoChange,
	room.ErrIndexOutOfRange,
	wsrouter.ErrUnknownMessageType,
	wsrouter.ErrInvalidPayload,
}

// rejectedErrors get no reply either, but only a broken client sends them.
var rejectedErrors = []error{
	room.ErrInvalidOrder,
}

func (c controller) handleWSError(ctx context.Context, conn *wsconn.Conn, err error) {
	for _, e := range senderErrors {
		if errors.Is(err, e.err) {
			c.logger.DebugContext(ctx, "reporting error to sender", "error", err)
			if writeErr := c.writeError(ctx, conn, e.message); writeErr != nil {
				c.logger.DebugContext(ctx, "failed to write error", "error", writeErr)
			}
			return
		}
	}

	for _, e := range rejectedErrors {
		if errors.Is(err, e) {
			c.logger.WarnContext(ctx, "message rejected", "error", err)
			return
		}
	}

	if isIgnored(err) {
		c.logger.DebugContext(ctx, "message ignored", "error", err)
		return
	}

	c.logger.WarnContext(ctx, "failed to handle message", "error", err)
}

func isIgnored(err error) bool {
	for _, e := range ignoredErrors {
		if errors.Is(err, e) {
			return true
		}
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return true
	}

	var ozzoErrors validation.Errors
	if errors.As(err, &ozzoErrors) {
		return true
	}

	var ozzoError validation.Error
	return errors.As(err, &ozzoError)
}
