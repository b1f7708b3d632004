package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/wsconn"
)

type publisher struct {
	logger *slog.Logger
}

// NewPublisher renders room events as protocol messages. The room service
// calls it from the room's outbox.
func NewPublisher(logger *slog.Logger) *publisher {
	return &publisher{logger: logger}
}

func (p publisher) Publish(ctx context.Context, event room.Event) {
	var err error
	switch e := event.(type) {
	case room.CreateRoomResponse:
		err = p.publishRoomCreated(ctx, &e)
	case room.JoinRoomResponse:
		err = p.publishRoomJoined(ctx, &e)
	case room.LeaveRoomResponse:
		err = p.publishLeave(ctx, &e)
	case room.RequestSyncResponse:
		err = p.publishFullSync(ctx, &e)
	case room.QueueResponse:
		err = p.publishQueue(ctx, &e)
	case room.PlaybackStateResponse:
		err = p.publishPlaybackState(ctx, &e)
	case room.SongChangedResponse:
		err = p.publishSongChanged(ctx, &e)
	case room.TrackEndedResponse:
		err = p.publishTrackEnded(ctx, &e)
	case room.SyncTimeResponse:
		err = p.publishTimeSync(ctx, &e)
	case room.SettingsResponse:
		err = p.publishSettings(ctx, &e)
	default:
		err = fmt.Errorf("unknown event %T", event)
	}

	if err != nil {
		p.logger.WarnContext(ctx, "failed to publish room event", "error", err)
	}
}

func (p publisher) publishRoomCreated(ctx context.Context, resp *room.CreateRoomResponse) error {
	if err := p.write(ctx, resp.Conn, &protocol.Message{
		Type: protocol.RoomCreated,
		Payload: protocol.RoomEnteredPayload{
			RoomCode: resp.Session.RoomCode,
			UserID:   resp.Session.UserID,
			IsHost:   true,
			Room:     resp.Snapshot,
		},
	}); err != nil {
		return fmt.Errorf("failed to write room created: %w", err)
	}

	return nil
}

func (p publisher) publishRoomJoined(ctx context.Context, resp *room.JoinRoomResponse) error {
	if err := p.write(ctx, resp.Conn, &protocol.Message{
		Type: protocol.RoomJoined,
		Payload: protocol.RoomEnteredPayload{
			RoomCode: resp.Session.RoomCode,
			UserID:   resp.Session.UserID,
			IsHost:   false,
			Room:     resp.Snapshot,
		},
	}); err != nil {
		return fmt.Errorf("failed to write room joined: %w", err)
	}

	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type: protocol.UserJoined,
		Payload: protocol.MembershipPayload{
			User:  resp.JoinedUser,
			Users: resp.Users,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast user joined: %w", err)
	}

	return nil
}

func (p publisher) publishLeave(ctx context.Context, resp *room.LeaveRoomResponse) error {
	var errs []error
	if resp.Explicit {
		if err := p.write(ctx, resp.Conn, &protocol.Message{
			Type:    protocol.LeftRoom,
			Payload: protocol.EmptyInput{},
		}); err != nil {
			errs = append(errs, fmt.Errorf("failed to write left room: %w", err))
		}
	}

	if resp.RoomClosed {
		if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
			Type:    protocol.RoomClosed,
			Payload: protocol.MessagePayload{Message: protocol.MessageHostLeft},
		}); err != nil {
			errs = append(errs, fmt.Errorf("failed to broadcast room closed: %w", err))
		}

		return errors.Join(errs...)
	}

	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type: protocol.UserLeft,
		Payload: protocol.MembershipPayload{
			User:  resp.User,
			Users: resp.Users,
		},
	}); err != nil {
		errs = append(errs, fmt.Errorf("failed to broadcast user left: %w", err))
	}

	return errors.Join(errs...)
}

func (p publisher) publishFullSync(ctx context.Context, resp *room.RequestSyncResponse) error {
	if err := p.write(ctx, resp.Conn, &protocol.Message{
		Type:    protocol.FullSync,
		Payload: protocol.FullSyncPayload{Room: resp.Snapshot},
	}); err != nil {
		return fmt.Errorf("failed to write full sync: %w", err)
	}

	return nil
}

func (p publisher) publishQueue(ctx context.Context, resp *room.QueueResponse) error {
	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type: protocol.QueueUpdated,
		Payload: protocol.QueuePayload{
			Queue:        resp.Queue,
			CurrentIndex: resp.CurrentIndex,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast queue updated: %w", err)
	}

	return nil
}

func (p publisher) publishPlaybackState(ctx context.Context, resp *room.PlaybackStateResponse) error {
	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type: protocol.PlaybackState,
		Payload: protocol.PlaybackStatePayload{
			IsPlaying: resp.IsPlaying,
			Position:  resp.Position,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast playback state: %w", err)
	}

	return nil
}

func (p publisher) publishSongChanged(ctx context.Context, resp *room.SongChangedResponse) error {
	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type: protocol.SongChanged,
		Payload: protocol.SongChangedPayload{
			CurrentIndex: resp.CurrentIndex,
			Position:     resp.Position,
			IsPlaying:    resp.IsPlaying,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast song changed: %w", err)
	}

	return nil
}

// publishTrackEnded sends song-changed when the room moved on and
// playback-state when the last track ended without repeat.
func (p publisher) publishTrackEnded(ctx context.Context, resp *room.TrackEndedResponse) error {
	if resp.Stopped {
		return p.publishPlaybackState(ctx, &room.PlaybackStateResponse{
			IsPlaying: resp.IsPlaying,
			Position:  resp.Position,
			Conns:     resp.Conns,
		})
	}

	return p.publishSongChanged(ctx, &room.SongChangedResponse{
		CurrentIndex: resp.CurrentIndex,
		Position:     resp.Position,
		IsPlaying:    resp.IsPlaying,
		Conns:        resp.Conns,
	})
}

func (p publisher) publishTimeSync(ctx context.Context, resp *room.SyncTimeResponse) error {
	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type:    protocol.TimeSync,
		Payload: protocol.TimeSyncPayload{Position: resp.Position},
	}); err != nil {
		return fmt.Errorf("failed to broadcast time sync: %w", err)
	}

	return nil
}

func (p publisher) publishSettings(ctx context.Context, resp *room.SettingsResponse) error {
	if err := p.broadcast(ctx, resp.Conns, &protocol.Message{
		Type: protocol.SettingsUpdated,
		Payload: protocol.SettingsPayload{
			Repeat:    resp.Settings.Repeat,
			AutoQueue: resp.Settings.AutoQueue,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast settings updated: %w", err)
	}

	return nil
}

// write skips a nil conn, which callers that only want the return value of
// a service call leave unset.
func (p publisher) write(ctx context.Context, conn *wsconn.Conn, msg *protocol.Message) error {
	if conn == nil {
		return nil
	}

	return writeToConn(ctx, p.logger, conn, msg)
}

// broadcast writes msg to every conn. A failing connection does not stop
// delivery to the rest; its read loop will notice the broken socket.
func (p publisher) broadcast(ctx context.Context, conns []*wsconn.Conn, msg *protocol.Message) error {
	var errs []error
	for _, conn := range conns {
		if err := writeToConn(ctx, p.logger, conn, msg); err != nil {
			errs = append(errs, fmt.Errorf("conn %s: %w", conn.ID(), err))
		}
	}

	return errors.Join(errs...)
}
