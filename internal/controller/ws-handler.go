package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/wsconn"
)

const mediaInfoTimeout = 5 * time.Second

func (c controller) requireSession(ctx context.Context) (connection.Session, error) {
	session, ok := c.getSessionFromCtx(ctx)
	if !ok {
		return connection.Session{}, room.ErrNotInRoom
	}

	return session, nil
}

func (c controller) handleCreateRoom(ctx context.Context, conn *wsconn.Conn, input protocol.CreateRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors
	}

	createRoomResp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		Conn:        conn,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	c.logger.InfoContext(ctx, "room created", "room_code", createRoomResp.Session.RoomCode, "user_id", createRoomResp.Session.UserID)

	return nil
}

func (c controller) handleJoinRoom(ctx context.Context, conn *wsconn.Conn, input protocol.JoinRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors
	}

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Conn:        conn,
		RoomCode:    input.RoomCode,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.logger.InfoContext(ctx, "room joined", "room_code", joinRoomResp.Session.RoomCode, "user_id", joinRoomResp.Session.UserID)

	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *wsconn.Conn, _ protocol.EmptyInput) error {
	leaveResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		Conn:     conn,
		Explicit: true,
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	c.logLeave(ctx, &leaveResp)

	return nil
}

func (c controller) handleRequestSync(ctx context.Context, conn *wsconn.Conn, _ protocol.EmptyInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.RequestSync(ctx, &room.RequestSyncParams{
		Session: session,
		Conn:    conn,
	}); err != nil {
		return fmt.Errorf("failed to request sync: %w", err)
	}

	return nil
}

func (c controller) handlePingKeepAlive(_ context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	return nil
}

func (c controller) handleAddSong(ctx context.Context, _ *wsconn.Conn, input protocol.AddSongInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors
	}

	if input.Title == "" {
		c.fillMediaInfo(ctx, &input)
	}

	if _, err := c.roomService.AddTrack(ctx, &room.AddTrackParams{
		Session:      session,
		MediaRef:     input.MediaRef,
		Title:        input.Title,
		ThumbnailRef: input.ThumbnailRef,
		AddedBy:      input.AddedBy,
	}); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	return nil
}

// fillMediaInfo looks up the title of a track the client sent without one.
// Lookup failures leave the default title in place.
func (c controller) fillMediaInfo(ctx context.Context, input *protocol.AddSongInput) {
	if c.mediaInfo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, mediaInfoTimeout)
	defer cancel()

	videoData, err := c.mediaInfo.Get(ctx, input.MediaRef)
	if err != nil {
		c.logger.DebugContext(ctx, "failed to get media info", "media_ref", input.MediaRef, "error", err)
		return
	}

	input.Title = videoData.Title
	if input.ThumbnailRef == "" {
		input.ThumbnailRef = videoData.ThumbnailURL
	}
}

func (c controller) handleRemoveSong(ctx context.Context, _ *wsconn.Conn, input protocol.RemoveSongInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors
	}

	if _, err := c.roomService.RemoveTrack(ctx, &room.RemoveTrackParams{
		Session: session,
		TrackID: input.TrackID,
	}); err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}

	return nil
}

func (c controller) handleReorderQueue(ctx context.Context, _ *wsconn.Conn, input protocol.ReorderQueueInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	trackIDs := make([]string, 0, len(input.Queue))
	for _, track := range input.Queue {
		trackIDs = append(trackIDs, track.ID)
	}

	if _, err := c.roomService.ReorderQueue(ctx, &room.ReorderQueueParams{
		Session:  session,
		TrackIDs: trackIDs,
	}); err != nil {
		return fmt.Errorf("failed to reorder queue: %w", err)
	}

	return nil
}

func (c controller) handlePlay(ctx context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.Play(ctx, &room.PlayerParams{Session: session}); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return nil
}

func (c controller) handlePause(ctx context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.Pause(ctx, &room.PlayerParams{Session: session}); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return nil
}

func (c controller) handleNextSong(ctx context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.Next(ctx, &room.PlayerParams{Session: session}); err != nil {
		return fmt.Errorf("failed to skip to next song: %w", err)
	}

	return nil
}

func (c controller) handlePrevSong(ctx context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.Prev(ctx, &room.PlayerParams{Session: session}); err != nil {
		return fmt.Errorf("failed to skip to previous song: %w", err)
	}

	return nil
}

func (c controller) handlePlaySong(ctx context.Context, _ *wsconn.Conn, input protocol.PlaySongInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors
	}

	if _, err := c.roomService.PlayAt(ctx, &room.PlayAtParams{
		Session: session,
		Index:   input.Index,
	}); err != nil {
		return fmt.Errorf("failed to play song: %w", err)
	}

	return nil
}

func (c controller) handleSongEnded(ctx context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.TrackEnded(ctx, &room.PlayerParams{Session: session}); err != nil {
		return fmt.Errorf("failed to end song: %w", err)
	}

	return nil
}

func (c controller) handleSyncTime(ctx context.Context, _ *wsconn.Conn, input protocol.SyncTimeInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors
	}

	if _, err := c.roomService.SyncTime(ctx, &room.SyncTimeParams{
		Session:  session,
		Position: input.Position,
	}); err != nil {
		return fmt.Errorf("failed to sync time: %w", err)
	}

	return nil
}

func (c controller) handleSetRepeat(ctx context.Context, _ *wsconn.Conn, input protocol.ToggleInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.SetRepeat(ctx, &room.ToggleParams{
		Session: session,
		Enabled: input.Enabled,
	}); err != nil {
		return fmt.Errorf("failed to set repeat: %w", err)
	}

	return nil
}

func (c controller) handleSetAutoQueue(ctx context.Context, _ *wsconn.Conn, input protocol.ToggleInput) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if _, err := c.roomService.SetAutoQueue(ctx, &room.ToggleParams{
		Session: session,
		Enabled: input.Enabled,
	}); err != nil {
		return fmt.Errorf("failed to set auto queue: %w", err)
	}

	return nil
}
