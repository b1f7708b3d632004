package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syncbeats/server/internal/client/autoqueue"
	"github.com/syncbeats/server/internal/client/playsync"
	"github.com/syncbeats/server/internal/client/reconnect"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/wsconn"
	"github.com/syncbeats/server/pkg/wsrouter"
)

func (c *Client) handleRoomEntered(ctx context.Context, _ *wsconn.Conn, p protocol.RoomEnteredPayload) error {
	c.mu.Lock()
	c.room = roomStateFromSnapshot(p.Room)
	c.room.UserID = p.UserID
	c.room.IsHost = p.IsHost
	displayName := ""
	for _, user := range p.Room.Users {
		if user.ID == p.UserID {
			displayName = user.DisplayName
		}
	}
	c.mu.Unlock()

	c.membership.Entered(reconnect.Membership{
		RoomCode:    p.RoomCode,
		DisplayName: displayName,
		IsHost:      p.IsHost,
	})

	if p.IsHost {
		c.startHostSync(ctx)
	}

	c.applySnapshot(ctx, p.Room)
	c.emit(Event{Type: wsrouter.GetMessageTypeFromCtx(ctx), Message: p.RoomCode})
	c.checkAutoQueue(ctx)

	return nil
}

func (c *Client) handleUserJoined(_ context.Context, _ *wsconn.Conn, p protocol.MembershipPayload) error {
	c.mu.Lock()
	c.room.Users = p.Users
	c.mu.Unlock()

	c.emit(Event{Type: protocol.UserJoined, Message: p.User.DisplayName})
	return nil
}

func (c *Client) handleUserLeft(_ context.Context, _ *wsconn.Conn, p protocol.MembershipPayload) error {
	c.mu.Lock()
	c.room.Users = p.Users
	c.mu.Unlock()

	c.emit(Event{Type: protocol.UserLeft, Message: p.User.DisplayName})
	return nil
}

// handleQueueUpdated reloads the player when the track under the cursor
// changed, which happens when the first track is added or the current one
// is removed.
func (c *Client) handleQueueUpdated(ctx context.Context, _ *wsconn.Conn, p protocol.QueuePayload) error {
	c.mu.Lock()
	c.room.Queue = p.Queue
	c.room.CurrentIndex = p.CurrentIndex
	current, hasCurrent := c.room.CurrentTrack()
	changed := current.MediaRef != c.loadedRef
	isPlaying := c.room.IsPlaying
	c.mu.Unlock()

	if changed {
		if hasCurrent {
			c.load(ctx, playsync.Target{MediaRef: current.MediaRef, IsPlaying: isPlaying}, false)
		} else {
			c.unload()
		}
	}

	c.emit(Event{Type: protocol.QueueUpdated})
	c.checkAutoQueue(ctx)
	return nil
}

func (c *Client) handleSongChanged(ctx context.Context, _ *wsconn.Conn, p protocol.SongChangedPayload) error {
	c.mu.Lock()
	c.room.CurrentIndex = p.CurrentIndex
	c.room.IsPlaying = p.IsPlaying
	current, ok := c.room.CurrentTrack()
	c.mu.Unlock()

	if ok {
		c.load(ctx, playsync.Target{MediaRef: current.MediaRef, Position: p.Position, IsPlaying: p.IsPlaying}, true)
		c.emit(Event{Type: protocol.SongChanged, Message: current.Title})
	}

	c.checkAutoQueue(ctx)
	return nil
}

func (c *Client) handlePlaybackState(_ context.Context, _ *wsconn.Conn, p protocol.PlaybackStatePayload) error {
	c.mu.Lock()
	c.room.IsPlaying = p.IsPlaying
	c.mu.Unlock()

	if err := c.syncer.ApplyPlaybackState(p.IsPlaying, p.Position); err != nil {
		return fmt.Errorf("failed to apply playback state: %w", err)
	}

	c.emit(Event{Type: protocol.PlaybackState})
	return nil
}

func (c *Client) handleTimeSync(ctx context.Context, _ *wsconn.Conn, p protocol.TimeSyncPayload) error {
	if c.Room().IsHost {
		return nil
	}

	if c.syncer.ApplyTimeSync(p.Position) {
		c.logger.DebugContext(ctx, "corrected drift", "position", p.Position)
	}
	return nil
}

// handleFullSync only corrects position and play state when the snapshot's
// track is already loaded.
func (c *Client) handleFullSync(ctx context.Context, _ *wsconn.Conn, p protocol.FullSyncPayload) error {
	c.mu.Lock()
	userID, isHost := c.room.UserID, c.room.IsHost
	c.room = roomStateFromSnapshot(p.Room)
	c.room.UserID, c.room.IsHost = userID, isHost
	current, ok := c.room.CurrentTrack()
	sameTrack := ok && current.MediaRef == c.loadedRef
	c.mu.Unlock()

	if sameTrack {
		if err := c.syncer.ApplyPlaybackState(p.Room.IsPlaying, p.Room.Position); err != nil {
			return fmt.Errorf("failed to apply full sync: %w", err)
		}
	} else {
		c.applySnapshot(ctx, p.Room)
	}

	c.emit(Event{Type: protocol.FullSync})
	return nil
}

func (c *Client) handleSettingsUpdated(ctx context.Context, _ *wsconn.Conn, p protocol.SettingsPayload) error {
	c.mu.Lock()
	c.room.Repeat = p.Repeat
	c.room.AutoQueue = p.AutoQueue
	c.mu.Unlock()

	c.emit(Event{Type: protocol.SettingsUpdated})
	c.checkAutoQueue(ctx)
	return nil
}

func (c *Client) handleRoomClosed(ctx context.Context, _ *wsconn.Conn, p protocol.MessagePayload) error {
	c.leftRoom()
	c.logger.InfoContext(ctx, "room closed", "message", p.Message)
	c.emit(Event{Type: protocol.RoomClosed, Message: p.Message})
	return nil
}

func (c *Client) handleLeftRoom(_ context.Context, _ *wsconn.Conn, _ protocol.EmptyInput) error {
	c.leftRoom()
	c.emit(Event{Type: protocol.LeftRoom})
	return nil
}

// handleError drops a pending join the server refused. A refused rejoin
// ends the membership for good.
func (c *Client) handleError(ctx context.Context, _ *wsconn.Conn, p protocol.MessagePayload) error {
	switch c.membership.State() {
	case reconnect.Reconnecting:
		c.leftRoom()
		c.logger.InfoContext(ctx, "rejoin refused", "message", p.Message)
		c.emit(Event{Type: protocol.RejoinFailed, Message: p.Message})
		return nil
	case reconnect.Joining:
		c.membership.Reset()
	}

	c.logger.DebugContext(ctx, "server error", "message", p.Message)
	c.emit(Event{Type: protocol.Error, Message: p.Message})
	return nil
}

func roomStateFromSnapshot(snap domain.Snapshot) RoomState {
	return RoomState{
		RoomCode:     snap.RoomCode,
		Queue:        snap.Queue,
		CurrentIndex: snap.CurrentIndex,
		IsPlaying:    snap.IsPlaying,
		Users:        snap.Users,
		Repeat:       snap.Repeat,
		AutoQueue:    snap.AutoQueue,
	}
}

func (c *Client) applySnapshot(ctx context.Context, snap domain.Snapshot) {
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Queue) {
		c.unload()
		return
	}

	c.load(ctx, playsync.Target{
		MediaRef:  snap.Queue[snap.CurrentIndex].MediaRef,
		Position:  snap.Position,
		IsPlaying: snap.IsPlaying,
	}, false)
}

// load hard syncs the player in the background. A failed track makes the
// host skip ahead after the advance delay. With resync set, a guest asks for
// a fresh snapshot once playback started to make up for the load time.
func (c *Client) load(ctx context.Context, target playsync.Target, resync bool) {
	c.mu.Lock()
	c.loadedRef = target.MediaRef
	c.mu.Unlock()

	go func() {
		err := c.syncer.HardSync(ctx, target)
		switch {
		case err == nil:
			if resync && target.IsPlaying && !c.Room().IsHost {
				c.after(c.resyncDelay, func() {
					if err := c.RequestSync(ctx); err != nil {
						c.logger.DebugContext(ctx, "failed to request sync", "error", err)
					}
				})
			}
		case errors.Is(err, playsync.ErrSuperseded), errors.Is(err, context.Canceled):
		default:
			c.logger.WarnContext(ctx, "failed to load track", "media_ref", target.MediaRef, "error", err)
			c.emit(Event{Type: Notice, Message: "Could not play this track, skipping."})

			if c.Room().IsHost {
				c.after(c.advanceDelay, func() {
					if err := c.Next(ctx); err != nil {
						c.logger.DebugContext(ctx, "failed to skip track", "error", err)
					}
				})
			}
		}
	}()
}

func (c *Client) unload() {
	c.mu.Lock()
	c.loadedRef = ""
	c.mu.Unlock()

	c.syncer.Stop()
}

// startHostSync reports the host's position to the room while playing.
func (c *Client) startHostSync(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.membership.Track(cancel)

	go func() {
		ticker := time.NewTicker(c.syncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.Room().IsPlaying {
					continue
				}
				if err := c.send(ctx, protocol.SyncTime, protocol.SyncTimeInput{Position: c.player.Position()}); err != nil {
					c.logger.DebugContext(ctx, "failed to send sync time", "error", err)
				}
			}
		}
	}()
}

// checkAutoQueue tops up the queue when the host has auto-queue on and the
// queue is about to run out.
func (c *Client) checkAutoQueue(ctx context.Context) {
	room := c.Room()
	if !room.IsHost || !room.AutoQueue || !autoqueue.ShouldRun(len(room.Queue), room.CurrentIndex) {
		return
	}
	if c.advisor.Running() {
		return
	}

	go func() {
		added, err := c.advisor.Run(ctx, room.Queue, room.CurrentIndex, c.AddSong)
		switch {
		case errors.Is(err, autoqueue.ErrBusy), errors.Is(err, context.Canceled):
			return
		case err != nil:
			c.logger.InfoContext(ctx, "auto queue found nothing to add", "error", err)
		}

		if added > 0 {
			c.emit(Event{Type: Notice, Message: fmt.Sprintf("Auto-queued %d songs.", added)})
		}
	}()
}
