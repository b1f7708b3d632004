package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syncbeats/server/internal/client/reconnect"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/ytmedia"
)

// MaxTrackSeconds is the longest search result that can be added.
const MaxTrackSeconds = 600

var (
	ErrTrackTooLong = errors.New("track is longer than 10 minutes")
	ErrBadMove      = errors.New("move position out of range")
)

func (c *Client) CreateRoom(ctx context.Context, displayName string) error {
	if c.membership.State() != reconnect.Unjoined {
		return ErrAlreadyInRoom
	}

	c.membership.BeginJoin()
	if err := c.send(ctx, protocol.CreateRoom, protocol.CreateRoomInput{DisplayName: displayName}); err != nil {
		c.membership.Reset()
		return err
	}
	return nil
}

func (c *Client) JoinRoom(ctx context.Context, roomCode, displayName string) error {
	if c.membership.State() != reconnect.Unjoined {
		return ErrAlreadyInRoom
	}

	c.membership.BeginJoin()
	if err := c.send(ctx, protocol.JoinRoom, protocol.JoinRoomInput{
		RoomCode:    strings.ToUpper(strings.TrimSpace(roomCode)),
		DisplayName: displayName,
	}); err != nil {
		c.membership.Reset()
		return err
	}
	return nil
}

func (c *Client) LeaveRoom(ctx context.Context) error {
	if _, ok := c.membership.Membership(); !ok {
		return ErrNotInRoom
	}

	return c.send(ctx, protocol.LeaveRoom, nil)
}

// AddSong submits a track. It has the shape of autoqueue.AddFunc.
func (c *Client) AddSong(ctx context.Context, input protocol.AddSongInput) error {
	return c.send(ctx, protocol.AddSong, input)
}

// AddByURL adds a video by link or bare id. The server fills in the title.
func (c *Client) AddByURL(ctx context.Context, link string) error {
	id, err := ytmedia.ExtractID(link)
	if err != nil {
		return err
	}

	return c.AddSong(ctx, protocol.AddSongInput{
		MediaRef:     id,
		ThumbnailRef: ytmedia.DefaultThumbnail(id),
	})
}

// AddSearchResult adds a search result unless it runs over MaxTrackSeconds.
func (c *Client) AddSearchResult(ctx context.Context, result ytmedia.SearchResult) error {
	if result.DurationSeconds > MaxTrackSeconds {
		return ErrTrackTooLong
	}

	return c.AddSong(ctx, protocol.AddSongInput{
		MediaRef:     result.MediaRef,
		Title:        result.Title,
		ThumbnailRef: result.ThumbnailRef,
	})
}

func (c *Client) RemoveSong(ctx context.Context, trackID string) error {
	return c.send(ctx, protocol.RemoveSong, protocol.RemoveSongInput{TrackID: trackID})
}

func (c *Client) ReorderQueue(ctx context.Context, queue []domain.Track) error {
	return c.send(ctx, protocol.ReorderQueue, protocol.ReorderQueueInput{Queue: queue})
}

// MoveTrack moves the track at from to position to and submits the new order.
func (c *Client) MoveTrack(ctx context.Context, from, to int) error {
	queue := c.Room().Queue
	if from < 0 || from >= len(queue) || to < 0 || to >= len(queue) {
		return ErrBadMove
	}

	track := queue[from]
	queue = append(queue[:from], queue[from+1:]...)
	queue = append(queue[:to], append([]domain.Track{track}, queue[to:]...)...)

	return c.ReorderQueue(ctx, queue)
}

func (c *Client) Play(ctx context.Context) error {
	return c.send(ctx, protocol.Play, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.send(ctx, protocol.Pause, nil)
}

func (c *Client) Next(ctx context.Context) error {
	return c.send(ctx, protocol.NextSong, nil)
}

func (c *Client) Prev(ctx context.Context) error {
	return c.send(ctx, protocol.PrevSong, nil)
}

func (c *Client) PlayAt(ctx context.Context, index int) error {
	return c.send(ctx, protocol.PlaySong, protocol.PlaySongInput{Index: index})
}

// SongEnded reports the end of the current track. With repeat on, the end of
// the last track restarts the queue.
func (c *Client) SongEnded(ctx context.Context) error {
	room := c.Room()
	if room.Repeat && len(room.Queue) > 0 && room.CurrentIndex == len(room.Queue)-1 {
		return c.PlayAt(ctx, 0)
	}

	return c.send(ctx, protocol.SongEnded, nil)
}

func (c *Client) SetRepeat(ctx context.Context, enabled bool) error {
	return c.send(ctx, protocol.SetRepeat, protocol.ToggleInput{Enabled: enabled})
}

func (c *Client) SetAutoQueue(ctx context.Context, enabled bool) error {
	return c.send(ctx, protocol.SetAutoQueue, protocol.ToggleInput{Enabled: enabled})
}

func (c *Client) RequestSync(ctx context.Context) error {
	if _, ok := c.membership.Membership(); !ok {
		return ErrNotInRoom
	}

	if err := c.send(ctx, protocol.RequestSync, nil); err != nil {
		return fmt.Errorf("failed to request sync: %w", err)
	}
	return nil
}
