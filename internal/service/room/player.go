package room

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/pkg/wsconn"
)

type PlayerParams struct {
	Session connection.Session
}

type PlaybackStateResponse struct {
	IsPlaying bool
	Position  float64
	Conns     []*wsconn.Conn
}

func (PlaybackStateResponse) roomEvent() {}

type SongChangedResponse struct {
	CurrentIndex int
	Position     float64
	IsPlaying    bool
	Conns        []*wsconn.Conn
}

func (SongChangedResponse) roomEvent() {}

func (s service) Play(ctx context.Context, params *PlayerParams) (PlaybackStateResponse, error) {
	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return PlaybackStateResponse{}, err
	}

	r.Play(s.now())

	return s.playbackStateResponse(ctx, r), nil
}

func (s service) Pause(ctx context.Context, params *PlayerParams) (PlaybackStateResponse, error) {
	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return PlaybackStateResponse{}, err
	}

	r.Pause(s.now())

	return s.playbackStateResponse(ctx, r), nil
}

func (s service) Next(ctx context.Context, params *PlayerParams) (SongChangedResponse, error) {
	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return SongChangedResponse{}, err
	}

	if r.Next(s.now()) == domain.NoChange {
		r.Mu.Unlock()
		return SongChangedResponse{}, ErrNoChange
	}

	return s.songChangedResponse(ctx, r), nil
}

func (s service) Prev(ctx context.Context, params *PlayerParams) (SongChangedResponse, error) {
	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return SongChangedResponse{}, err
	}

	if r.Prev(s.now()) == domain.NoChange {
		r.Mu.Unlock()
		return SongChangedResponse{}, ErrNoChange
	}

	return s.songChangedResponse(ctx, r), nil
}

type PlayAtParams struct {
	Session connection.Session
	Index   int
}

func (s service) PlayAt(ctx context.Context, params *PlayAtParams) (SongChangedResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Index, IndexRule...),
	); err != nil {
		return SongChangedResponse{}, err
	}

	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return SongChangedResponse{}, err
	}

	if err := r.PlayAt(params.Index, s.now()); err != nil {
		r.Mu.Unlock()
		return SongChangedResponse{}, err
	}

	return s.songChangedResponse(ctx, r), nil
}

type TrackEndedResponse struct {
	// Stopped is set when the last track ended without repeat; only the
	// playback state changed then.
	Stopped      bool
	CurrentIndex int
	Position     float64
	IsPlaying    bool
	Conns        []*wsconn.Conn
}

func (TrackEndedResponse) roomEvent() {}

func (s service) TrackEnded(ctx context.Context, params *PlayerParams) (TrackEndedResponse, error) {
	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return TrackEndedResponse{}, err
	}

	change := r.TrackEnded(s.now())
	if change == domain.NoChange {
		r.Mu.Unlock()
		return TrackEndedResponse{}, ErrNoChange
	}

	snap := r.Snapshot(s.now())
	resp := TrackEndedResponse{
		Stopped:      change == domain.PlaybackChanged,
		CurrentIndex: snap.CurrentIndex,
		Position:     snap.Position,
		IsPlaying:    snap.IsPlaying,
		Conns:        s.getConns(r, ""),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp, nil
}

type SyncTimeParams struct {
	Session  connection.Session
	Position float64
}

type SyncTimeResponse struct {
	Position float64
	// Conns excludes the host that reported the position.
	Conns []*wsconn.Conn
}

func (SyncTimeResponse) roomEvent() {}

func (s service) SyncTime(ctx context.Context, params *SyncTimeParams) (SyncTimeResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Position, PositionRule...),
	); err != nil {
		return SyncTimeResponse{}, err
	}

	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return SyncTimeResponse{}, err
	}

	r.SyncTime(params.Position, s.now())
	snap := r.Snapshot(s.now())
	resp := SyncTimeResponse{
		Position: params.Position,
		Conns:    s.getConns(r, params.Session.UserID),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp, nil
}

// playbackStateResponse publishes a play/pause change and releases r.
func (s service) playbackStateResponse(ctx context.Context, r *domain.Room) PlaybackStateResponse {
	snap := r.Snapshot(s.now())
	resp := PlaybackStateResponse{
		IsPlaying: snap.IsPlaying,
		Position:  snap.Position,
		Conns:     s.getConns(r, ""),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp
}

// songChangedResponse publishes an index change and releases r.
func (s service) songChangedResponse(ctx context.Context, r *domain.Room) SongChangedResponse {
	snap := r.Snapshot(s.now())
	resp := SongChangedResponse{
		CurrentIndex: snap.CurrentIndex,
		Position:     snap.Position,
		IsPlaying:    snap.IsPlaying,
		Conns:        s.getConns(r, ""),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp
}
