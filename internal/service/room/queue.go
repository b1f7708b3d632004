package room

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/pkg/wsconn"
)

type QueueResponse struct {
	Queue        []domain.Track
	CurrentIndex int
	Conns        []*wsconn.Conn
}

func (QueueResponse) roomEvent() {}

type AddTrackParams struct {
	Session      connection.Session
	MediaRef     string
	Title        string
	ThumbnailRef string
	// AddedBy overrides the sender's display name.
	AddedBy string
}

// AddTrack appends a track. Any member may add.
func (s service) AddTrack(ctx context.Context, params *AddTrackParams) (QueueResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.MediaRef, MediaRefRule...),
	); err != nil {
		return QueueResponse{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return QueueResponse{}, fmt.Errorf("failed to generate track id: %w", err)
	}

	r, err := s.lockMemberRoom(params.Session)
	if err != nil {
		return QueueResponse{}, err
	}

	addedBy := params.AddedBy
	if addedBy == "" {
		user, _, _ := r.Members.GetByID(params.Session.UserID)
		addedBy = user.DisplayName
	}

	if err := r.AddTrack(domain.Track{
		ID:           id.String(),
		MediaRef:     params.MediaRef,
		Title:        params.Title,
		AddedBy:      addedBy,
		ThumbnailRef: params.ThumbnailRef,
	}); err != nil {
		r.Mu.Unlock()
		if errors.Is(err, domain.ErrQueueLimitReached) {
			return QueueResponse{}, ErrQueueFull
		}
		return QueueResponse{}, fmt.Errorf("failed to add track: %w", err)
	}

	return s.queueResponse(ctx, r), nil
}

type RemoveTrackParams struct {
	Session connection.Session
	TrackID string
}

func (s service) RemoveTrack(ctx context.Context, params *RemoveTrackParams) (QueueResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.TrackID, TrackIDRule...),
	); err != nil {
		return QueueResponse{}, err
	}

	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return QueueResponse{}, err
	}

	if err := r.RemoveTrack(params.TrackID, s.now()); err != nil {
		r.Mu.Unlock()
		if errors.Is(err, domain.ErrTrackNotFound) {
			return QueueResponse{}, ErrTrackNotFound
		}
		return QueueResponse{}, fmt.Errorf("failed to remove track: %w", err)
	}

	return s.queueResponse(ctx, r), nil
}

type ReorderQueueParams struct {
	Session  connection.Session
	TrackIDs []string
}

// ReorderQueue accepts only permutations of the current queue. Track
// contents always come from the room, never from the request.
func (s service) ReorderQueue(ctx context.Context, params *ReorderQueueParams) (QueueResponse, error) {
	r, err := s.lockHostRoom(params.Session)
	if err != nil {
		return QueueResponse{}, err
	}

	if err := r.ReorderQueue(params.TrackIDs); err != nil {
		r.Mu.Unlock()
		return QueueResponse{}, fmt.Errorf("failed to reorder queue: %w", err)
	}

	return s.queueResponse(ctx, r), nil
}

// queueResponse publishes a queue mutation and releases r.
func (s service) queueResponse(ctx context.Context, r *domain.Room) QueueResponse {
	snap := r.Snapshot(s.now())
	resp := QueueResponse{
		Queue:        snap.Queue,
		CurrentIndex: snap.CurrentIndex,
		Conns:        s.getConns(r, ""),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp
}
