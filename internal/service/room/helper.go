package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	roomrepo "github.com/syncbeats/server/internal/repository/room"
	"github.com/syncbeats/server/pkg/wsconn"
)

// lockRoom returns the room with its mutex held. The caller unlocks.
func (s service) lockRoom(code string) (*domain.Room, error) {
	r, err := s.roomRepo.Get(code)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	r.Mu.Lock()
	if r.Closed() {
		r.Mu.Unlock()
		return nil, ErrRoomNotFound
	}

	return r, nil
}

// lockMemberRoom is lockRoom for a session whose user must still be a
// member of the room.
func (s service) lockMemberRoom(session connection.Session) (*domain.Room, error) {
	r, err := s.lockRoom(session.RoomCode)
	if err != nil {
		return nil, err
	}

	if _, _, err := r.Members.GetByID(session.UserID); err != nil {
		r.Mu.Unlock()
		return nil, ErrNotInRoom
	}

	return r, nil
}

// lockHostRoom is lockMemberRoom restricted to the room's host.
func (s service) lockHostRoom(session connection.Session) (*domain.Room, error) {
	r, err := s.lockMemberRoom(session)
	if err != nil {
		return nil, err
	}

	if !r.IsHost(session.UserID) {
		r.Mu.Unlock()
		return nil, ErrPermissionDenied
	}

	return r, nil
}

// getConns returns the connections of every member of r except exceptUserID.
// r.Mu must be held.
func (s service) getConns(r *domain.Room, exceptUserID string) []*wsconn.Conn {
	users := r.Members.AsList()
	conns := make([]*wsconn.Conn, 0, len(users))
	for _, user := range users {
		if user.ID == exceptUserID {
			continue
		}

		conn, err := s.connRepo.GetConn(user.ID)
		if err != nil {
			continue
		}
		conns = append(conns, conn)
	}

	return conns
}

// release queues job on the room's outbox, unlocks r and flushes the
// outbox. r.Mu must be held. job runs after every job queued before it on
// this room, and before any queued after it, so the mirror and connections
// see changes in the order they were applied.
func (s service) release(ctx context.Context, r *domain.Room, job func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	r.Outbox.Push(func() { job(ctx) })
	r.Mu.Unlock()
	r.Outbox.Flush()
}

// mirrorAndPublish is the usual outbox job: store the new state, then tell
// the connections.
func (s service) mirrorAndPublish(snapshot domain.Snapshot, event Event) func(context.Context) {
	return func(ctx context.Context) {
		s.mirror(ctx, snapshot)
		s.publish(ctx, event)
	}
}

func (s service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}

	s.publisher.Publish(ctx, event)
}

func (s service) mirror(ctx context.Context, snapshot domain.Snapshot) {
	if s.snapshotRepo == nil {
		return
	}

	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		slog.WarnContext(ctx, "failed to mirror room snapshot", "room_code", snapshot.RoomCode, "error", err)
	}
}

func (s service) unmirror(ctx context.Context, roomCode string) {
	if s.snapshotRepo == nil {
		return
	}

	if err := s.snapshotRepo.Delete(ctx, roomCode); err != nil {
		slog.WarnContext(ctx, "failed to delete mirrored room snapshot", "room_code", roomCode, "error", err)
	}
}
