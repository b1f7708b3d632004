package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	roomrepo "github.com/syncbeats/server/internal/repository/room"
	"github.com/syncbeats/server/internal/repository/snapshot"
	"github.com/syncbeats/server/pkg/wsconn"
)

type CreateRoomParams struct {
	Conn        *wsconn.Conn
	DisplayName string
}

type CreateRoomResponse struct {
	Conn     *wsconn.Conn
	Session  connection.Session
	Snapshot domain.Snapshot
}

func (CreateRoomResponse) roomEvent() {}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.DisplayName, DisplayNameRule...),
	); err != nil {
		return CreateRoomResponse{}, err
	}

	if _, err := s.connRepo.GetSession(params.Conn); err == nil {
		return CreateRoomResponse{}, ErrAlreadyInRoom
	}

	host := domain.User{
		ID:          uuid.NewString(),
		DisplayName: params.DisplayName,
		IsHost:      true,
	}

	r, err := s.roomRepo.Create(func(code string) *domain.Room {
		return domain.NewRoom(code, host, s.limits, s.now())
	})
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	session := connection.Session{
		RoomCode: r.Code,
		UserID:   host.ID,
		IsHost:   true,
	}

	r.Mu.Lock()
	if err := s.connRepo.Add(params.Conn, session); err != nil {
		r.Close()
		r.Mu.Unlock()
		s.roomRepo.Delete(r.Code)
		return CreateRoomResponse{}, fmt.Errorf("failed to add connection: %w", err)
	}
	snap := r.Snapshot(s.now())
	resp := CreateRoomResponse{
		Conn:     params.Conn,
		Session:  session,
		Snapshot: snap,
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp, nil
}

type JoinRoomParams struct {
	Conn        *wsconn.Conn
	RoomCode    string
	DisplayName string
}

type JoinRoomResponse struct {
	Conn       *wsconn.Conn
	Session    connection.Session
	Snapshot   domain.Snapshot
	JoinedUser domain.User
	Users      []domain.User
	// Conns includes the joined connection.
	Conns []*wsconn.Conn
}

func (JoinRoomResponse) roomEvent() {}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	params.RoomCode = roomrepo.NormalizeCode(params.RoomCode)

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.DisplayName, DisplayNameRule...),
	); err != nil {
		return JoinRoomResponse{}, err
	}

	// A code outside the alphabet can never name a live room.
	if err := validation.Validate(params.RoomCode, RoomCodeRule...); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("%w: %w", ErrRoomNotFound, err)
	}

	if _, err := s.connRepo.GetSession(params.Conn); err == nil {
		return JoinRoomResponse{}, ErrAlreadyInRoom
	}

	r, err := s.lockRoom(params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	user := domain.User{
		ID:          uuid.NewString(),
		DisplayName: params.DisplayName,
	}
	if err := r.Join(user); err != nil {
		r.Mu.Unlock()
		if errors.Is(err, domain.ErrMembersLimitReached) {
			return JoinRoomResponse{}, ErrRoomFull
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	session := connection.Session{
		RoomCode: r.Code,
		UserID:   user.ID,
		IsHost:   false,
	}
	if err := s.connRepo.Add(params.Conn, session); err != nil {
		r.Leave(user.ID)
		r.Mu.Unlock()
		return JoinRoomResponse{}, fmt.Errorf("failed to add connection: %w", err)
	}

	snap := r.Snapshot(s.now())
	resp := JoinRoomResponse{
		Conn:       params.Conn,
		Session:    session,
		Snapshot:   snap,
		JoinedUser: user,
		Users:      snap.Users,
		Conns:      s.getConns(r, ""),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp, nil
}

type LeaveRoomParams struct {
	Conn *wsconn.Conn
	// Explicit is set for a leave-room request, as opposed to a dropped
	// connection. Only an explicit leave is confirmed to the leaver.
	Explicit bool
}

type LeaveRoomResponse struct {
	Conn     *wsconn.Conn
	Explicit bool
	Session  connection.Session
	User     domain.User
	// RoomClosed reports that the host left and the room was destroyed.
	RoomClosed bool
	Users      []domain.User
	// Conns holds the members that remain, never the leaver.
	Conns []*wsconn.Conn
}

func (LeaveRoomResponse) roomEvent() {}

// LeaveRoom removes the connection's user from its room, on explicit leave
// and on disconnect alike. The host leaving destroys the room and detaches
// every remaining member.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	session, err := s.connRepo.RemoveByConn(params.Conn)
	if err != nil {
		return LeaveRoomResponse{}, ErrNotInRoom
	}

	r, err := s.lockRoom(session.RoomCode)
	if err != nil {
		return LeaveRoomResponse{Session: session}, err
	}

	user, err := r.Leave(session.UserID)
	if err != nil {
		r.Mu.Unlock()
		return LeaveRoomResponse{Session: session}, ErrNotInRoom
	}

	if !r.IsHost(session.UserID) {
		snap := r.Snapshot(s.now())
		resp := LeaveRoomResponse{
			Conn:     params.Conn,
			Explicit: params.Explicit,
			Session:  session,
			User:     user,
			Users:    snap.Users,
			Conns:    s.getConns(r, ""),
		}
		s.release(ctx, r, s.mirrorAndPublish(snap, resp))

		return resp, nil
	}

	resp := LeaveRoomResponse{
		Conn:       params.Conn,
		Explicit:   params.Explicit,
		Session:    session,
		User:       user,
		RoomClosed: true,
		Conns:      s.getConns(r, ""),
	}
	for _, member := range r.Members.AsList() {
		s.connRepo.RemoveByUserID(member.ID)
	}
	r.Close()
	if err := s.roomRepo.Delete(r.Code); err != nil && !errors.Is(err, roomrepo.ErrRoomNotFound) {
		r.Mu.Unlock()
		return LeaveRoomResponse{}, fmt.Errorf("failed to delete room: %w", err)
	}

	// Mirror writes queued before the close run first, so none of them can
	// bring the room back after this delete.
	s.release(ctx, r, func(ctx context.Context) {
		s.unmirror(ctx, session.RoomCode)
		s.publish(ctx, resp)
	})

	return resp, nil
}

type RequestSyncParams struct {
	Session connection.Session
	// Conn receives the snapshot. It may be nil when only the returned
	// snapshot is wanted.
	Conn *wsconn.Conn
}

type RequestSyncResponse struct {
	Conn     *wsconn.Conn
	Snapshot domain.Snapshot
}

func (RequestSyncResponse) roomEvent() {}

// RequestSync answers through the room's outbox too, so the snapshot never
// overtakes an older broadcast on its way to the requester.
func (s service) RequestSync(ctx context.Context, params *RequestSyncParams) (RequestSyncResponse, error) {
	r, err := s.lockMemberRoom(params.Session)
	if err != nil {
		return RequestSyncResponse{}, err
	}

	resp := RequestSyncResponse{
		Conn:     params.Conn,
		Snapshot: r.Snapshot(s.now()),
	}
	s.release(ctx, r, func(ctx context.Context) {
		s.publish(ctx, resp)
	})

	return resp, nil
}

// GetRoomPreview serves a read-only view of a room. With a mirror configured
// the view comes from it, so any replica can answer.
func (s service) GetRoomPreview(ctx context.Context, code string) (domain.Snapshot, error) {
	code = roomrepo.NormalizeCode(code)

	if s.snapshotRepo == nil {
		r, err := s.lockRoom(code)
		if err != nil {
			return domain.Snapshot{}, err
		}
		defer r.Mu.Unlock()

		return r.Snapshot(s.now()), nil
	}

	snap, err := s.snapshotRepo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return domain.Snapshot{}, ErrRoomNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if snap.IsPlaying {
		now := s.now()
		elapsed := now.Sub(time.UnixMilli(snap.ServerTime)).Seconds()
		if elapsed > 0 {
			snap.Position += elapsed
		}
		snap.ServerTime = now.UnixMilli()
	}

	return snap, nil
}

type Stats struct {
	Rooms         int
	MirroredRooms *int
}

func (s service) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{Rooms: s.roomRepo.Count()}
	if s.snapshotRepo == nil {
		return stats, nil
	}

	codes, err := s.snapshotRepo.Codes(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get mirrored rooms: %w", err)
	}
	mirrored := len(codes)
	stats.MirroredRooms = &mirrored

	return stats, nil
}

func (s service) GetSession(conn *wsconn.Conn) (connection.Session, error) {
	session, err := s.connRepo.GetSession(conn)
	if err != nil {
		return connection.Session{}, ErrNotInRoom
	}

	return session, nil
}
