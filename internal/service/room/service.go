package room

import (
	"context"
	"errors"
	"time"

	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/pkg/wsconn"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrTrackNotFound    = errors.New("track not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotInRoom        = errors.New("connection is not in a room")
	ErrAlreadyInRoom    = errors.New("connection is already in a room")
	ErrRoomFull         = errors.New("room is full")
	ErrQueueFull        = errors.New("queue is full")
	ErrNoChange         = errors.New("transition changed nothing")
	ErrIndexOutOfRange  = domain.ErrIndexOutOfRange
	ErrInvalidOrder     = domain.ErrInvalidOrder
)

type iRoomRepo interface {
	Create(newRoom func(code string) *domain.Room) (*domain.Room, error)
	Get(code string) (*domain.Room, error)
	Delete(code string) error
	Count() int
}

type iConnRepo interface {
	Add(*wsconn.Conn, connection.Session) error
	RemoveByConn(*wsconn.Conn) (connection.Session, error)
	RemoveByUserID(string) (*wsconn.Conn, error)
	GetSession(*wsconn.Conn) (connection.Session, error)
	GetConn(string) (*wsconn.Conn, error)
}

type iSnapshotRepo interface {
	Save(context.Context, domain.Snapshot) error
	Get(context.Context, string) (domain.Snapshot, error)
	Delete(context.Context, string) error
	Codes(context.Context) ([]string, error)
}

// Event is the outcome of a room operation that connections have to hear
// about. Each response type that reaches other connections is one.
type Event interface {
	roomEvent()
}

// iPublisher writes events to their connections. For a given room, Publish
// is called in the order the room changed and never concurrently.
type iPublisher interface {
	Publish(context.Context, Event)
}

type service struct {
	roomRepo     iRoomRepo
	connRepo     iConnRepo
	snapshotRepo iSnapshotRepo
	publisher    iPublisher
	limits       domain.RoomLimits
	now          func() time.Time
}

type Config struct {
	MembersLimit int
	QueueLimit   int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewService wires the room service. snapshotRepo may be nil, in which case
// nothing is mirrored, and publisher may be nil, in which case nothing is
// sent.
func NewService(roomRepo iRoomRepo, connRepo iConnRepo, snapshotRepo iSnapshotRepo, publisher iPublisher, cfg *Config) *service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &service{
		roomRepo:     roomRepo,
		connRepo:     connRepo,
		snapshotRepo: snapshotRepo,
		publisher:    publisher,
		limits: domain.RoomLimits{
			Members: cfg.MembersLimit,
			Queue:   cfg.QueueLimit,
		},
		now: now,
	}
}
