package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/validator"
	"github.com/syncbeats/server/pkg/wsconn"
	"github.com/syncbeats/server/pkg/wsrouter"
	"github.com/syncbeats/server/pkg/ytmedia"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 90 * time.Second
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	RequestSync(context.Context, *room.RequestSyncParams) (room.RequestSyncResponse, error)
	GetSession(*wsconn.Conn) (connection.Session, error)
	GetRoomPreview(context.Context, string) (domain.Snapshot, error)
	GetStats(context.Context) (room.Stats, error)
	AddTrack(context.Context, *room.AddTrackParams) (room.QueueResponse, error)
	RemoveTrack(context.Context, *room.RemoveTrackParams) (room.QueueResponse, error)
	ReorderQueue(context.Context, *room.ReorderQueueParams) (room.QueueResponse, error)
	Play(context.Context, *room.PlayerParams) (room.PlaybackStateResponse, error)
	Pause(context.Context, *room.PlayerParams) (room.PlaybackStateResponse, error)
	Next(context.Context, *room.PlayerParams) (room.SongChangedResponse, error)
	Prev(context.Context, *room.PlayerParams) (room.SongChangedResponse, error)
	PlayAt(context.Context, *room.PlayAtParams) (room.SongChangedResponse, error)
	TrackEnded(context.Context, *room.PlayerParams) (room.TrackEndedResponse, error)
	SyncTime(context.Context, *room.SyncTimeParams) (room.SyncTimeResponse, error)
	SetRepeat(context.Context, *room.ToggleParams) (room.SettingsResponse, error)
	SetAutoQueue(context.Context, *room.ToggleParams) (room.SettingsResponse, error)
}

// iMediaInfo fills in metadata for tracks added without a title.
type iMediaInfo interface {
	Get(ctx context.Context, videoID string) (*ytmedia.VideoData, error)
}

type controller struct {
	roomService iRoomService
	mediaInfo   iMediaInfo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
	startedAt   time.Time
}

// NewController builds the HTTP and websocket surface. mediaInfo may be nil.
func NewController(roomService iRoomService, mediaInfo iMediaInfo, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		mediaInfo:   mediaInfo,
		validate:    validator.NewValidator(),
		logger:      logger,
		startedAt:   time.Now(),
	}
	c.wsmux = c.getWSRouter()

	return c
}
