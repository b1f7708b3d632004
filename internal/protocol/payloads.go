package protocol

import "github.com/syncbeats/server/internal/domain"

type (
	Track    = domain.Track
	User     = domain.User
	Snapshot = domain.Snapshot
)

type CreateRoomInput struct {
	DisplayName string `json:"display_name" validate:"required,max=32"`
}

type JoinRoomInput struct {
	RoomCode    string `json:"room_code" validate:"required,max=16"`
	DisplayName string `json:"display_name" validate:"required,max=32"`
}

type AddSongInput struct {
	MediaRef     string `json:"media_ref" validate:"required,max=64"`
	Title        string `json:"title" validate:"max=256"`
	ThumbnailRef string `json:"thumbnail_ref" validate:"max=512"`
	AddedBy      string `json:"added_by,omitempty" validate:"max=32"`
}

type RemoveSongInput struct {
	TrackID string `json:"track_id" validate:"required"`
}

type ReorderQueueInput struct {
	Queue []Track `json:"queue"`
}

type PlaySongInput struct {
	Index int `json:"index" validate:"gte=0"`
}

type SyncTimeInput struct {
	Position float64 `json:"position" validate:"gte=0"`
}

type ToggleInput struct {
	Enabled bool `json:"enabled"`
}

type EmptyInput struct{}

type RoomEnteredPayload struct {
	RoomCode string   `json:"room_code"`
	UserID   string   `json:"user_id"`
	IsHost   bool     `json:"is_host"`
	Room     Snapshot `json:"room"`
}

type MembershipPayload struct {
	User  User   `json:"user"`
	Users []User `json:"users"`
}

type QueuePayload struct {
	Queue        []Track `json:"queue"`
	CurrentIndex int     `json:"current_index"`
}

type SongChangedPayload struct {
	CurrentIndex int     `json:"current_index"`
	Position     float64 `json:"position"`
	IsPlaying    bool    `json:"is_playing"`
}

type PlaybackStatePayload struct {
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
}

type TimeSyncPayload struct {
	Position float64 `json:"position"`
}

type FullSyncPayload struct {
	Room Snapshot `json:"room"`
}

type SettingsPayload struct {
	Repeat    bool `json:"repeat"`
	AutoQueue bool `json:"auto_queue"`
}

type MessagePayload struct {
	Message string `json:"message"`
}
