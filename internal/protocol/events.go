// Package protocol holds the event names and payloads exchanged over the
// room websocket.
package protocol

// Client to server.
const (
	CreateRoom    = "create-room"
	JoinRoom      = "join-room"
	AddSong       = "add-song"
	RemoveSong    = "remove-song"
	ReorderQueue  = "reorder-queue"
	Play          = "play"
	Pause         = "pause"
	NextSong      = "next-song"
	PrevSong      = "prev-song"
	PlaySong      = "play-song"
	SongEnded     = "song-ended"
	SyncTime      = "sync-time"
	RequestSync   = "request-sync"
	LeaveRoom     = "leave-room"
	SetRepeat     = "set-repeat"
	SetAutoQueue  = "set-auto-queue"
	PingKeepAlive = "ping-keep-alive"
)

// Server to client.
const (
	RoomCreated     = "room-created"
	RoomJoined      = "room-joined"
	UserJoined      = "user-joined"
	UserLeft        = "user-left"
	QueueUpdated    = "queue-updated"
	SongChanged     = "song-changed"
	PlaybackState   = "playback-state"
	TimeSync        = "time-sync"
	FullSync        = "full-sync"
	SettingsUpdated = "settings-updated"
	RoomClosed      = "room-closed"
	LeftRoom        = "left-room"
	Error           = "error"

	// RejoinFailed is raised locally by the client, never sent by the server.
	RejoinFailed = "rejoin-failed"
)

const (
	MessageRoomNotFound    = "Room not found! Check the code and try again."
	MessageHostLeft        = "The host has left. Room closed."
	MessageAlreadyInRoom   = "You are already in a room."
	MessageRoomFull        = "Room is full."
	MessageQueueFull       = "Queue is full."
	MessageTrackNotFound   = "Track not found."
	MessageRejoinExhausted = "Could not rejoin room after multiple attempts."
	MessageHostDisconnect  = "Room closed because you (the host) disconnected."
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
