package domain

import (
	"sync"
	"time"

	"github.com/syncbeats/server/pkg/outbox"
)

// Change tells which event a transition produced.
type Change int

const (
	NoChange Change = iota
	QueueChanged
	SongChanged
	PlaybackChanged
)

type Settings struct {
	Repeat    bool `json:"repeat"`
	AutoQueue bool `json:"auto_queue"`
}

type Snapshot struct {
	RoomCode     string  `json:"room_code"`
	HostID       string  `json:"host_id"`
	Queue        []Track `json:"queue"`
	CurrentIndex int     `json:"current_index"`
	IsPlaying    bool    `json:"is_playing"`
	Position     float64 `json:"position"`
	Users        []User  `json:"users"`
	Repeat       bool    `json:"repeat"`
	AutoQueue    bool    `json:"auto_queue"`
	ServerTime   int64   `json:"server_time"`
}

// Room is the authoritative state of one listening session. Mu must be held
// for every method call; the methods themselves do not lock.
//
// Outbox carries everything a change sends out of the process. Jobs are
// pushed while Mu is held, so they leave in the order the room changed.
type Room struct {
	Mu       sync.Mutex
	Outbox   outbox.Outbox
	Code     string
	HostID   string
	Queue    *Queue
	Player   *Player
	Members  *Members
	Settings Settings
	closed   bool
}

type RoomLimits struct {
	Members int
	Queue   int
}

func NewRoom(code string, host User, limits RoomLimits, now time.Time) *Room {
	host.IsHost = true
	members := NewMembers(limits.Members)
	members.list = append(members.list, host)

	return &Room{
		Code:    code,
		HostID:  host.ID,
		Queue:   NewQueue(limits.Queue),
		Player:  NewPlayer(now),
		Members: members,
	}
}

func (r *Room) IsHost(userID string) bool {
	return r.HostID != "" && r.HostID == userID
}

// Close marks the room as destroyed. Handles obtained before the room was
// deleted from its store observe Closed and stop.
func (r *Room) Close() {
	r.closed = true
	r.HostID = ""
}

func (r *Room) Closed() bool {
	return r.closed
}

func (r *Room) Join(user User) error {
	user.IsHost = false
	return r.Members.Add(user)
}

func (r *Room) Leave(userID string) (User, error) {
	return r.Members.RemoveByID(userID)
}

func (r *Room) AddTrack(track Track) error {
	if track.Title == "" {
		track.Title = DefaultTrackTitle
	}

	return r.Queue.Add(track)
}

func (r *Room) RemoveTrack(id string, now time.Time) error {
	if _, err := r.Queue.RemoveByID(id); err != nil {
		return err
	}

	if r.Queue.Length() == 0 {
		r.Player.Pause(now)
		r.Player.Rewind(now)
	}

	return nil
}

func (r *Room) ReorderQueue(ids []string) error {
	return r.Queue.Reorder(ids)
}

func (r *Room) Play(now time.Time) {
	r.Player.Play(now)
}

func (r *Room) Pause(now time.Time) {
	r.Player.Pause(now)
}

// Next moves to the following track. At the end of the queue it wraps to
// the first track only when repeat is on.
func (r *Room) Next(now time.Time) Change {
	length := r.Queue.Length()
	if length == 0 {
		return NoChange
	}

	index := r.Queue.CurrentIndex() + 1
	if index >= length {
		if !r.Settings.Repeat {
			return NoChange
		}
		index = 0
	}

	return r.moveTo(index, now)
}

// Prev moves to the preceding track. At the start of the queue it wraps to
// the last track only when repeat is on.
func (r *Room) Prev(now time.Time) Change {
	length := r.Queue.Length()
	if length == 0 {
		return NoChange
	}

	index := r.Queue.CurrentIndex() - 1
	if index < 0 {
		if !r.Settings.Repeat {
			return NoChange
		}
		index = length - 1
	}

	return r.moveTo(index, now)
}

func (r *Room) PlayAt(index int, now time.Time) error {
	if err := r.Queue.SetIndex(index); err != nil {
		return err
	}

	r.Player.Rewind(now)
	r.Player.Play(now)

	return nil
}

// TrackEnded advances after the host finished the current track. The last
// track either restarts the queue (repeat) or stops playback.
func (r *Room) TrackEnded(now time.Time) Change {
	if r.Queue.Length() == 0 {
		return NoChange
	}

	if r.Queue.IsLast() {
		if r.Settings.Repeat {
			return r.restartAt(0, now)
		}

		r.Player.Pause(now)
		return PlaybackChanged
	}

	return r.restartAt(r.Queue.CurrentIndex()+1, now)
}

func (r *Room) SyncTime(position float64, now time.Time) {
	r.Player.Seek(position, now)
}

func (r *Room) UpdateSettings(settings Settings) {
	r.Settings = settings
}

func (r *Room) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		RoomCode:     r.Code,
		HostID:       r.HostID,
		Queue:        r.Queue.AsList(),
		CurrentIndex: r.Queue.CurrentIndex(),
		IsPlaying:    r.Player.IsPlaying,
		Position:     r.Player.LivePosition(now),
		Users:        r.Members.AsList(),
		Repeat:       r.Settings.Repeat,
		AutoQueue:    r.Settings.AutoQueue,
		ServerTime:   now.UnixMilli(),
	}
}

func (r *Room) moveTo(index int, now time.Time) Change {
	if err := r.Queue.SetIndex(index); err != nil {
		return NoChange
	}
	r.Player.Rewind(now)

	return SongChanged
}

func (r *Room) restartAt(index int, now time.Time) Change {
	if change := r.moveTo(index, now); change == NoChange {
		return NoChange
	}
	r.Player.Play(now)

	return SongChanged
}
