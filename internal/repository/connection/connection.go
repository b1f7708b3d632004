package connection

import "errors"

var (
	ErrAlreadyExists = errors.New("connection already has a session")
	ErrNotFound      = errors.New("session not found")
)

// Session is the identity a connection acts under inside a room. It is set
// once when the connection creates or joins a room and removed when it
// leaves.
type Session struct {
	RoomCode string
	UserID   string
	IsHost   bool
}
