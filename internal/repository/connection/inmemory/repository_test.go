package inmemory

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/pkg/wsconn"
)

func TestRepo(t *testing.T) {
	r := NewRepo()
	conn1 := wsconn.New(&websocket.Conn{})
	conn2 := wsconn.New(&websocket.Conn{})

	s1 := connection.Session{RoomCode: "ABCDEF", UserID: "u1", IsHost: true}
	require.NoError(t, r.Add(conn1, s1))
	assert.ErrorIs(t, r.Add(conn1, connection.Session{UserID: "u3"}), connection.ErrAlreadyExists)
	assert.ErrorIs(t, r.Add(conn2, connection.Session{UserID: "u1"}), connection.ErrAlreadyExists)
	require.NoError(t, r.Add(conn2, connection.Session{RoomCode: "ABCDEF", UserID: "u2"}))

	got, err := r.GetSession(conn1)
	require.NoError(t, err)
	assert.Equal(t, s1, got)

	c, err := r.GetConn("u2")
	require.NoError(t, err)
	assert.Same(t, conn2, c)

	removed, err := r.RemoveByConn(conn1)
	require.NoError(t, err)
	assert.Equal(t, s1, removed)
	_, err = r.GetConn("u1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.RemoveByConn(conn1)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	c, err = r.RemoveByUserID("u2")
	require.NoError(t, err)
	assert.Same(t, conn2, c)
	_, err = r.GetSession(conn2)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	require.NoError(t, r.Add(conn1, connection.Session{UserID: "u4"}), "a connection can join again after leaving")
}
