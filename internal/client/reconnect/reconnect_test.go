package reconnect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbeats/server/internal/protocol"
)

var guest = Membership{RoomCode: "ABCDEF", DisplayName: "Bob"}

func TestGuestRejoins(t *testing.T) {
	m := NewManager()
	m.BeginJoin()
	assert.Equal(t, Joining, m.State())

	m.Entered(guest)
	current, ok := m.Membership()
	require.True(t, ok)
	assert.Equal(t, guest, current)

	stopped := 0
	m.Track(func() { stopped++ })

	m.ConnectionLost()
	assert.Equal(t, Reconnecting, m.State())
	assert.Equal(t, 1, stopped)
	assert.True(t, m.Rejoining())

	decision, err := m.Reconnected()
	require.NoError(t, err)
	assert.Equal(t, Decision{Rejoin: true, Membership: guest}, decision)
	assert.Equal(t, 1, m.Attempts())

	m.Entered(guest)
	assert.Equal(t, InRoom, m.State())
	assert.Equal(t, 0, m.Attempts())

	m.Reset()
	assert.Equal(t, 1, stopped)
}

func TestRejoinAttemptsAreBounded(t *testing.T) {
	m := NewManager()
	m.Entered(guest)
	m.ConnectionLost()

	for range MaxAttempts {
		decision, err := m.Reconnected()
		require.NoError(t, err)
		require.True(t, decision.Rejoin)
		m.ConnectionLost()
	}

	_, err := m.Reconnected()
	require.ErrorIs(t, err, ErrRejoinFailed)

	var rejoinErr *RejoinError
	require.True(t, errors.As(err, &rejoinErr))
	assert.Equal(t, protocol.MessageRejoinExhausted, rejoinErr.Message)
	assert.Equal(t, Unjoined, m.State())
	assert.Equal(t, 0, m.Attempts())

	decision, err := m.Reconnected()
	require.NoError(t, err)
	assert.False(t, decision.Rejoin)
}

func TestHostNeverRejoins(t *testing.T) {
	m := NewManager()
	m.Entered(Membership{RoomCode: "ABCDEF", DisplayName: "Alice", IsHost: true})

	stopped := false
	m.Track(func() { stopped = true })
	m.ConnectionLost()
	assert.True(t, stopped)

	_, err := m.Reconnected()
	require.ErrorIs(t, err, ErrRejoinFailed)
	assert.EqualError(t, err, protocol.MessageHostDisconnect)

	_, ok := m.Membership()
	assert.False(t, ok)
}

func TestConnectionLostWhileJoining(t *testing.T) {
	m := NewManager()
	m.BeginJoin()
	m.ConnectionLost()
	assert.Equal(t, Unjoined, m.State())

	decision, err := m.Reconnected()
	require.NoError(t, err)
	assert.False(t, decision.Rejoin)
}

func TestBeginJoinDuringRejoin(t *testing.T) {
	m := NewManager()
	m.Entered(guest)
	m.ConnectionLost()
	m.BeginJoin()
	assert.Equal(t, Reconnecting, m.State())
}

func TestTrackWithoutMembershipRunsImmediately(t *testing.T) {
	m := NewManager()
	stopped := false
	m.Track(func() { stopped = true })
	assert.True(t, stopped)
}

func TestResetIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Entered(guest)

	stopped := 0
	m.Track(func() { stopped++ })
	m.Reset()
	m.Reset()

	assert.Equal(t, 1, stopped)
	assert.Equal(t, Unjoined, m.State())
	assert.Equal(t, "unjoined", m.State().String())
}
