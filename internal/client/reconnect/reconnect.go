// Package reconnect tracks room membership across transport drops and
// decides whether a fresh connection should rejoin the remembered room.
package reconnect

import (
	"errors"
	"sync"

	"github.com/syncbeats/server/internal/protocol"
)

// MaxAttempts bounds consecutive rejoins without a successful room-joined.
const MaxAttempts = 3

var ErrRejoinFailed = errors.New("rejoin failed")

// RejoinError carries the message shown to the user. It matches
// ErrRejoinFailed with errors.Is.
type RejoinError struct {
	Message string
}

func (e *RejoinError) Error() string {
	return e.Message
}

func (e *RejoinError) Unwrap() error {
	return ErrRejoinFailed
}

type State int

const (
	Unjoined State = iota
	Joining
	InRoom
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case Joining:
		return "joining"
	case InRoom:
		return "in-room"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

type Membership struct {
	RoomCode    string
	DisplayName string
	IsHost      bool
}

// Decision tells the caller what to do on a fresh connection.
type Decision struct {
	Rejoin     bool
	Membership Membership
}

// Manager is safe for concurrent use. Cleanups registered with Track run
// once whenever the membership ends or the transport drops.
type Manager struct {
	mu       sync.Mutex
	state    State
	current  Membership
	attempts int
	cleanups []func()
}

func NewManager() *Manager {
	return &Manager{state: Unjoined}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Membership() (Membership, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.state == InRoom
}

func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// BeginJoin marks an explicit create or join request. It is ignored while a
// rejoin is pending.
func (m *Manager) BeginJoin() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Unjoined {
		m.state = Joining
	}
}

// Entered records a confirmed membership and clears the attempt counter.
func (m *Manager) Entered(membership Membership) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = InRoom
	m.current = membership
	m.attempts = 0
}

// Track registers a cleanup for a task bound to the current membership,
// such as a ticker. It runs immediately when there is no membership.
func (m *Manager) Track(cleanup func()) {
	m.mu.Lock()
	if m.state == InRoom {
		m.cleanups = append(m.cleanups, cleanup)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	cleanup()
}

// ConnectionLost keeps the membership for a later rejoin and stops every
// tracked task. A pending first join is dropped.
func (m *Manager) ConnectionLost() {
	m.mu.Lock()
	switch m.state {
	case InRoom:
		m.state = Reconnecting
	case Joining:
		m.state = Unjoined
	}
	cleanups := m.takeCleanups()
	m.mu.Unlock()

	runAll(cleanups)
}

// Reconnected is called once per fresh connection. It returns the room to
// rejoin, or a *RejoinError once the attempts are exhausted or the lost
// membership was the host's, since a host disconnect closes the room.
func (m *Manager) Reconnected() (Decision, error) {
	m.mu.Lock()
	if m.state != Reconnecting {
		m.mu.Unlock()
		return Decision{}, nil
	}

	m.attempts++
	if m.attempts > MaxAttempts {
		cleanups := m.reset()
		m.mu.Unlock()
		runAll(cleanups)
		return Decision{}, &RejoinError{Message: protocol.MessageRejoinExhausted}
	}

	if m.current.IsHost {
		cleanups := m.reset()
		m.mu.Unlock()
		runAll(cleanups)
		return Decision{}, &RejoinError{Message: protocol.MessageHostDisconnect}
	}

	membership := m.current
	m.mu.Unlock()

	return Decision{Rejoin: true, Membership: membership}, nil
}

// Rejoining reports whether a rejoin is pending, so that a room-not-found
// reply can be told apart from a failed first join.
func (m *Manager) Rejoining() bool {
	return m.State() == Reconnecting
}

// Reset forgets the membership and stops every tracked task. It is safe to
// call repeatedly.
func (m *Manager) Reset() {
	m.mu.Lock()
	cleanups := m.reset()
	m.mu.Unlock()

	runAll(cleanups)
}

func (m *Manager) reset() []func() {
	m.state = Unjoined
	m.current = Membership{}
	m.attempts = 0
	return m.takeCleanups()
}

func (m *Manager) takeCleanups() []func() {
	cleanups := m.cleanups
	m.cleanups = nil
	return cleanups
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
