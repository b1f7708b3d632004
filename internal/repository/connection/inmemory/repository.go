package inmemory

import (
	"log/slog"
	"sync"

	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/pkg/wsconn"
)

type repo struct {
	sessions map[*wsconn.Conn]connection.Session
	conns    map[string]*wsconn.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		sessions: make(map[*wsconn.Conn]connection.Session),
		conns:    make(map[string]*wsconn.Conn),
	}
}

func (r *repo) Add(conn *wsconn.Conn, session connection.Session) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "userID", session.UserID, "roomCode", session.RoomCode)
	if _, ok := r.sessions[conn]; ok {
		slog.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}
	if _, ok := r.conns[session.UserID]; ok {
		slog.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.sessions[conn] = session
	r.conns[session.UserID] = conn

	slog.Debug(funcName, "result", "OK")
	return nil
}

func (r *repo) RemoveByConn(conn *wsconn.Conn) (connection.Session, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "conn", conn.ID())
	session, ok := r.sessions[conn]
	if !ok {
		slog.Debug(funcName, "error", connection.ErrNotFound)
		return connection.Session{}, connection.ErrNotFound
	}

	delete(r.sessions, conn)
	delete(r.conns, session.UserID)

	slog.Debug(funcName, "result", session.UserID)
	return session, nil
}

func (r *repo) RemoveByUserID(userID string) (*wsconn.Conn, error) {
	funcName := "connection.inmemory.RemoveByUserID"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "userID", userID)
	conn, ok := r.conns[userID]
	if !ok {
		slog.Debug(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	delete(r.sessions, conn)
	delete(r.conns, userID)

	slog.Debug(funcName, "result", "OK")
	return conn, nil
}

func (r *repo) GetSession(conn *wsconn.Conn) (connection.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[conn]
	if !ok {
		return connection.Session{}, connection.ErrNotFound
	}

	return session, nil
}

func (r *repo) GetConn(userID string) (*wsconn.Conn, error) {
	funcName := "connection.inmemory.GetConn"
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	if !ok {
		slog.Debug(funcName, "error", connection.ErrNotFound, "userID", userID)
		return nil, connection.ErrNotFound
	}

	return conn, nil
}
