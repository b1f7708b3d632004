package inmemory

import (
	"log/slog"
	"sync"

	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/room"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const maxCreateAttempts = 100

type iGenerator interface {
	GenerateRandomString(length int) string
}

type repo struct {
	rooms     map[string]*domain.Room
	generator iGenerator
	mu        sync.RWMutex
}

func NewRepo(generator iGenerator) *repo {
	return &repo{
		rooms:     make(map[string]*domain.Room),
		generator: generator,
	}
}

// Create stores the room built by newRoom under a code no live room uses.
func (r *repo) Create(newRoom func(code string) *domain.Room) (*domain.Room, error) {
	funcName := "room.inmemory.Create"
	r.mu.Lock()
	defer r.mu.Unlock()

	for range maxCreateAttempts {
		code := r.generator.GenerateRandomString(room.CodeLength)
		if _, exists := r.rooms[code]; exists {
			slog.Debug(funcName, "collision", code)
			continue
		}

		rm := newRoom(code)
		r.rooms[code] = rm

		slog.Debug(funcName, "result", code)
		return rm, nil
	}

	slog.Info(funcName, "error", room.ErrCodeSpaceExhausted)
	return nil, room.ErrCodeSpaceExhausted
}

func (r *repo) Get(code string) (*domain.Room, error) {
	funcName := "room.inmemory.Get"
	r.mu.RLock()
	defer r.mu.RUnlock()

	code = room.NormalizeCode(code)
	rm, ok := r.rooms[code]
	if !ok {
		slog.Debug(funcName, "error", room.ErrRoomNotFound, "code", code)
		return nil, room.ErrRoomNotFound
	}

	return rm, nil
}

func (r *repo) Delete(code string) error {
	funcName := "room.inmemory.Delete"
	r.mu.Lock()
	defer r.mu.Unlock()

	code = room.NormalizeCode(code)
	if _, ok := r.rooms[code]; !ok {
		slog.Debug(funcName, "error", room.ErrRoomNotFound, "code", code)
		return room.ErrRoomNotFound
	}
	delete(r.rooms, code)

	slog.Debug(funcName, "result", code)
	return nil
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

func (r *repo) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := maps.Keys(r.rooms)
	slices.Sort(codes)
	return codes
}
