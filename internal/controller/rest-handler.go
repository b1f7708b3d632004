package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/rest"
)

const healthStatus = "SyncBeats server running"

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	stats, err := c.roomService.GetStats(r.Context())
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get mirrored room stats", "error", err)
	}

	envelope := rest.Envelope{
		"status":         healthStatus,
		"rooms":          stats.Rooms,
		"uptime_seconds": int64(time.Since(c.startedAt).Seconds()),
	}
	if stats.MirroredRooms != nil {
		envelope["mirrored_rooms"] = *stats.MirroredRooms
	}

	rest.WriteJSON(w, http.StatusOK, envelope)
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	snapshot, err := c.roomService.GetRoomPreview(r.Context(), roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.WarnContext(r.Context(), "failed to get room preview", "room_code", roomCode, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}
