package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/snapshot"
)

const roomsKey = "rooms"

// repo mirrors live room snapshots into Redis. Every save refreshes the
// TTL so rooms abandoned without a clean close expire on their own.
type repo struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRepo(rc *redis.Client, ttl time.Duration) *repo {
	return &repo{
		rc:  rc,
		ttl: ttl,
	}
}

func (r repo) getStateKey(roomCode string) string {
	return "room:" + roomCode + ":state"
}

func (r repo) Save(ctx context.Context, s domain.Snapshot) error {
	queue, err := json.Marshal(s.Queue)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	users, err := json.Marshal(s.Users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	var currentTrackID *string
	if len(s.Queue) > 0 {
		currentTrackID = &s.Queue[s.CurrentIndex].ID
	}

	key := r.getStateKey(s.RoomCode)
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, r.omitNilPointers(map[string]any{
		"room_code":        s.RoomCode,
		"host_id":          s.HostID,
		"current_index":    s.CurrentIndex,
		"current_track_id": currentTrackID,
		"is_playing":       s.IsPlaying,
		"position":         s.Position,
		"repeat":           s.Repeat,
		"auto_queue":       s.AutoQueue,
		"server_time":      s.ServerTime,
		"queue":            string(queue),
		"users":            string(users),
	}))
	pipe.Expire(ctx, key, r.ttl)
	pipe.SAdd(ctx, roomsKey, s.RoomCode)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	slog.DebugContext(ctx, "snapshot.redis.Save", "room_code", s.RoomCode)
	return nil
}

func (r repo) Get(ctx context.Context, roomCode string) (domain.Snapshot, error) {
	fields, err := r.rc.HGetAll(ctx, r.getStateKey(roomCode)).Result()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if len(fields) == 0 {
		return domain.Snapshot{}, snapshot.ErrNotFound
	}

	s := domain.Snapshot{
		RoomCode:     fields["room_code"],
		HostID:       fields["host_id"],
		CurrentIndex: r.fieldToInt(fields["current_index"]),
		IsPlaying:    r.fieldToBool(fields["is_playing"]),
		Position:     r.fieldToFloat64(fields["position"]),
		Repeat:       r.fieldToBool(fields["repeat"]),
		AutoQueue:    r.fieldToBool(fields["auto_queue"]),
		ServerTime:   r.fieldToInt64(fields["server_time"]),
	}

	if err := json.Unmarshal([]byte(fields["queue"]), &s.Queue); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to unmarshal queue: %w", err)
	}

	if err := json.Unmarshal([]byte(fields["users"]), &s.Users); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to unmarshal users: %w", err)
	}

	return s, nil
}

func (r repo) Delete(ctx context.Context, roomCode string) error {
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getStateKey(roomCode))
	pipe.SRem(ctx, roomsKey, roomCode)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	slog.DebugContext(ctx, "snapshot.redis.Delete", "room_code", roomCode)
	return nil
}

// Codes lists mirrored rooms whose state key has not expired.
func (r repo) Codes(ctx context.Context) ([]string, error) {
	codes, err := r.rc.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room codes: %w", err)
	}

	live := make([]string, 0, len(codes))
	for _, code := range codes {
		exists, err := r.rc.Exists(ctx, r.getStateKey(code)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check room state: %w", err)
		}

		if exists == 0 {
			r.rc.SRem(ctx, roomsKey, code)
			continue
		}
		live = append(live, code)
	}

	return live, nil
}
