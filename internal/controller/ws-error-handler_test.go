package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/wsconn"
)

type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordHandler) WithGroup(string) slog.Handler { return h }

func (h *recordHandler) last(t *testing.T) slog.Record {
	t.Helper()

	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.records)
	return h.records[len(h.records)-1]
}

func TestHandleWSErrorLevels(t *testing.T) {
	h := &recordHandler{}
	c := controller{logger: slog.New(h)}
	// Never written to: none of these errors is reported to the sender.
	conn := wsconn.New(&websocket.Conn{})

	for _, tt := range []struct {
		err     error
		level   slog.Level
		message string
	}{
		{fmt.Errorf("failed to reorder queue: %w", room.ErrInvalidOrder), slog.LevelWarn, "message rejected"},
		{fmt.Errorf("failed to play: %w", room.ErrPermissionDenied), slog.LevelDebug, "message ignored"},
		{fmt.Errorf("failed to play song: %w", room.ErrIndexOutOfRange), slog.LevelDebug, "message ignored"},
		{fmt.Errorf("failed to skip to next song: %w", room.ErrNoChange), slog.LevelDebug, "message ignored"},
		{fmt.Errorf("failed to add track: %w", assert.AnError), slog.LevelWarn, "failed to handle message"},
	} {
		c.handleWSError(context.Background(), conn, tt.err)

		record := h.last(t)
		assert.Equal(t, tt.level, record.Level, tt.err.Error())
		assert.Equal(t, tt.message, record.Message, tt.err.Error())
	}
}
