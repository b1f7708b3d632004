package ctxlogger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("request_id", "r1"))
	child := AppendCtx(ctx, slog.String("room_code", "ABCDEF"))
	logger.InfoContext(child, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "r1", record["request_id"])
	assert.Equal(t, "ABCDEF", record["room_code"])

	buf.Reset()
	logger.InfoContext(ctx, "parent")
	var parentRecord map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parentRecord))
	_, ok := parentRecord["room_code"]
	assert.False(t, ok, "parent context must not see child attributes")
}
