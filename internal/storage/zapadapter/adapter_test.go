package zapadapter

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextIDs(t *testing.T) {
	ctx := NewContextWithUser(NewContextWithID(context.Background(), "req-1"), "u1")

	id, ok := IDFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "req-1", id)

	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "u1", user)

	_, ok = IDFromContext(context.Background())
	require.False(t, ok)
}

func TestLogTagsRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewLogger(zap.New(core))

	ctx := NewContextWithID(context.Background(), "req-1")
	l.Log(ctx, pgx.LogLevelInfo, "Query", map[string]interface{}{"sql": "select 1"})

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "Query", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "select 1", fields["sql"])
}
