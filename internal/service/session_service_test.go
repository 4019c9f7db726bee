package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
)

func TestFirstSessionAnnouncesOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Open(ctx, "s-1", "NEO", models.RoleOperator)
	require.NoError(t, err)

	kind, payload := recvEvent(t, sess)
	assert.Equal(t, events.KindUserOnline, kind)
	var got map[string]string
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "NEO", got["identity"])

	online, err := f.sessions.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"NEO"}, online)
}

func TestSecondSessionIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.sessions.Open(ctx, "s-1", "NEO", models.RoleOperator)
	require.NoError(t, err)
	recvEvent(t, first)

	_, err = f.sessions.Open(ctx, "s-2", "NEO", models.RoleOperator)
	require.NoError(t, err)
	requireNoEvent(t, first)

	// Only closing the last session announces offline.
	require.NoError(t, f.sessions.Close(ctx, "s-2"))
	requireNoEvent(t, first)

	watcher, err := f.sessions.Open(ctx, "s-3", "TRINITY", models.RoleOperator)
	require.NoError(t, err)
	recvEvent(t, first)
	recvEvent(t, watcher)

	require.NoError(t, f.sessions.Close(ctx, "s-1"))
	kind, _ := recvEvent(t, watcher)
	assert.Equal(t, events.KindUserOffline, kind)
}

func TestCloseUnknownSessionIsNoop(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.sessions.Close(context.Background(), "never-opened"))
}

func TestSessionOnlyChangesSkipPersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Open(ctx, "s-1", "NEO", models.RoleOperator)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Close(ctx, "s-1"))

	assert.Zero(t, f.saver.saves)
}
