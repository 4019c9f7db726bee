package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/presence"
)

const testPepper = "unit-test-pepper"

type memSaver struct {
	saves int
}

func (m *memSaver) Save(*models.PersistedStore) error {
	m.saves++
	return nil
}

type fixture struct {
	co       *coordinator.Coordinator
	tracker  *presence.Tracker
	auth     *AuthService
	accounts *AccountService
	tickets  *TicketService
	feed     *FeedService
	sessions *SessionService
	saver    *memSaver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	tracker := presence.NewTracker(16)
	saver := &memSaver{}
	st := &coordinator.State{Store: models.NewStore(), Sessions: tracker}
	bus := events.NewBus(tracker, nil, log)
	co := coordinator.New(saver, bus, st, coordinator.Options{Logger: log})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		co.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	issuer := auth.NewTokenIssuer("test-jwt-secret")
	return &fixture{
		co:       co,
		tracker:  tracker,
		auth:     NewAuthService(co, issuer, testPepper, log),
		accounts: NewAccountService(co, testPepper, log),
		tickets:  NewTicketService(co, log),
		feed:     NewFeedService(co, 10, 10, log),
		sessions: NewSessionService(co, log),
		saver:    saver,
	}
}

// activeUser registers and approves an account, returning its temp secret.
func (f *fixture) activeUser(t *testing.T, identity string) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, identity, "")
	require.NoError(t, err)
	_, secret, err := f.accounts.Approve(ctx, identity)
	require.NoError(t, err)
	return secret
}

// recvEvent reads the next envelope off a session outbox.
func recvEvent(t *testing.T, sess *presence.Session) (events.Kind, json.RawMessage) {
	t.Helper()
	select {
	case raw, ok := <-sess.Outbox:
		require.True(t, ok, "outbox closed")
		var env struct {
			Kind    events.Kind     `json:"kind"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		return env.Kind, env.Payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return "", nil
	}
}

// requireNoEvent asserts the outbox stays quiet.
func requireNoEvent(t *testing.T, sess *presence.Session) {
	t.Helper()
	select {
	case raw := <-sess.Outbox:
		t.Fatalf("unexpected event: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}
