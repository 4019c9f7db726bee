package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/presence"
	"github.com/nullgrid/nullgrid/internal/store"
)

type nopSaver struct{}

func (nopSaver) Save(*models.PersistedStore) error { return nil }

func authTestRig(t *testing.T) (*coordinator.Coordinator, *auth.TokenIssuer) {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	tracker := presence.NewTracker(4)
	st := &coordinator.State{Store: models.NewStore(), Sessions: tracker}

	now := time.Now().UTC()
	_, err := store.CreatePending(st.Store, "PENDING", "", now)
	require.NoError(t, err)
	_, err = store.EnsureAdmin(st.Store, "SYSOP", "Sysop", "hash", now)
	require.NoError(t, err)
	_, err = store.CreatePending(st.Store, "OPER", "", now)
	require.NoError(t, err)
	_, err = store.Approve(st.Store, "OPER", "hash")
	require.NoError(t, err)
	_, err = store.CreatePending(st.Store, "OUTLAW", "", now)
	require.NoError(t, err)
	_, err = store.Approve(st.Store, "OUTLAW", "hash")
	require.NoError(t, err)
	_, err = store.SetBan(st.Store, "OUTLAW", true)
	require.NoError(t, err)

	co := coordinator.New(nopSaver{}, events.NewBus(tracker, nil, log), st, coordinator.Options{Logger: log})
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

	return co, auth.NewTokenIssuer("middleware-test-secret")
}

func authTestRouter(co *coordinator.Coordinator, tokens *auth.TokenIssuer) *gin.Engine {
	router := gin.New()
	authed := router.Group("/", AuthRequired(tokens, co))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"identity": Identity(c), "admin": IsAdmin(c)})
	})
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	co, tokens := authTestRig(t)
	router := authTestRouter(co, tokens)

	token, err := tokens.Issue("OPER", models.RoleOperator)
	require.NoError(t, err)

	w := get(router, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OPER")
}

func TestAuthRequiredRejectsMissingAndGarbageTokens(t *testing.T) {
	co, tokens := authTestRig(t)
	router := authTestRouter(co, tokens)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "not-a-jwt").Code)
}

func TestAuthRequiredRejectsDeletedAccount(t *testing.T) {
	co, tokens := authTestRig(t)
	router := authTestRouter(co, tokens)

	token, err := tokens.Issue("VANISHED", models.RoleOperator)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", token).Code)
}

func TestAuthRequiredEnforcesCurrentStatus(t *testing.T) {
	co, tokens := authTestRig(t)
	router := authTestRouter(co, tokens)

	banned, err := tokens.Issue("OUTLAW", models.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(router, "/me", banned).Code)

	pending, err := tokens.Issue("PENDING", models.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(router, "/me", pending).Code)
}

func TestRequireAdminGatesOperators(t *testing.T) {
	co, tokens := authTestRig(t)
	router := authTestRouter(co, tokens)

	opToken, err := tokens.Issue("OPER", models.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", opToken).Code)

	adminToken, err := tokens.Issue("SYSOP", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, "/admin", adminToken).Code)
}

func TestExtractTokenQueryFallback(t *testing.T) {
	co, tokens := authTestRig(t)
	router := authTestRouter(co, tokens)

	token, err := tokens.Issue("OPER", models.RoleOperator)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
