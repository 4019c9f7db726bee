package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/persist"
	"github.com/nullgrid/nullgrid/internal/presence"
	"github.com/nullgrid/nullgrid/internal/service"
	"github.com/nullgrid/nullgrid/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testPepper    = "api-test-pepper"
	adminIdentity = "SYSOP"
	adminSecret   = "sysop-secret-123"
)

type rig struct {
	router *gin.Engine
	co     *coordinator.Coordinator
}

func newRig(t *testing.T) *rig {
	return newRigWithRateLimit(t, 1000)
}

func newRigWithRateLimit(t *testing.T, authRateLimit int) *rig {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	engine := persist.NewEngine(filepath.Join(t.TempDir(), "state.ngrid"), "store-key", log)

	st, err := engine.Load()
	require.NoError(t, err)

	adminHash, err := auth.HashSecret(adminSecret, testPepper)
	require.NoError(t, err)
	_, err = store.EnsureAdmin(st, adminIdentity, "Sysop", adminHash, time.Now().UTC())
	require.NoError(t, err)

	tracker := presence.NewTracker(16)
	state := &coordinator.State{Store: st, Sessions: tracker}
	bus := events.NewBus(tracker, nil, log)
	co := coordinator.New(engine, bus, state, coordinator.Options{Logger: log})

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

	tokens := auth.NewTokenIssuer("api-test-jwt-secret")
	srv := NewServer(
		co,
		tokens,
		service.NewAuthService(co, tokens, testPepper, log),
		service.NewAccountService(co, testPepper, log),
		service.NewTicketService(co, log),
		service.NewFeedService(co, 50, 50, log),
		service.NewSessionService(co, log),
		log,
	)
	return &rig{router: srv.Router(authRateLimit), co: co}
}

func (r *rig) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (r *rig) login(t *testing.T, identity, secret string) string {
	t.Helper()
	w := r.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identity": identity, "secret": secret})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	return resp.Token
}

// onboard registers and approves an operator, returning a usable token.
func (r *rig) onboard(t *testing.T, identity string) string {
	t.Helper()
	adminToken := r.login(t, adminIdentity, adminSecret)

	w := r.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"identity": identity})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = r.do(t, http.MethodPost, "/api/v1/users/"+identity+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		TempSecret string `json:"temp_secret"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.TempSecret)

	return r.login(t, identity, resp.TempSecret)
}

func TestOnboardingFlow(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)

	w := r.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"identity": "neo", "display_name": "Thomas"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Not approved yet: login refused.
	w = r.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identity": "NEO", "secret": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = r.do(t, http.MethodGet, "/api/v1/users/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "NEO")

	w = r.do(t, http.MethodPost, "/api/v1/users/NEO/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var approve struct {
		TempSecret string `json:"temp_secret"`
	}
	decode(t, w, &approve)

	token := r.login(t, "NEO", approve.TempSecret)
	w = r.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "NEO")
}

func TestDeniedRegistrationCannotLogin(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)

	w := r.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"identity": "GHOST"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = r.do(t, http.MethodPost, "/api/v1/users/GHOST/deny", adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identity": "GHOST", "secret": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)
	opToken := r.onboard(t, "NEO")

	w := r.do(t, http.MethodPost, "/api/v1/tickets", opToken, gin.H{"subject": "locked out", "text": "terminal refuses my card"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Ticket models.Ticket `json:"ticket"`
	}
	decode(t, w, &created)
	id := created.Ticket.ID

	// Operators cannot accept tickets.
	w = r.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/accept", opToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/accept", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/messages", adminToken, gin.H{"text": "try the side door"})
	require.Equal(t, http.StatusOK, w.Code)
	w = r.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/messages", opToken, gin.H{"text": "that worked"})
	require.Equal(t, http.StatusOK, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/close", opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/messages", opToken, gin.H{"text": "wait"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTicketIsolationBetweenOperators(t *testing.T) {
	r := newRig(t)
	neo := r.onboard(t, "NEO")
	trinity := r.onboard(t, "TRINITY")

	w := r.do(t, http.MethodPost, "/api/v1/tickets", neo, gin.H{"subject": "mine", "text": "body"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Ticket models.Ticket `json:"ticket"`
	}
	decode(t, w, &created)

	w = r.do(t, http.MethodGet, "/api/v1/tickets/"+created.Ticket.ID, trinity, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = r.do(t, http.MethodGet, "/api/v1/tickets", trinity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created.Ticket.ID)
}

func TestBroadcastIsAdminOnly(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)
	opToken := r.onboard(t, "NEO")

	w := r.do(t, http.MethodPost, "/api/v1/broadcasts", opToken, gin.H{"text": "fake news"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/broadcasts", adminToken, gin.H{"text": "drill at noon"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = r.do(t, http.MethodGet, "/api/v1/broadcasts", opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "drill at noon")
}

func TestBanTakesEffectImmediately(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)
	opToken := r.onboard(t, "SMITH")

	w := r.do(t, http.MethodGet, "/api/v1/me", opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/users/SMITH/ban", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The still-valid token is now useless.
	w = r.do(t, http.MethodGet, "/api/v1/me", opToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = r.do(t, http.MethodPost, "/api/v1/users/SMITH/unban", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = r.do(t, http.MethodGet, "/api/v1/me", opToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCannotBeBanned(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)

	w := r.do(t, http.MethodPost, "/api/v1/users/"+adminIdentity+"/ban", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminPasswordReset(t *testing.T) {
	r := newRig(t)
	adminToken := r.login(t, adminIdentity, adminSecret)
	r.onboard(t, "NEO")

	w := r.do(t, http.MethodPut, "/api/v1/users/NEO/password", adminToken, gin.H{"secret": "fresh-secret-1"})
	require.Equal(t, http.StatusNoContent, w.Code)

	r.login(t, "NEO", "fresh-secret-1")

	w = r.do(t, http.MethodPatch, "/api/v1/users/NEO/profile", adminToken, gin.H{"clearance": 5, "department": "Archives"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Archives")
}

func TestHealthz(t *testing.T) {
	r := newRig(t)

	w := r.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRig(t)

	w := r.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nullgrid")
}

func TestLoginRateLimit(t *testing.T) {
	r := newRigWithRateLimit(t, 3)

	for i := 0; i < 3; i++ {
		w := r.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identity": "NOBODY", "secret": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := r.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identity": "NOBODY", "secret": "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
