package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/store"
)

// AuthService handles registration and login.
type AuthService struct {
	co     *coordinator.Coordinator
	tokens *auth.TokenIssuer
	pepper string
	log    *slog.Logger
}

// NewAuthService creates the auth service. pepper is the install-level
// secret mixed into every stored credential hash.
func NewAuthService(co *coordinator.Coordinator, tokens *auth.TokenIssuer, pepper string, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{co: co, tokens: tokens, pepper: pepper, log: log}
}

// Register queues a new identity for admin approval.
func (s *AuthService) Register(ctx context.Context, rawIdentity, displayName string) (models.Profile, error) {
	identity := store.NormalizeIdentity(rawIdentity)
	if !store.ValidIdentity(identity) {
		return models.Profile{}, fmt.Errorf("%w: identity must be 3-24 characters (A-Z, 0-9, -, _)", ErrValidation)
	}
	if displayName != "" {
		var err error
		if displayName, err = cleanText("display name", displayName, maxNameLen); err != nil {
			return models.Profile{}, err
		}
	}

	var profile models.Profile
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		u, err := store.CreatePending(st.Store, identity, displayName, time.Now().UTC())
		if err != nil {
			return coordinator.Result{}, err
		}
		profile = u.Profile()
		return coordinator.Result{Dirty: true}, nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	s.log.Info("registration queued", "identity", identity)
	return profile, nil
}

// Login authenticates an identity and returns a bearer token plus the
// account profile. Accounts holding a credential hash must present the
// matching secret; an active operator without one logs in by identity
// alone. Pending and banned accounts fail with distinct errors.
func (s *AuthService) Login(ctx context.Context, rawIdentity, secret string) (string, models.Profile, error) {
	identity := store.NormalizeIdentity(rawIdentity)

	var rec models.UserRecord
	err := s.co.View(ctx, func(st *coordinator.State) error {
		u, ok := store.User(st.Store, identity)
		if !ok {
			return store.ErrBadCredentials
		}
		rec = *u
		return nil
	})
	if err != nil {
		return "", models.Profile{}, err
	}

	switch rec.Status {
	case models.StatusPending:
		return "", models.Profile{}, store.ErrNotApproved
	case models.StatusBanned:
		return "", models.Profile{}, store.ErrBanned
	}

	if rec.PasswordHash != "" {
		// Deliberately expensive; runs here, never on the coordinator.
		if !auth.VerifySecret(secret, s.pepper, rec.PasswordHash) {
			s.log.Warn("failed login", "identity", identity)
			return "", models.Profile{}, store.ErrBadCredentials
		}
	}

	token, err := s.tokens.Issue(rec.Identity, rec.Role)
	if err != nil {
		return "", models.Profile{}, fmt.Errorf("issuing token: %w", err)
	}
	s.log.Info("login", "identity", identity, "role", rec.Role)
	return token, rec.Profile(), nil
}
